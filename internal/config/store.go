package config

import "sync"

// Store is a process-wide reader/writer lock wrapping the current Settings.
// Replace holds a dedicated writer mutex for its whole persist-then-swap
// sequence, so concurrent Replace calls never interleave their file writes;
// readers do not take that mutex. The in-memory swap itself is guarded by a
// sync.RWMutex, which blocks new readers once a writer is waiting in Lock,
// so a pending PUT /api/config is not starved by concurrent GETs.
type Store struct {
	writerMu sync.Mutex
	rw       sync.RWMutex
	current  Settings
}

// NewStore wraps an initial Settings value.
func NewStore(initial Settings) *Store {
	return &Store{current: initial}
}

// Get returns a copy of the current Settings.
func (s *Store) Get() Settings {
	s.rw.RLock()
	defer s.rw.RUnlock()
	return s.current
}

// Replace persists next to path, and only on success swaps it in as the
// current Settings. On persistence failure the in-memory copy is left
// unchanged and the error is returned to the caller.
func (s *Store) Replace(path string, next Settings) error {
	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	if err := Save(path, next); err != nil {
		return err
	}

	s.rw.Lock()
	s.current = next
	s.rw.Unlock()
	return nil
}
