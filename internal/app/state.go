// Package app wires together the point table, driver registry, and
// settings store into the single shared handle the HTTP facade and poll
// scheduler both read from.
package app

import (
	"time"

	"github.com/forgeio/gateway/internal/config"
	"github.com/forgeio/gateway/internal/drivers"
	"github.com/forgeio/gateway/internal/tags"
)

// State is immutable after startup: the driver map and point table are
// built once from the loaded configuration and never replaced, though
// their contents (tag values, connection state) mutate continuously.
// Settings is the one piece that can be swapped wholesale, via its own
// Store.
type State struct {
	Table     *tags.Table
	Drivers   map[string]drivers.Driver
	Settings  *config.Store
	StartTime time.Time
}

// New constructs a State around an already-populated table and driver map.
func New(table *tags.Table, driverSet map[string]drivers.Driver, settings *config.Store) *State {
	return &State{
		Table:     table,
		Drivers:   driverSet,
		Settings:  settings,
		StartTime: time.Now(),
	}
}

// UptimeSeconds reports elapsed process lifetime for /api/stats.
func (s *State) UptimeSeconds() float64 {
	return time.Since(s.StartTime).Seconds()
}

// DriverCount is the number of successfully connected drivers, which may
// be fewer than the configured device count if some failed to connect at
// startup.
func (s *State) DriverCount() int {
	return len(s.Drivers)
}
