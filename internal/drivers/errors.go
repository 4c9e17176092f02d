package drivers

import "errors"

// Error kinds from spec.md §7. Callers use errors.Is against these
// sentinels; concrete drivers wrap them with %w to add context.
var (
	// ErrConfigError covers malformed endpoints, node ids, or Settings.
	ErrConfigError = errors.New("drivers: config error")
	// ErrNotConnected is returned by operations issued before a successful
	// Connect, or after the session was lost.
	ErrNotConnected = errors.New("drivers: not connected")
	// ErrConnectFailure is returned when Connect exhausts its retry budget
	// due to a protocol-level refusal.
	ErrConnectFailure = errors.New("drivers: connect failure")
	// ErrTimeout is returned when Connect exhausts its retry budget and the
	// final attempt exceeded its per-attempt deadline.
	ErrTimeout = errors.New("drivers: timeout")
	// ErrReadFailure is returned when a read batch fails at the session
	// level (not a per-tag bad-quality result, which is not an error).
	ErrReadFailure = errors.New("drivers: read failure")
	// ErrBrowseFailure is returned when a browse or discover-tags call
	// fails at the session level.
	ErrBrowseFailure = errors.New("drivers: browse failure")
	// ErrNotImplemented is returned by operations not shipped in this
	// release, currently Driver.Write (spec.md §9 Open Question).
	ErrNotImplemented = errors.New("drivers: not implemented")
)
