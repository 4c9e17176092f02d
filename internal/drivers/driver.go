// Package drivers defines the polymorphic contract every per-device driver
// implements, and the connection supervisor embedded in Connect.
package drivers

import (
	"context"

	"github.com/forgeio/gateway/internal/config"
	"github.com/forgeio/gateway/internal/tags"
)

// Driver encapsulates a single device session and translates generic tag
// read/browse requests into protocol calls. One instance exists per
// configured device for the lifetime of the process.
type Driver interface {
	// Config returns the configuration this driver was constructed with.
	// Stable for the driver's lifetime.
	Config() config.DriverConfig

	// Connect is idempotent: if already connected it returns success
	// without re-running the connection supervisor.
	Connect(ctx context.Context) error

	// Disconnect tears down the session and any associated background
	// work. Safe to call when already disconnected.
	Disconnect(ctx context.Context) error

	// Status returns nil iff a live session exists. It never attempts
	// reconnection.
	Status(ctx context.Context) error

	// Read accepts protocol address strings and returns a value for each.
	// A bad per-tag status is a TagValue with Quality Bad, not an error;
	// only session-level failure fails the whole call (ErrReadFailure).
	Read(ctx context.Context, addresses []string) (map[string]tags.TagValue, error)

	// Write is part of the contract but unimplemented in this release; it
	// always returns ErrNotImplemented (spec.md §9 Open Question).
	Write(ctx context.Context, values map[string]tags.TagValue) error

	// Browse returns the display names of the hierarchical children of
	// nodeID.
	Browse(ctx context.Context, nodeID string) ([]string, error)

	// DiscoverTags recursively browses from the server's Objects folder
	// and returns a flat list of leaf variable addresses.
	DiscoverTags(ctx context.Context) ([]string, error)
}

// TypeTag identifies the protocol a Driver implements, for HTTP facade
// responses that must downcast to protocol-specific behavior (spec.md §9,
// "Dynamic dispatch across drivers").
type TypeTag string

const (
	TypeOPCUA TypeTag = "opcua"
)

// Typed is implemented by drivers that can report their protocol tag
// without a type assertion against a concrete struct.
type Typed interface {
	Type() TypeTag
}
