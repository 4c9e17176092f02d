package opcua

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gopcua/opcua/ua"

	"github.com/forgeio/gateway/internal/drivers"
)

// parseNodeID converts the OPC UA textual node-id grammar
// ns=<u16>;[s|i|g|b]=<value> into a structured ua.NodeID. Malformed input
// fails with drivers.ErrConfigError, per spec.md §4.2.
func parseNodeID(addr string) (*ua.NodeID, error) {
	if err := validateNodeIDGrammar(addr); err != nil {
		return nil, err
	}
	id, err := ua.ParseNodeID(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid node id %q: %v", drivers.ErrConfigError, addr, err)
	}
	return id, nil
}

// validateEndpoint rejects an obviously malformed device address before it
// ever reaches opcua.NewClient, so a typo'd scheme fails with ErrConfigError
// instead of a confusing dial error surfaced through the supervisor.
func validateEndpoint(address string) error {
	if !strings.HasPrefix(address, "opc.tcp://") {
		return fmt.Errorf("%w: address %q must use the opc.tcp:// scheme", drivers.ErrConfigError, address)
	}
	return nil
}

// validateNodeIDGrammar is a defense-in-depth check ahead of the library
// parser: it rejects addresses missing the ";" separator or carrying an
// identifier prefix the grammar doesn't define, so a malformed address
// fails fast with a precise message instead of whatever ua.ParseNodeID's
// own error text says.
func validateNodeIDGrammar(addr string) error {
	if !strings.Contains(addr, ";") {
		return fmt.Errorf("%w: node id %q missing ';' separator", drivers.ErrConfigError, addr)
	}
	parts := strings.SplitN(addr, ";", 2)
	if !strings.HasPrefix(parts[0], "ns=") {
		return fmt.Errorf("%w: node id %q missing 'ns=' prefix", drivers.ErrConfigError, addr)
	}
	if _, err := strconv.ParseUint(strings.TrimPrefix(parts[0], "ns="), 10, 16); err != nil {
		return fmt.Errorf("%w: node id %q has non-numeric namespace: %v", drivers.ErrConfigError, addr, err)
	}
	ident := parts[1]
	switch {
	case strings.HasPrefix(ident, "s="), strings.HasPrefix(ident, "i="),
		strings.HasPrefix(ident, "g="), strings.HasPrefix(ident, "b="):
		return nil
	default:
		return fmt.Errorf("%w: node id %q has unknown identifier prefix", drivers.ErrConfigError, addr)
	}
}
