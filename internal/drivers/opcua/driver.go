// Package opcua implements drivers.Driver against an OPC UA server using
// github.com/gopcua/opcua, the external client library spec.md §1 calls for
// (the core never speaks the wire protocol itself).
package opcua

import (
	"context"
	"fmt"
	"sync"

	hclog "github.com/hashicorp/go-hclog"

	"github.com/gopcua/opcua"
	"github.com/gopcua/opcua/id"
	"github.com/gopcua/opcua/ua"

	"github.com/forgeio/gateway/internal/config"
	"github.com/forgeio/gateway/internal/drivers"
	"github.com/forgeio/gateway/internal/tags"
)

// maxDiscoverDepth bounds the recursive browse discover_tags performs, per
// spec.md §4.2 ("implementation may bound depth and cycle-guard by node
// id").
const maxDiscoverDepth = 8

// Driver is a drivers.Driver backed by a single OPC UA session. The session
// handle is either absent (disconnected) or present (connected); there is
// no partial state, guarded by mu.
type Driver struct {
	cfg config.DriverConfig
	log hclog.Logger

	mu     sync.RWMutex
	client *opcua.Client // nil iff disconnected
}

var _ drivers.Driver = (*Driver)(nil)
var _ drivers.Typed = (*Driver)(nil)

// New constructs a Driver for cfg. The session is not opened until Connect
// is called.
func New(cfg config.DriverConfig, log hclog.Logger) *Driver {
	return &Driver{
		cfg: cfg,
		log: log.Named("driver.opcua").With("driver_id", cfg.ID),
	}
}

func (d *Driver) Config() config.DriverConfig { return d.cfg }

func (d *Driver) Type() drivers.TypeTag { return drivers.TypeOPCUA }

// Connect is idempotent: if a session is already present it returns
// success without running the connection supervisor again. Otherwise it
// runs drivers.RunConnectionSupervisor, building a fresh client and
// endpoint per attempt with security=None and anonymous identity, per
// spec.md §4.3.
func (d *Driver) Connect(ctx context.Context) error {
	d.mu.RLock()
	already := d.client != nil
	d.mu.RUnlock()
	if already {
		return nil
	}

	if err := validateEndpoint(d.cfg.Address); err != nil {
		return err
	}

	policy := drivers.PolicyFrom(d.cfg)
	var connected *opcua.Client

	err := drivers.RunConnectionSupervisor(ctx, d.log, policy, func(attemptCtx context.Context) error {
		opts := []opcua.Option{
			opcua.SecurityPolicy("None"),
			opcua.SecurityModeString("None"),
			opcua.AuthAnonymous(),
		}
		if d.cfg.ApplicationName != nil {
			opts = append(opts, opcua.ApplicationName(*d.cfg.ApplicationName))
		}
		if d.cfg.ApplicationURI != nil {
			opts = append(opts, opcua.ApplicationURI(*d.cfg.ApplicationURI))
		}
		if d.cfg.SessionName != nil {
			opts = append(opts, opcua.SessionName(*d.cfg.SessionName))
		}
		if d.cfg.MaxMessageSize != nil {
			opts = append(opts, opcua.MaxMessageSize(uint32(*d.cfg.MaxMessageSize)))
		}
		if d.cfg.MaxChunkCount != nil {
			opts = append(opts, opcua.MaxChunkCount(uint32(*d.cfg.MaxChunkCount)))
		}

		client, err := opcua.NewClient(d.cfg.Address, opts...)
		if err != nil {
			return fmt.Errorf("%w: build client: %v", drivers.ErrConfigError, err)
		}

		if err := client.Connect(attemptCtx); err != nil {
			return err
		}

		connected = client
		return nil
	})
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.client = connected
	d.mu.Unlock()
	d.log.Info("connected", "address", d.cfg.Address)
	return nil
}

// Disconnect tears down the session. Safe to call when already
// disconnected.
func (d *Driver) Disconnect(ctx context.Context) error {
	d.mu.Lock()
	client := d.client
	d.client = nil
	d.mu.Unlock()

	if client == nil {
		return nil
	}
	if err := client.Close(ctx); err != nil {
		d.log.Warn("error closing session", "error", err)
	}
	d.log.Info("disconnected")
	return nil
}

// Status returns nil iff a live session exists. It probes the server
// status node as a lightweight liveness check rather than trusting the
// handle alone, matching spec.md §4.2's "may check liveness by probing a
// known server-status node".
func (d *Driver) Status(ctx context.Context) error {
	client, err := d.sessionOrErr()
	if err != nil {
		return err
	}

	nodeID := ua.NewNumericNodeID(0, id.Server_ServerStatus_State)
	req := &ua.ReadRequest{
		NodesToRead: []*ua.ReadValueID{{NodeID: nodeID, AttributeID: ua.AttributeIDValue}},
	}
	resp, err := client.Read(ctx, req)
	if err != nil || len(resp.Results) == 0 {
		return fmt.Errorf("%w: status probe failed: %v", drivers.ErrNotConnected, err)
	}
	return nil
}

func (d *Driver) sessionOrErr() (*opcua.Client, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.client == nil {
		return nil, drivers.ErrNotConnected
	}
	return d.client, nil
}

// Read accepts protocol address strings and returns a TagValue for each.
// Bad per-tag status codes are mapped to Quality Bad rather than failing
// the batch; only session-level failure does (ErrReadFailure).
func (d *Driver) Read(ctx context.Context, addresses []string) (map[string]tags.TagValue, error) {
	client, err := d.sessionOrErr()
	if err != nil {
		return nil, err
	}

	nodeIDs := make([]*ua.NodeID, 0, len(addresses))
	valid := make([]string, 0, len(addresses))
	results := make(map[string]tags.TagValue, len(addresses))

	for _, addr := range addresses {
		id, perr := parseNodeID(addr)
		if perr != nil {
			d.log.Warn("skipping address with invalid node id", "address", addr, "error", perr)
			results[addr] = tags.BadTagValue(tags.QualityConfigError)
			continue
		}
		nodeIDs = append(nodeIDs, id)
		valid = append(valid, addr)
	}

	if len(nodeIDs) == 0 {
		return results, nil
	}

	toRead := make([]*ua.ReadValueID, len(nodeIDs))
	for i, id := range nodeIDs {
		toRead[i] = &ua.ReadValueID{NodeID: id, AttributeID: ua.AttributeIDValue}
	}

	resp, err := client.Read(ctx, &ua.ReadRequest{NodesToRead: toRead})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", drivers.ErrReadFailure, err)
	}

	for i, res := range resp.Results {
		if i >= len(valid) {
			break
		}
		results[valid[i]] = variantToTagValue(res.Value, res.Status)
	}

	return results, nil
}

// Write is unimplemented in this release and always reports
// ErrNotImplemented, per spec.md §9 Open Question.
func (d *Driver) Write(ctx context.Context, values map[string]tags.TagValue) error {
	return drivers.ErrNotImplemented
}

// Browse returns the display names of the hierarchical children of nodeID.
func (d *Driver) Browse(ctx context.Context, nodeID string) ([]string, error) {
	client, err := d.sessionOrErr()
	if err != nil {
		return nil, err
	}

	parsed, err := parseNodeID(nodeID)
	if err != nil {
		return nil, err
	}

	children, err := d.browseChildren(ctx, client, parsed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", drivers.ErrBrowseFailure, err)
	}
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.displayName)
	}
	return names, nil
}

type browseChild struct {
	nodeID      *ua.NodeID
	displayName string
	isVariable  bool
}

func (d *Driver) browseChildren(ctx context.Context, client *opcua.Client, nodeID *ua.NodeID) ([]browseChild, error) {
	req := &ua.BrowseRequest{
		NodesToBrowse: []*ua.BrowseDescription{{
			NodeID:          nodeID,
			BrowseDirection: ua.BrowseDirectionForward,
			ReferenceTypeID: ua.NewNumericNodeID(0, id.HierarchicalReferences),
			IncludeSubtypes: true,
			NodeClassMask:   uint32(ua.NodeClassAll),
			ResultMask:      uint32(ua.BrowseResultMaskAll),
		}},
	}

	resp, err := client.Browse(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	var out []browseChild
	for _, ref := range resp.Results[0].References {
		out = append(out, browseChild{
			nodeID:      ua.NewNodeIDFromExpandedNodeID(ref.NodeID),
			displayName: ref.DisplayName.Text,
			isVariable:  ref.NodeClass == ua.NodeClassVariable,
		})
	}
	return out, nil
}

// DiscoverTags recursively browses from the Objects folder and returns a
// flat list of leaf variable addresses, bounding depth and guarding against
// cycles by tracking visited node ids, per spec.md §4.2.
func (d *Driver) DiscoverTags(ctx context.Context) ([]string, error) {
	client, err := d.sessionOrErr()
	if err != nil {
		return nil, err
	}

	root := ua.NewNumericNodeID(0, id.ObjectsFolder)
	visited := map[string]bool{}
	var leaves []string

	var walk func(node *ua.NodeID, depth int) error
	walk = func(node *ua.NodeID, depth int) error {
		key := node.String()
		if visited[key] || depth > maxDiscoverDepth {
			return nil
		}
		visited[key] = true

		children, err := d.browseChildren(ctx, client, node)
		if err != nil {
			return err
		}
		for _, c := range children {
			if c.isVariable {
				leaves = append(leaves, c.nodeID.String())
				continue
			}
			if err := walk(c.nodeID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	if err := walk(root, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", drivers.ErrBrowseFailure, err)
	}
	return leaves, nil
}
