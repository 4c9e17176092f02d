package poll

import (
	"context"
	"sync"
	"testing"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"

	"github.com/forgeio/gateway/internal/config"
	"github.com/forgeio/gateway/internal/drivers"
	"github.com/forgeio/gateway/internal/tags"
)

// fakeDriver is a drivers.Driver test double that counts reads and can be
// told to fail.
type fakeDriver struct {
	mu        sync.Mutex
	cfg       config.DriverConfig
	reads     int
	failNext  bool
	lastAddrs []string
	skipAddr  string // if set, omitted from the next successful Read's results
}

func (f *fakeDriver) Config() config.DriverConfig { return f.cfg }
func (f *fakeDriver) Connect(ctx context.Context) error    { return nil }
func (f *fakeDriver) Disconnect(ctx context.Context) error { return nil }
func (f *fakeDriver) Status(ctx context.Context) error     { return nil }

func (f *fakeDriver) Read(ctx context.Context, addresses []string) (map[string]tags.TagValue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	f.lastAddrs = addresses
	if f.failNext {
		f.failNext = false
		return nil, drivers.ErrReadFailure
	}
	out := map[string]tags.TagValue{}
	for _, a := range addresses {
		if a == f.skipAddr {
			continue
		}
		out[a] = tags.NewTagValue(tags.FloatValue(42), tags.QualityGood)
	}
	return out, nil
}

func (f *fakeDriver) Write(ctx context.Context, values map[string]tags.TagValue) error {
	return drivers.ErrNotImplemented
}
func (f *fakeDriver) Browse(ctx context.Context, nodeID string) ([]string, error) { return nil, nil }
func (f *fakeDriver) DiscoverTags(ctx context.Context) ([]string, error)          { return nil, nil }

func (f *fakeDriver) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func newTestLog() hclog.Logger {
	return hclog.NewNullLogger()
}

func TestNewGroupsTagsByDriverAndPollRate(t *testing.T) {
	table := tags.NewTable()
	table.Register(tags.Tag{Path: "a", DriverID: "d1", DriverAddress: "ns=2;s=A", PollRateMS: 100})
	table.Register(tags.Tag{Path: "b", DriverID: "d1", DriverAddress: "ns=2;s=B", PollRateMS: 100})
	table.Register(tags.Tag{Path: "c", DriverID: "d1", DriverAddress: "ns=2;s=C", PollRateMS: 500})

	drv := &fakeDriver{cfg: config.DriverConfig{ID: "d1"}}
	s := New(newTestLog(), table, map[string]drivers.Driver{"d1": drv})

	require.Len(t, s.groups, 2)
}

func TestNewSkipsTagsWithUnknownDriver(t *testing.T) {
	table := tags.NewTable()
	table.Register(tags.Tag{Path: "a", DriverID: "missing", DriverAddress: "ns=2;s=A", PollRateMS: 100})

	s := New(newTestLog(), table, map[string]drivers.Driver{})
	require.Len(t, s.groups, 0)
}

func TestTickOnlyPollsDueGroups(t *testing.T) {
	table := tags.NewTable()
	table.Register(tags.Tag{Path: "fast", DriverID: "d1", DriverAddress: "ns=2;s=F", PollRateMS: 100})
	table.Register(tags.Tag{Path: "slow", DriverID: "d1", DriverAddress: "ns=2;s=S", PollRateMS: 10000})

	drv := &fakeDriver{cfg: config.DriverConfig{ID: "d1"}}
	s := New(newTestLog(), table, map[string]drivers.Driver{"d1": drv})

	now := time.Now()
	for _, g := range s.groups {
		g.lastPoll = now.Add(-1 * time.Second)
	}
	s.tick(context.Background(), now)

	require.Equal(t, 1, drv.readCount())
}

func TestPollGroupMarksTagsBadOnReadFailure(t *testing.T) {
	table := tags.NewTable()
	table.Register(tags.Tag{Path: "a", DriverID: "d1", DriverAddress: "ns=2;s=A", PollRateMS: 100})

	drv := &fakeDriver{cfg: config.DriverConfig{ID: "d1"}, failNext: true}
	s := New(newTestLog(), table, map[string]drivers.Driver{"d1": drv})

	s.pollGroup(context.Background(), s.groups[0])

	v, ok := table.ReadValue("a")
	require.True(t, ok)
	require.Equal(t, tags.QualityBad, v.Quality)
	require.Equal(t, tags.KindNull, v.Value.Kind)
}

func TestPollGroupUpdatesValuesOnSuccess(t *testing.T) {
	table := tags.NewTable()
	table.Register(tags.Tag{Path: "a", DriverID: "d1", DriverAddress: "ns=2;s=A", PollRateMS: 100})

	drv := &fakeDriver{cfg: config.DriverConfig{ID: "d1"}}
	s := New(newTestLog(), table, map[string]drivers.Driver{"d1": drv})

	s.pollGroup(context.Background(), s.groups[0])

	v, ok := table.ReadValue("a")
	require.True(t, ok)
	require.Equal(t, tags.QualityGood, v.Quality)
	require.Equal(t, float64(42), v.Value.Float)
}

func TestPollGroupLeavesUnreturnedAddressUnchangedOnSuccess(t *testing.T) {
	table := tags.NewTable()
	table.Register(tags.Tag{Path: "a", DriverID: "d1", DriverAddress: "ns=2;s=A", PollRateMS: 100})
	table.Register(tags.Tag{Path: "b", DriverID: "d1", DriverAddress: "ns=2;s=B", PollRateMS: 100})

	previous := tags.NewTagValue(tags.FloatValue(7), tags.QualityGood)
	table.UpdateValue("b", previous)

	drv := &fakeDriver{cfg: config.DriverConfig{ID: "d1"}, skipAddr: "ns=2;s=B"}
	s := New(newTestLog(), table, map[string]drivers.Driver{"d1": drv})

	s.pollGroup(context.Background(), s.groups[0])

	a, _ := table.ReadValue("a")
	require.Equal(t, tags.QualityGood, a.Quality)

	b, ok := table.ReadValue("b")
	require.True(t, ok)
	require.Equal(t, previous, b)
}

func TestStartAndStopRunsAtLeastOneTick(t *testing.T) {
	table := tags.NewTable()
	table.Register(tags.Tag{Path: "a", DriverID: "d1", DriverAddress: "ns=2;s=A", PollRateMS: 1})

	drv := &fakeDriver{cfg: config.DriverConfig{ID: "d1"}}
	s := New(newTestLog(), table, map[string]drivers.Driver{"d1": drv})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return drv.readCount() > 0 }, time.Second, 10*time.Millisecond)
	s.Stop()
}
