// Package poll implements the periodic driver-read loop that keeps the
// point table current: tags are grouped by (driver, poll rate) once at
// startup, and each group is read as a batch whenever its interval elapses.
package poll

import (
	"context"
	"sync"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/forgeio/gateway/internal/drivers"
	"github.com/forgeio/gateway/internal/tags"
)

// baseTick is the scheduler's wakeup granularity. Every configured
// poll_rate_ms should be a multiple of this for predictable timing, but the
// scheduler tolerates any value by checking elapsed time rather than
// counting ticks.
const baseTick = 100 * time.Millisecond

// group is a set of tags that share a driver and a poll rate, read together
// in one batched Read call.
type group struct {
	driverID   string
	pollRateMS uint64
	addresses  []string
	paths      []string // parallel to addresses
	lastPoll   time.Time
}

// Scheduler owns the background polling loop. It is constructed once at
// startup from a snapshot of the configured tags; tags added later via the
// HTTP facade are not picked up until the process restarts, per spec.md
// §4.4.
type Scheduler struct {
	log     hclog.Logger
	table   *tags.Table
	drivers map[string]drivers.Driver
	groups  []*group

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New builds the group snapshot from the current contents of table. Tags
// whose driver_id has no matching entry in driverSet are skipped with a
// warning rather than failing construction, since a misconfigured single
// tag shouldn't block the whole gateway from starting.
func New(log hclog.Logger, table *tags.Table, driverSet map[string]drivers.Driver) *Scheduler {
	s := &Scheduler{
		log:     log.Named("poll"),
		table:   table,
		drivers: driverSet,
	}

	byKey := map[string]*group{}
	for _, tag := range table.AllTags() {
		if _, ok := driverSet[tag.DriverID]; !ok {
			s.log.Warn("skipping tag with unknown driver", "path", tag.Path, "driver_id", tag.DriverID)
			continue
		}
		key := groupKey(tag.DriverID, tag.PollRateMS)
		g, ok := byKey[key]
		if !ok {
			g = &group{driverID: tag.DriverID, pollRateMS: tag.PollRateMS}
			byKey[key] = g
			s.groups = append(s.groups, g)
		}
		g.addresses = append(g.addresses, tag.DriverAddress)
		g.paths = append(g.paths, tag.Path)
	}

	return s
}

func groupKey(driverID string, pollRateMS uint64) string {
	return driverID + "@" + time.Duration(pollRateMS).String()
}

// Start launches the background tick loop. It returns immediately; call
// Stop to shut it down.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	now := time.Now()
	for _, g := range s.groups {
		g.lastPoll = now
	}

	s.wg.Add(1)
	go s.run(ctx)
}

// Stop cancels the tick loop and waits for the in-flight tick, if any, to
// finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(baseTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(ctx, now)
		}
	}
}

// tick reads every group whose interval has elapsed since its last poll.
// Groups are read concurrently across drivers via errgroup, since a slow
// device shouldn't delay polling of the others. last_poll advances whether
// the read succeeded or not, per spec.md §4.4, so a persistently failing
// device is retried on schedule rather than hammered.
func (s *Scheduler) tick(ctx context.Context, now time.Time) {
	var eg errgroup.Group
	for _, g := range s.groups {
		g := g
		if now.Sub(g.lastPoll) < time.Duration(g.pollRateMS)*time.Millisecond {
			continue
		}
		g.lastPoll = now
		eg.Go(func() error {
			s.pollGroup(ctx, g)
			return nil
		})
	}
	_ = eg.Wait()
}

func (s *Scheduler) pollGroup(ctx context.Context, g *group) {
	drv, ok := s.drivers[g.driverID]
	if !ok {
		return
	}

	values, err := drv.Read(ctx, g.addresses)
	if err != nil {
		s.log.Warn("group read failed, marking tags bad", "driver_id", g.driverID, "error", err)
		bad := tags.BadTagValue(tags.QualityBad)
		for _, path := range g.paths {
			s.table.UpdateValue(path, bad)
		}
		return
	}

	for i, addr := range g.addresses {
		tv, ok := values[addr]
		if !ok {
			continue
		}
		s.table.UpdateValue(g.paths[i], tv)
	}
}
