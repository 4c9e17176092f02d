package drivers

import (
	"context"
	"errors"
	"testing"
	"time"

	hclog "github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/require"
)

func testLog() hclog.Logger { return hclog.NewNullLogger() }

func TestRunConnectionSupervisorSucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	err := RunConnectionSupervisor(context.Background(), testLog(), SupervisorPolicy{
		Attempts: 3, DelayMS: 1, Backoff: 2, TimeoutMS: 1000,
	}, func(ctx context.Context) error {
		calls++
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 1, calls)
}

func TestRunConnectionSupervisorRetriesUpToAttemptsPlusOne(t *testing.T) {
	calls := 0
	err := RunConnectionSupervisor(context.Background(), testLog(), SupervisorPolicy{
		Attempts: 2, DelayMS: 1, Backoff: 2, TimeoutMS: 1000,
	}, func(ctx context.Context) error {
		calls++
		return errors.New("refused")
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrConnectFailure)
	require.Equal(t, 3, calls) // initial attempt + 2 retries
}

func TestRunConnectionSupervisorSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := RunConnectionSupervisor(context.Background(), testLog(), SupervisorPolicy{
		Attempts: 5, DelayMS: 1, Backoff: 2, TimeoutMS: 1000,
	}, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not ready yet")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRunConnectionSupervisorReportsTimeoutDistinctFromConnectFailure(t *testing.T) {
	err := RunConnectionSupervisor(context.Background(), testLog(), SupervisorPolicy{
		Attempts: 1, DelayMS: 1, Backoff: 2, TimeoutMS: 5,
	}, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestRunConnectionSupervisorRespectsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_ = RunConnectionSupervisor(ctx, testLog(), SupervisorPolicy{
		Attempts: 5, DelayMS: 10, Backoff: 2, TimeoutMS: 1000,
	}, func(ctx context.Context) error {
		calls++
		return errors.New("refused")
	})
	require.LessOrEqual(t, calls, 1)
}

func TestRunConnectionSupervisorGeometricSchedule(t *testing.T) {
	var gaps []time.Duration
	last := time.Now()

	err := RunConnectionSupervisor(context.Background(), testLog(), SupervisorPolicy{
		Attempts: 3, DelayMS: 20, Backoff: 2, TimeoutMS: 1000,
	}, func(ctx context.Context) error {
		now := time.Now()
		gaps = append(gaps, now.Sub(last))
		last = now
		return errors.New("refused")
	})
	require.Error(t, err)
	require.Len(t, gaps, 4)

	// Ignore the first (near-zero) gap before the first attempt; each
	// subsequent inter-attempt sleep should be roughly double the last.
	require.GreaterOrEqual(t, gaps[2], gaps[1])
	require.GreaterOrEqual(t, gaps[3], gaps[2])
}
