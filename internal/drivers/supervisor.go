package drivers

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	hclog "github.com/hashicorp/go-hclog"

	"github.com/forgeio/gateway/internal/config"
)

// SupervisorPolicy is the subset of DriverConfig the connection supervisor
// needs to drive its retry/backoff state machine.
type SupervisorPolicy struct {
	Attempts    int
	DelayMS     uint64
	Backoff     float64
	TimeoutMS   uint64
}

// PolicyFrom extracts a SupervisorPolicy from a device's configuration.
func PolicyFrom(cfg config.DriverConfig) SupervisorPolicy {
	return SupervisorPolicy{
		Attempts:  cfg.Attempts(),
		DelayMS:   cfg.DelayMS(),
		Backoff:   cfg.Backoff(),
		TimeoutMS: cfg.TimeoutMS(),
	}
}

// RunConnectionSupervisor drives Idle → Attempting → Connected/Failed per
// spec.md §4.3: at most attempts+1 total calls to attempt, each bounded by
// TimeoutMS, with inter-attempt sleeps following the geometric schedule
// d, d·b, d·b², … built from DelayMS/Backoff. attempt should perform one
// connection try and return nil on success.
//
// Built on cenkalti/backoff/v4 (a direct dependency of hashicorp/nomad's
// go.mod): RandomizationFactor is forced to zero so the schedule stays
// exactly geometric, which the testable property in spec.md §8 requires.
func RunConnectionSupervisor(ctx context.Context, log hclog.Logger, policy SupervisorPolicy, attempt func(ctx context.Context) error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Duration(policy.DelayMS) * time.Millisecond
	eb.Multiplier = policy.Backoff
	if eb.Multiplier <= 0 {
		eb.Multiplier = 1
	}
	eb.RandomizationFactor = 0
	eb.MaxElapsedTime = 0 // attempt budget is count-based, not elapsed-time-based
	eb.MaxInterval = time.Hour

	bo := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(policy.Attempts)), ctx)

	attemptNum := 0
	lastWasTimeout := false
	op := func() error {
		attemptNum++
		timeout := time.Duration(policy.TimeoutMS) * time.Millisecond
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		err := attempt(attemptCtx)
		if err == nil {
			return nil
		}
		lastWasTimeout = attemptCtx.Err() != nil
		return fmt.Errorf("attempt %d: %w", attemptNum, err)
	}

	notify := func(err error, d time.Duration) {
		log.Warn("connect attempt failed, backing off", "attempt", attemptNum, "delay", d, "error", err)
	}

	if err := backoff.RetryNotify(op, bo, notify); err != nil {
		if lastWasTimeout {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrConnectFailure, err)
	}
	return nil
}
