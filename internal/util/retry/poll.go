package retry

import (
	"context"
	"fmt"
	"time"
)

// Outcome is the result of a bounded poll.
type Outcome string

const (
	// Converged means the condition reported done within the attempt budget.
	Converged Outcome = "converged"
	// TimedOut means every attempt ran and the condition never reported done.
	TimedOut Outcome = "timed-out"
	// Failed means the condition returned an error or the context ended.
	Failed Outcome = "failed"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// PollConfig bounds a poll loop.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int

	// Sleep replaces the wall-clock wait between attempts. Nil means Sleep.
	Sleep SleepFunc
}

// Poll evaluates cond up to MaxAttempts times, waiting Interval between
// attempts. cond returns true once the watched state has converged.
// A non-nil error from cond, or a cancelled context, yields Failed.
func Poll(ctx context.Context, cfg PollConfig, cond func(attempt int) (bool, error)) (Outcome, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		done, err := cond(attempt)
		if err != nil {
			return Failed, fmt.Errorf("poll attempt %d: %w", attempt, err)
		}
		if done {
			return Converged, nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}
		if err := sleep(ctx, cfg.Interval); err != nil {
			return Failed, fmt.Errorf("poll interrupted after %d attempts: %w", attempt, err)
		}
	}
	return TimedOut, nil
}
