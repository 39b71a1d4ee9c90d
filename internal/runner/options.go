package runner

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Task executes one instrumented run. run is the zero-based run index;
// retries of a run reuse its index.
type Task interface {
	Do(ctx context.Context, run int64) error
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context, run int64) error

func (f TaskFunc) Do(ctx context.Context, run int64) error { return f(ctx, run) }

// Options configure the Runner.
type Options struct {
	Concurrency    int                         // number of worker goroutines
	Runs           int                         // runs to execute (0 means unlimited until Duration)
	Duration       time.Duration               // overall time limit (0 means no duration cap)
	RatePerSecond  int                         // runs started per second (0 means unlimited)
	Task           Task                        // run executor (required)
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Runs < 0 {
		o.Runs = 0
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst equal to rps to smooth pacing under concurrency.
			return rate.NewLimiter(rate.Limit(rps), rps)
		}
	}
}
