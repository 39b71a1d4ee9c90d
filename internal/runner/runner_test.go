package runner_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/tickmeter/internal/runner"
)

// fakeTask simulates an instrumented run with fixed latency.
type fakeTask struct {
	latency   time.Duration
	calls     *int64
	failAfter int64 // if >0, fails after this many successful calls
}

func (f *fakeTask) Do(ctx context.Context, run int64) error {
	if f.calls != nil {
		atomic.AddInt64(f.calls, 1)
	}
	select {
	case <-time.After(f.latency):
	case <-ctx.Done():
		return ctx.Err()
	}
	if f.failAfter > 0 && atomic.LoadInt64(f.calls) > f.failAfter {
		return context.DeadlineExceeded // arbitrary error
	}
	return nil
}

// TestRunnerRespectsRuns ensures the run limit stops execution.
func TestRunnerRespectsRuns(t *testing.T) {
	var calls int64
	r := runner.New(runner.Options{
		Concurrency: 4,
		Runs:        25,
		Task:        &fakeTask{latency: 1 * time.Millisecond, calls: &calls},
	})
	res := r.Run(context.Background())
	if res.Total != 25 {
		t.Fatalf("expected total 25, got %d", res.Total)
	}
	if calls != 25 {
		t.Fatalf("expected task called 25 times, got %d", calls)
	}
}

// TestRunnerHonorsDuration ensures duration cap stops even if total not reached.
func TestRunnerHonorsDuration(t *testing.T) {
	var calls int64
	r := runner.New(runner.Options{
		Concurrency: 10,
		Duration:    50 * time.Millisecond,
		Runs:        0,
		Task:        &fakeTask{latency: 5 * time.Millisecond, calls: &calls},
	})
	start := time.Now()
	res := r.Run(context.Background())
	elapsed := time.Since(start)
	if elapsed < 50*time.Millisecond || elapsed > 250*time.Millisecond {
		// allow some scheduling fudge but not extremely off
		t.Fatalf("duration enforcement off: %s", elapsed)
	}
	if res.Duration <= 0 {
		t.Fatalf("result duration not recorded")
	}
	if res.Total != atomic.LoadInt64(&calls) {
		t.Fatalf("total %d does not match executed runs %d", res.Total, calls)
	}
	if res.Total <= 0 {
		t.Fatalf("expected some runs executed")
	}
}

// TestRateLimiterCapsThroughput ensures rate limiter restricts RPS.
func TestRateLimiterCapsThroughput(t *testing.T) {
	var calls int64
	rateLimit := 100 // runs per second theoretical maximum
	duration := 100 * time.Millisecond
	r := runner.New(runner.Options{
		Concurrency:    20,
		Duration:       duration,
		RatePerSecond:  rateLimit,
		Task:           &fakeTask{latency: 0, calls: &calls},
		LimiterFactory: func(rps int) *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), 1) },
	})
	res := r.Run(context.Background())
	// expected upper bound ~ rateLimit * (duration seconds)
	maxExpected := int(float64(rateLimit) * (float64(duration) / float64(time.Second)) * 1.20) // 20% slack
	if int(res.Total) > maxExpected {
		t.Fatalf("rate limiter exceeded: total=%d max=%d", res.Total, maxExpected)
	}
	if calls != res.Total {
		t.Fatalf("calls mismatch: %d vs %d", calls, res.Total)
	}
}

func TestRunnerAssignsUniqueRunIndexes(t *testing.T) {
	var mu sync.Mutex
	seen := map[int64]int{}
	r := runner.New(runner.Options{
		Concurrency: 3,
		Runs:        30,
		Task: runner.TaskFunc(func(ctx context.Context, run int64) error {
			mu.Lock()
			seen[run]++
			mu.Unlock()
			return nil
		}),
	})
	res := r.Run(context.Background())
	if res.Total != 30 {
		t.Fatalf("expected total 30, got %d", res.Total)
	}
	for i := int64(0); i < 30; i++ {
		if seen[i] != 1 {
			t.Fatalf("run %d executed %d times", i, seen[i])
		}
	}
}

func TestRunnerCountsErrors(t *testing.T) {
	r := runner.New(runner.Options{
		Runs: 6,
		Task: runner.TaskFunc(func(ctx context.Context, run int64) error {
			if run%2 == 0 {
				return errors.New("even run failed")
			}
			return nil
		}),
	})
	res := r.Run(context.Background())
	if res.Errors != 3 {
		t.Fatalf("expected 3 errors, got %d", res.Errors)
	}
}
