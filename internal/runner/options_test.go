package runner

import (
	"context"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func TestOptionsNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Options
		want Options
	}{
		{"zero value", Options{}, Options{Concurrency: 1}},
		{
			"negatives clamp",
			Options{Concurrency: -5, Runs: -10, Duration: -time.Second, RatePerSecond: -1},
			Options{Concurrency: 1},
		},
		{
			"valid values kept",
			Options{Concurrency: 10, Runs: 100, Duration: time.Minute, RatePerSecond: 50},
			Options{Concurrency: 10, Runs: 100, Duration: time.Minute, RatePerSecond: 50},
		},
		{
			"unlimited runs with a duration",
			Options{Concurrency: 2, Duration: 5 * time.Second},
			Options{Concurrency: 2, Duration: 5 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.normalize()
			if got.LimiterFactory == nil {
				t.Fatal("LimiterFactory not defaulted")
			}
			if got.Concurrency != tt.want.Concurrency || got.Runs != tt.want.Runs ||
				got.Duration != tt.want.Duration || got.RatePerSecond != tt.want.RatePerSecond {
				t.Errorf("normalize() = {c:%d runs:%d d:%s rps:%d}, want {c:%d runs:%d d:%s rps:%d}",
					got.Concurrency, got.Runs, got.Duration, got.RatePerSecond,
					tt.want.Concurrency, tt.want.Runs, tt.want.Duration, tt.want.RatePerSecond)
			}
		})
	}
}

func TestOptionsKeepInjectedLimiter(t *testing.T) {
	calls := 0
	opts := Options{LimiterFactory: func(rps int) *rate.Limiter {
		calls++
		return rate.NewLimiter(rate.Limit(rps), 1)
	}}
	opts.normalize()
	if l := opts.LimiterFactory(3); l.Burst() != 1 || calls != 1 {
		t.Fatalf("injected factory replaced: burst=%d calls=%d", l.Burst(), calls)
	}
}

func TestDefaultLimiterPacing(t *testing.T) {
	opts := Options{}
	opts.normalize()

	for _, rps := range []int{0, -3} {
		if l := opts.LimiterFactory(rps); l.Limit() != rate.Inf {
			t.Errorf("LimiterFactory(%d).Limit() = %v, want Inf", rps, l.Limit())
		}
	}
	l := opts.LimiterFactory(20)
	if l.Limit() != 20 || l.Burst() != 20 {
		t.Errorf("LimiterFactory(20) = limit %v burst %d, want 20/20", l.Limit(), l.Burst())
	}
}

func TestTaskFuncPassesRunIndex(t *testing.T) {
	var got int64 = -1
	task := TaskFunc(func(ctx context.Context, run int64) error {
		got = run
		return nil
	})
	if err := task.Do(context.Background(), 41); err != nil || got != 41 {
		t.Fatalf("Do() = %v with run %d, want nil with run 41", err, got)
	}
}
