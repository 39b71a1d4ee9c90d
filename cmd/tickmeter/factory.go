package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/torosent/tickmeter/internal/config"
	"github.com/torosent/tickmeter/internal/httpclient"
	"github.com/torosent/tickmeter/internal/instrument"
	"github.com/torosent/tickmeter/internal/probe"
	"github.com/torosent/tickmeter/internal/runner"
	"github.com/torosent/tickmeter/internal/sampler"
	"github.com/torosent/tickmeter/internal/workload"
)

const (
	baseRetryDelay = 100 * time.Millisecond
	maxRetryDelay  = 5 * time.Second

	// 100ms << 6 already exceeds maxRetryDelay.
	maxBackoffShift = 6
)

// newProbe returns the configured probe, or nil when sampling is disabled.
func newProbe(cfg *config.Config, client *http.Client) (sampler.Probe, error) {
	switch cfg.Probe.Type {
	case config.ProbeNone, "":
		return nil, nil
	case config.ProbeRuntime:
		return probe.Runtime(), nil
	case config.ProbeHTTP:
		return probe.HTTPJSON(client, cfg.Probe.URL, cfg.Probe.Fields), nil
	case config.ProbeCommand:
		if len(cfg.Probe.Command) == 0 {
			return nil, errors.New("probe: command is required")
		}
		return probe.Command(cfg.Probe.Command[0], cfg.Probe.Command[1:]...), nil
	default:
		return nil, fmt.Errorf("probe: unsupported type %q", cfg.Probe.Type)
	}
}

func newWorkload(cfg *config.Config, client *http.Client, propagate bool) (instrument.Workload, error) {
	if len(cfg.Command) > 0 {
		return workload.Command(cfg.Command[0], cfg.Command[1:]...), nil
	}
	builder, err := httpclient.NewRequestBuilder(cfg)
	if err != nil {
		return nil, err
	}
	var opts []workload.HTTPOption
	if propagate {
		opts = append(opts, workload.WithTracePropagation())
	}
	return workload.HTTP(client, builder, opts...), nil
}

type jitterSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func newRetryPolicy(retries int) runner.RetryPolicy {
	source := &jitterSource{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}

	return runner.RetryPolicy{
		MaxAttempts: retries + 1,
		ShouldRetry: shouldRetry,
		DelayFunc: func(attempt int, err error) time.Duration {
			if attempt < 1 {
				attempt = 1
			}
			shift := attempt - 1
			if shift > maxBackoffShift {
				shift = maxBackoffShift
			}
			backoff := baseRetryDelay << uint(shift)
			if backoff > maxRetryDelay {
				backoff = maxRetryDelay
			}
			return backoff + source.jitter(backoff/2)
		},
	}
}

// shouldRetry retries throttled and server-side HTTP failures, command
// failures and transport errors, but never cancellation.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *runner.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return httpErr.StatusCode >= 500
	}
	return true
}

func (j *jitterSource) jitter(max time.Duration) time.Duration {
	if j == nil || max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.rnd.Int63n(int64(max)))
}
