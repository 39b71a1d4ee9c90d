// Package instrument wraps a unit of work with timing bookkeeping and an
// optional periodic sampler, producing one record per invocation.
//
// A record always carries start, end and duration (unix ms). When a probe is
// configured, the sampler's summary statistics are merged into the record,
// at the top level or under Options.Key. Workloads may write their own
// metrics into the record they are handed.
package instrument

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/tickmeter/internal/logger"
	"github.com/torosent/tickmeter/internal/record"
	"github.com/torosent/tickmeter/internal/recorder"
	"github.com/torosent/tickmeter/internal/sampler"
	"github.com/torosent/tickmeter/internal/tracing"
)

// ErrorKey holds the workload error object in a record.
const ErrorKey = "error"

// Workload is the instrumented unit of work. rec is the invocation's record;
// anything the workload stores there is kept as self-reported metrics.
type Workload func(ctx context.Context, rec record.Record) error

// IntervalFunc resolves the sampling interval right before the sampler is
// built.
type IntervalFunc func(ctx context.Context) (time.Duration, error)

// Options controls a single instrumented invocation.
type Options struct {
	// Probe is sampled while the workload runs. Nil disables sampling.
	Probe    sampler.Probe
	Interval time.Duration
	// IntervalFunc, when set, takes precedence over Interval.
	IntervalFunc IntervalFunc
	// Key nests the sampler output under rec[Key].
	Key     string
	Flatten bool

	// Logger defaults to the logger carried by ctx.
	Logger *zap.Logger
	Tracer trace.Tracer
	// Name and Index label the run span.
	Name  string
	Index int64
	// Clock overrides the recorder's time source.
	Clock recorder.Clock
}

// Run instruments fn. The workload's error is recorded under "error" and
// returned unchanged. Bookkeeping runs on every exit path; a panicking
// workload is re-panicked once the record is complete.
func Run(ctx context.Context, opts Options, fn Workload) (rec record.Record, err error) {
	if fn == nil {
		return nil, errors.New("instrument: nil workload")
	}
	log := opts.Logger
	if log == nil {
		log = logger.FromContext(ctx, zap.NewNop())
	}

	var s *sampler.Sampler
	if opts.Probe != nil {
		interval, ierr := resolveInterval(ctx, opts)
		if ierr != nil {
			return nil, ierr
		}
		s = sampler.New(opts.Probe, interval, sampler.WithLogger(log))
	}

	rec = record.New()
	if opts.Tracer != nil {
		var span trace.Span
		ctx, span = tracing.StartRunSpan(ctx, opts.Tracer, opts.Name, opts.Index)
		defer func() {
			tracing.EndSpan(span, err, tracing.RecordAttributes(rec)...)
		}()
	}

	if s != nil {
		if serr := s.Start(ctx); serr != nil {
			return nil, fmt.Errorf("instrument: %w", serr)
		}
	}

	clock := recorder.New(opts.Clock)
	clock.Start(rec)
	defer func() {
		r := recover()
		clock.End(rec)
		if s != nil {
			mergeSamples(rec, s, opts.Key, log)
		}
		switch {
		case r != nil:
			rec[ErrorKey] = map[string]any{"message": fmt.Sprint(r), "type": "panic"}
		case err != nil:
			rec[ErrorKey] = record.ErrorObject(err)
		}
		if opts.Flatten {
			rec = record.Record(record.Flatten(rec))
		}
		if r != nil {
			panic(r)
		}
	}()

	err = fn(ctx, rec)
	return rec, err
}

// Call is Run for workloads that also produce a value.
func Call[T any](ctx context.Context, opts Options, fn func(ctx context.Context, rec record.Record) (T, error)) (T, record.Record, error) {
	var out T
	rec, err := Run(ctx, opts, func(ctx context.Context, rec record.Record) error {
		v, err := fn(ctx, rec)
		out = v
		return err
	})
	return out, rec, err
}

func resolveInterval(ctx context.Context, opts Options) (time.Duration, error) {
	if opts.IntervalFunc == nil {
		return opts.Interval, nil
	}
	d, err := opts.IntervalFunc(ctx)
	if err != nil {
		return 0, fmt.Errorf("instrument: resolve interval: %w", err)
	}
	return d, nil
}

func mergeSamples(rec record.Record, s *sampler.Sampler, key string, log *zap.Logger) {
	res, err := s.Finish()
	if err != nil {
		log.Warn("sampler finish failed", zap.Error(err))
		return
	}
	if res.ProbeError != nil {
		log.Warn("probe failed, sampling stopped early",
			zap.Int("tick", res.ProbeError.Tick),
			zap.Int("samples", res.Samples),
			zap.Error(res.ProbeError.Err),
		)
	}
	// Timing, error and self-reported values win over sampled fields.
	if skipped := record.MergeKeep(rec, res.Map(), key, ErrorKey); len(skipped) > 0 {
		log.Warn("sampled fields collide with record keys, keeping record values",
			zap.Strings("fields", skipped),
		)
	}
}
