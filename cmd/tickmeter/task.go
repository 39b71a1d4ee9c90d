package main

import (
	"context"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/torosent/tickmeter/internal/config"
	"github.com/torosent/tickmeter/internal/instrument"
	"github.com/torosent/tickmeter/internal/logger"
	"github.com/torosent/tickmeter/internal/metrics"
	"github.com/torosent/tickmeter/internal/output"
	"github.com/torosent/tickmeter/internal/runner"
	"github.com/torosent/tickmeter/internal/sampler"
	"github.com/torosent/tickmeter/internal/threshold"
	"github.com/torosent/tickmeter/internal/workload"
)

// Bookkeeping keys added to every record.
const (
	idKey      = "id"
	runKey     = "run"
	attemptKey = "attempt"
)

// instrumentedTask runs the configured workload under instrument.Run and
// feeds the resulting record to the collector, the threshold evaluator and
// the records file.
type instrumentedTask struct {
	cfg       *config.Config
	probe     sampler.Probe
	workload  instrument.Workload
	tracer    trace.Tracer
	log       *zap.Logger
	collector *metrics.Collector
	evaluator *threshold.Evaluator
	records   *output.RecordWriter
}

func (t *instrumentedTask) name() string {
	return workload.Describe(t.cfg.Method, t.cfg.TargetURL, t.cfg.Command)
}

func (t *instrumentedTask) Do(ctx context.Context, run int64) error {
	id := ulid.Make().String()
	log := logger.WithRunID(t.log, id)

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	opts := instrument.Options{
		Probe:    t.probe,
		Interval: t.cfg.Probe.Interval,
		Key:      t.cfg.Key,
		Flatten:  t.cfg.Flatten,
		Logger:   log,
		Tracer:   t.tracer,
		Name:     t.name(),
		Index:    run,
	}
	rec, err := instrument.Run(logger.WithContext(ctx, log), opts, t.workload)
	if rec == nil {
		return err
	}
	rec[idKey] = id
	rec[runKey] = run
	rec[attemptKey] = runner.Attempt(ctx)

	t.collector.RecordRun(rec, err)
	t.evaluator.Observe(rec)
	if t.records != nil {
		if werr := t.records.Write(rec); werr != nil {
			log.Error("failed to write record", zap.String("path", t.records.Path()), zap.Error(werr))
		}
	}
	log.Debug("run finished", zap.Int64("run", run), zap.Any("duration_ms", rec["duration"]))
	return err
}
