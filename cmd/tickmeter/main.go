package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/tickmeter/internal/config"
	"github.com/torosent/tickmeter/internal/httpclient"
	"github.com/torosent/tickmeter/internal/logger"
	"github.com/torosent/tickmeter/internal/metrics"
	"github.com/torosent/tickmeter/internal/output"
	"github.com/torosent/tickmeter/internal/runner"
	"github.com/torosent/tickmeter/internal/threshold"
	"github.com/torosent/tickmeter/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

var progressInterval = time.Second

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Flush(log)

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	client := httpclient.NewClient(cfg.Timeout, cfg.Concurrency)
	probe, err := newProbe(cfg, client)
	if err != nil {
		return err
	}
	work, err := newWorkload(cfg, client, tp.ShouldPropagate())
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	evaluator := threshold.NewEvaluator(thresholds)

	task := &instrumentedTask{
		cfg:       cfg,
		probe:     probe,
		workload:  work,
		tracer:    tp.Tracer(),
		log:       log,
		collector: collector,
		evaluator: evaluator,
	}
	if cfg.RecordsFile != "" {
		records, err := output.OpenRecordWriter(cfg.RecordsFile)
		if err != nil {
			return err
		}
		defer records.Close()
		task.records = records
	}

	var wrapped runner.Task = task
	wrapped = runner.WithLogging(wrapped, runner.ZapFailureLogger{Log: log})
	if cfg.Retries > 0 {
		wrapped = runner.WithRetry(wrapped, newRetryPolicy(cfg.Retries))
	}

	r := runner.New(runner.Options{
		Concurrency:   cfg.Concurrency,
		Runs:          cfg.Runs,
		Duration:      cfg.Duration,
		RatePerSecond: cfg.Rate,
		Task:          wrapped,
	})

	var progress *output.ProgressReporter
	if cfg.Progress && cfg.Output == config.OutputText {
		progress = output.NewProgressReporter(collector, progressInterval, stdout)
		progress.Start()
		defer progress.Stop()
	}

	log.Info("starting runs",
		zap.String("workload", task.name()),
		zap.Int("runs", cfg.Runs),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("probe", string(cfg.Probe.Type)),
	)

	collector.Start()
	result := r.Run(ctx)
	if progress != nil {
		// The status line must be gone before the report is written.
		progress.Stop()
		fmt.Fprintln(stdout)
	}
	stats := collector.Stats(result.Duration)
	results := evaluator.Evaluate(stats)

	if err := writeReport(stdout, cfg, stats, results); err != nil {
		return err
	}

	if !threshold.AllPassed(results) {
		failed := 0
		for _, res := range results {
			if !res.Pass {
				failed++
			}
		}
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	if result.Errors > 0 {
		return fmt.Errorf("%d runs failed", result.Errors)
	}
	return nil
}

func writeReport(w io.Writer, cfg *config.Config, stats metrics.Stats, results []threshold.Result) error {
	switch cfg.Output {
	case config.OutputJSON:
		return output.PrintJSONReport(w, stats, results)
	case config.OutputYAML:
		return output.PrintYAMLReport(w, stats, results)
	default:
		output.PrintReport(w, stats, results, cfg.NoColor)
		return nil
	}
}
