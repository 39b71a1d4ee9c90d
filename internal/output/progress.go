package output

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/torosent/tickmeter/internal/metrics"
)

// ProgressReporter rewrites a single status line while runs are in flight.
type ProgressReporter struct {
	collector *metrics.Collector
	ticker    *time.Ticker
	done      chan struct{}
	finished  chan struct{}
	writer    io.Writer
	active    int32
	start     time.Time
}

// NewProgressReporter creates a progress reporter that updates at the given interval.
func NewProgressReporter(collector *metrics.Collector, interval time.Duration, writer io.Writer) *ProgressReporter {
	if writer == nil {
		writer = io.Discard
	}
	return &ProgressReporter{
		collector: collector,
		ticker:    time.NewTicker(interval),
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
		writer:    writer,
		start:     time.Now(),
	}
}

// Start begins displaying progress updates in a background goroutine.
func (p *ProgressReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return
	}
	go p.run()
}

// Stop halts progress updates. It is safe to call Stop without Start.
func (p *ProgressReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		p.ticker.Stop()
		<-p.finished
		return
	}
	p.ticker.Stop()
}

func (p *ProgressReporter) run() {
	defer close(p.finished)
	for {
		select {
		case <-p.ticker.C:
			fmt.Fprint(p.writer, progressLine(p.collector.Stats(time.Since(p.start))))
		case <-p.done:
			return
		}
	}
}

func progressLine(stats metrics.Stats) string {
	line := fmt.Sprintf("\rRuns: %d | Successes: %d | Failures: %d | Runs/s: %.1f",
		stats.Total, stats.Successes, stats.Failures, stats.RunsPerSec)
	if stats.Total > 0 {
		line += fmt.Sprintf(" | P95 %.1fms", stats.P95DurationMs)
	}
	if stats.ProbeFailures > 0 {
		line += fmt.Sprintf(" | Probe failures: %d", stats.ProbeFailures)
	}
	return line
}
