package metrics

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/tickmeter/internal/record"
	"github.com/torosent/tickmeter/internal/stats"
)

// Record keys the collector understands.
const (
	durationKey   = "duration"
	statusCodeKey = "status_code"
	exitCodeKey   = "exit_code"
	probeErrorKey = "probe_error"
)

// Bookkeeping fields that are not worth summarizing across runs.
var skipFields = map[string]bool{
	"start":   true,
	"end":     true,
	"id":      true,
	"run":     true,
	"attempt": true,
}

// Collector aggregates the records of instrumented runs in a thread-safe manner.
type Collector struct {
	mu            sync.Mutex
	hist          *hdrhistogram.Histogram
	successes     int64
	failures      int64
	probeFailures int64
	minDuration   time.Duration
	maxDuration   time.Duration
	sumDuration   time.Duration
	errorsByType  map[string]int64
	statusBuckets map[string]map[string]int
	fields        map[string][]float64
	start         time.Time
}

// Stats represents aggregated metrics.
type Stats struct {
	Total         int64         `json:"total" yaml:"total"`
	Successes     int64         `json:"successes" yaml:"successes"`
	Failures      int64         `json:"failures" yaml:"failures"`
	ProbeFailures int64         `json:"probe_failures" yaml:"probe_failures"`
	MinDuration   time.Duration `json:"-" yaml:"-"`
	MaxDuration   time.Duration `json:"-" yaml:"-"`
	MeanDuration  time.Duration `json:"-" yaml:"-"`
	P50Duration   time.Duration `json:"-" yaml:"-"`
	P90Duration   time.Duration `json:"-" yaml:"-"`
	P95Duration   time.Duration `json:"-" yaml:"-"`
	P99Duration   time.Duration `json:"-" yaml:"-"`
	Elapsed       time.Duration `json:"-" yaml:"-"`
	RunsPerSec    float64       `json:"runs_per_sec" yaml:"runs_per_sec"`

	// JSON-friendly millisecond fields.
	MinDurationMs  float64 `json:"min_duration_ms" yaml:"min_duration_ms"`
	MaxDurationMs  float64 `json:"max_duration_ms" yaml:"max_duration_ms"`
	MeanDurationMs float64 `json:"mean_duration_ms" yaml:"mean_duration_ms"`
	P50DurationMs  float64 `json:"p50_duration_ms" yaml:"p50_duration_ms"`
	P90DurationMs  float64 `json:"p90_duration_ms" yaml:"p90_duration_ms"`
	P95DurationMs  float64 `json:"p95_duration_ms" yaml:"p95_duration_ms"`
	P99DurationMs  float64 `json:"p99_duration_ms" yaml:"p99_duration_ms"`
	ElapsedMs      float64 `json:"elapsed_ms" yaml:"elapsed_ms"`

	Errors        map[string]int            `json:"errors,omitempty" yaml:"errors,omitempty"`
	StatusBuckets map[string]map[string]int `json:"status_buckets,omitempty" yaml:"status_buckets,omitempty"`
	// Fields summarizes every numeric record field across runs, keyed by
	// its flattened name.
	Fields map[string]stats.Summary `json:"fields,omitempty" yaml:"fields,omitempty"`
}

func NewCollector() *Collector {
	// Track durations from 1µs up to 1h with 3 significant figures.
	h := hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3)
	return &Collector{
		hist:          h,
		errorsByType:  make(map[string]int64),
		statusBuckets: make(map[string]map[string]int),
		fields:        make(map[string][]float64),
		start:         time.Now(),
	}
}

// Start resets the clock used for throughput.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Elapsed returns the time since Start.
func (c *Collector) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Since(c.start)
}

// RecordRun adds one run's record and the error its workload returned.
func (c *Collector) RecordRun(rec map[string]any, err error) {
	flat := record.Flatten(rec)
	var duration time.Duration
	if ms, ok := record.ToFloat(flat[durationKey]); ok && ms > 0 {
		duration = time.Duration(ms * float64(time.Millisecond))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if duration > 0 {
		us := duration.Microseconds()
		if us < c.hist.LowestTrackableValue() {
			us = c.hist.LowestTrackableValue()
		}
		if us > c.hist.HighestTrackableValue() {
			us = c.hist.HighestTrackableValue()
		}
		_ = c.hist.RecordValue(us)
	}
	c.sumDuration += duration
	if c.successes+c.failures == 0 || duration < c.minDuration {
		c.minDuration = duration
	}
	if duration > c.maxDuration {
		c.maxDuration = duration
	}

	if err == nil {
		c.successes++
	} else {
		c.failures++
		c.errorsByType[ErrorLabel(err)]++
		if protocol, code, ok := statusOf(flat); ok {
			if c.statusBuckets[protocol] == nil {
				c.statusBuckets[protocol] = make(map[string]int)
			}
			c.statusBuckets[protocol][code]++
		}
	}

	probeFailed := false
	for key, v := range flat {
		if key == probeErrorKey || strings.HasPrefix(key, probeErrorKey+record.Separator) ||
			strings.Contains(key, record.Separator+probeErrorKey+record.Separator) {
			probeFailed = true
			continue
		}
		if skipFields[key] {
			continue
		}
		if f, ok := record.ToFloat(v); ok {
			c.fields[key] = append(c.fields[key], f)
		}
	}
	if probeFailed {
		c.probeFailures++
	}
}

func statusOf(flat map[string]any) (protocol, code string, ok bool) {
	if v, found := record.ToFloat(flat[statusCodeKey]); found {
		return "http", strconv.Itoa(int(v)), true
	}
	if v, found := record.ToFloat(flat[exitCodeKey]); found {
		return "exit", strconv.Itoa(int(v)), true
	}
	return "", "", false
}

// Stats computes and returns current aggregated statistics.
func (c *Collector) Stats(elapsed time.Duration) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.successes + c.failures
	st := Stats{
		Total:         total,
		Successes:     c.successes,
		Failures:      c.failures,
		ProbeFailures: c.probeFailures,
		MinDuration:   c.minDuration,
		MaxDuration:   c.maxDuration,
	}

	if total > 0 {
		st.MeanDuration = time.Duration(int64(c.sumDuration) / total)
	}

	if c.hist.TotalCount() > 0 {
		st.P50Duration = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		st.P90Duration = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		st.P95Duration = time.Duration(c.hist.ValueAtQuantile(95)) * time.Microsecond
		st.P99Duration = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	st.MinDurationMs = toMs(st.MinDuration)
	st.MaxDurationMs = toMs(st.MaxDuration)
	st.MeanDurationMs = toMs(st.MeanDuration)
	st.P50DurationMs = toMs(st.P50Duration)
	st.P90DurationMs = toMs(st.P90Duration)
	st.P95DurationMs = toMs(st.P95Duration)
	st.P99DurationMs = toMs(st.P99Duration)

	st.Elapsed = elapsed
	st.ElapsedMs = toMs(elapsed)
	if elapsed > 0 && total > 0 {
		st.RunsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(c.errorsByType) > 0 {
		st.Errors = make(map[string]int, len(c.errorsByType))
		for k, v := range c.errorsByType {
			st.Errors[k] = int(v)
		}
	}
	if len(c.statusBuckets) > 0 {
		st.StatusBuckets = make(map[string]map[string]int, len(c.statusBuckets))
		for protocol, codes := range c.statusBuckets {
			inner := make(map[string]int, len(codes))
			for code, n := range codes {
				inner[code] = n
			}
			st.StatusBuckets[protocol] = inner
		}
	}
	if len(c.fields) > 0 {
		st.Fields = make(map[string]stats.Summary, len(c.fields))
		for name, values := range c.fields {
			st.Fields[name] = stats.Summarize(values)
		}
	}

	return st
}

// FieldNames returns the summarized field names in sorted order.
func (s Stats) FieldNames() []string {
	names := make([]string, 0, len(s.Fields))
	for name := range s.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetErrorBreakdown returns a map of error labels to their counts.
func (c *Collector) GetErrorBreakdown() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string]int)
	for k, v := range c.errorsByType {
		result[k] = int(v)
	}
	return result
}

func toMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
