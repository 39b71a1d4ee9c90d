// Package threshold evaluates pass/fail assertions over run records and
// aggregated run statistics.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/torosent/tickmeter/internal/metrics"
	"github.com/torosent/tickmeter/internal/record"
	"github.com/torosent/tickmeter/internal/stats"
)

// Kind tells where a threshold takes its actual value from.
type Kind int

const (
	// PerRecord thresholds ("duration < 500") are checked against every
	// run's record. The threshold passes only if every run passes.
	PerRecord Kind = iota
	// Aggregate thresholds ("runs:p95 < 500") are checked once against the
	// statistics of the whole session.
	Aggregate
)

// Built-in aggregate metrics. Any other aggregate metric names a numeric
// record field summarized by the collector.
const (
	MetricRuns        = "runs"
	MetricRunsFailed  = "runs_failed"
	MetricProbeFailed = "probe_failed"
)

var (
	aggregatePattern = regexp.MustCompile(`^([A-Za-z0-9_.\-]+):([a-z0-9]+)\s*([<>=!]+)\s*(\S+)$`)
	recordPattern    = regexp.MustCompile(`^([A-Za-z0-9_.\-]+)\s*([<>=!]+)\s*(\S+)$`)
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Kind      Kind
	Metric    string // record key for PerRecord, metric name for Aggregate
	Aggregate string // e.g. "p95", "mean", "rate"; empty for PerRecord
	Operator  string // "<", "<=", ">", ">=", "=="
	Value     float64
	Raw       string
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

// Parse parses a threshold string. Supported forms:
//
//	duration < 500              per-record, checked against every run
//	load.heap_alloc.p95 <= 2e8  per-record, dotted key into the record
//	runs:p95 < 800              duration percentile across runs, in ms
//	runs:rate > 10              runs per second
//	runs_failed:rate < 0.01     failed run ratio
//	probe_failed:count == 0     runs whose probe failed
//	status_code:max < 400       summary of a record field across runs
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	var t Threshold
	var valueStr string
	if m := aggregatePattern.FindStringSubmatch(s); m != nil {
		t = Threshold{Kind: Aggregate, Metric: m[1], Aggregate: m[2], Operator: m[3]}
		valueStr = m[4]
		if err := validateAggregate(t.Metric, t.Aggregate); err != nil {
			return Threshold{}, err
		}
	} else if m := recordPattern.FindStringSubmatch(s); m != nil {
		t = Threshold{Kind: PerRecord, Metric: m[1], Operator: m[2]}
		valueStr = m[3]
	} else {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected 'key op value' or 'metric:aggregate op value', e.g. 'duration < 500')", s)
	}

	if !isValidOperator(t.Operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", t.Operator)
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}
	t.Value = value
	t.Raw = s
	return t, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}

	result := make([]Threshold, 0, len(thresholds))
	var errors []string

	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errors = append(errors, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}

	if len(errors) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errors, "; "))
	}

	return result, nil
}

func validateAggregate(metric, aggregate string) error {
	var valid []string
	switch metric {
	case MetricRuns:
		valid = []string{"p50", "p90", "p95", "p99", "avg", "mean", "min", "max", "count", "rate"}
	case MetricRunsFailed, MetricProbeFailed:
		valid = []string{"count", "rate"}
	default:
		valid = []string{"count", "min", "max", "avg", "mean", "stddev", "median", "p50", "p90", "p95", "p99"}
	}
	for _, v := range valid {
		if aggregate == v {
			return nil
		}
	}
	return fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(valid, ", "))
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

// observation tracks a per-record threshold across runs.
type observation struct {
	seen   int
	failed int
	worst  float64
}

// Evaluator evaluates thresholds against run records and collected metrics.
// Observe may be called concurrently.
type Evaluator struct {
	thresholds []Threshold

	mu       sync.Mutex
	observed []observation
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
		observed:   make([]observation, len(thresholds)),
	}
}

// Observe checks one run's record against the per-record thresholds.
// Records without the threshold's key are ignored.
func (e *Evaluator) Observe(rec map[string]any) {
	if len(e.thresholds) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for i, t := range e.thresholds {
		if t.Kind != PerRecord {
			continue
		}
		actual, ok := record.Number(rec, t.Metric)
		if !ok {
			continue
		}
		obs := &e.observed[i]
		if obs.seen == 0 || worse(actual, obs.worst, t) {
			obs.worst = actual
		}
		obs.seen++
		if !compareValues(actual, t.Operator, t.Value) {
			obs.failed++
		}
	}
}

// worse reports whether candidate is further from passing t than current.
func worse(candidate, current float64, t Threshold) bool {
	switch t.Operator {
	case "<", "<=":
		return candidate > current
	case ">", ">=":
		return candidate < current
	default:
		return math.Abs(candidate-t.Value) > math.Abs(current-t.Value)
	}
}

// Evaluate returns one result per threshold, in the order they were given.
func (e *Evaluator) Evaluate(s metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	results := make([]Result, 0, len(e.thresholds))
	for i, t := range e.thresholds {
		if t.Kind == PerRecord {
			results = append(results, evaluateRecord(t, e.observed[i]))
			continue
		}
		results = append(results, evaluateAggregate(t, s))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateRecord(t Threshold, obs observation) Result {
	if obs.seen == 0 {
		return Result{
			Threshold: t,
			Message:   fmt.Sprintf("error: no run reported %q", t.Metric),
		}
	}
	pass := obs.failed == 0
	message := fmt.Sprintf("%s %s: worst %.2f %s %.2f", mark(pass), t.Raw, obs.worst, t.Operator, t.Value)
	if !pass {
		message += fmt.Sprintf(" (%d of %d runs failed)", obs.failed, obs.seen)
	}
	return Result{Threshold: t, Actual: obs.worst, Pass: pass, Message: message}
}

func evaluateAggregate(t Threshold, s metrics.Stats) Result {
	actual, err := extractMetricValue(t, s)
	if err != nil {
		return Result{
			Threshold: t,
			Message:   fmt.Sprintf("error: %v", err),
		}
	}

	pass := compareValues(actual, t.Operator, t.Value)
	message := fmt.Sprintf("%s %s: %.2f %s %.2f", mark(pass), t.Raw, actual, t.Operator, t.Value)
	return Result{Threshold: t, Actual: actual, Pass: pass, Message: message}
}

func mark(pass bool) string {
	if pass {
		return "✓"
	}
	return "✗"
}

func extractMetricValue(t Threshold, s metrics.Stats) (float64, error) {
	switch t.Metric {
	case MetricRuns:
		return extractRunMetric(t.Aggregate, s)
	case MetricRunsFailed:
		return ratio(t.Aggregate, s.Failures, s.Total)
	case MetricProbeFailed:
		return ratio(t.Aggregate, s.ProbeFailures, s.Total)
	default:
		summary, ok := s.Fields[t.Metric]
		if !ok {
			return 0, fmt.Errorf("no run reported %q", t.Metric)
		}
		return extractFieldMetric(t.Aggregate, summary)
	}
}

func extractRunMetric(aggregate string, s metrics.Stats) (float64, error) {
	switch aggregate {
	case "p50":
		return s.P50DurationMs, nil
	case "p90":
		return s.P90DurationMs, nil
	case "p95":
		return s.P95DurationMs, nil
	case "p99":
		return s.P99DurationMs, nil
	case "avg", "mean":
		return s.MeanDurationMs, nil
	case "min":
		return s.MinDurationMs, nil
	case "max":
		return s.MaxDurationMs, nil
	case "count":
		return float64(s.Total), nil
	case "rate":
		return s.RunsPerSec, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for runs", aggregate)
	}
}

func ratio(aggregate string, n, total int64) (float64, error) {
	switch aggregate {
	case "count":
		return float64(n), nil
	case "rate":
		if total == 0 {
			return 0, nil
		}
		return float64(n) / float64(total), nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q (use 'count' or 'rate')", aggregate)
	}
}

func extractFieldMetric(aggregate string, s stats.Summary) (float64, error) {
	switch aggregate {
	case "count":
		return float64(s.Count), nil
	case "min":
		return s.Min, nil
	case "max":
		return s.Max, nil
	case "avg", "mean":
		return s.Mean, nil
	case "stddev":
		return s.StdDev, nil
	case "median", "p50":
		return s.Median, nil
	case "p90":
		return s.P90, nil
	case "p95":
		return s.P95, nil
	case "p99":
		return s.P99, nil
	default:
		return 0, fmt.Errorf("unsupported aggregate %q for a record field", aggregate)
	}
}

func compareValues(actual float64, operator string, expected float64) bool {
	// Handle floating point comparison with small epsilon
	epsilon := 1e-9

	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
