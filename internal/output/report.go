package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/tickmeter/internal/metrics"
	"github.com/torosent/tickmeter/internal/threshold"
)

// Summary is the machine-readable report: session statistics plus the
// outcome of every threshold.
type Summary struct {
	metrics.Stats `yaml:",inline"`
	Thresholds    []ThresholdResult `json:"thresholds,omitempty" yaml:"thresholds,omitempty"`
	Passed        bool              `json:"passed" yaml:"passed"`
}

// ThresholdResult is the serialized form of a threshold.Result.
type ThresholdResult struct {
	Threshold string  `json:"threshold" yaml:"threshold"`
	Kind      string  `json:"kind" yaml:"kind"`
	Metric    string  `json:"metric" yaml:"metric"`
	Aggregate string  `json:"aggregate,omitempty" yaml:"aggregate,omitempty"`
	Operator  string  `json:"operator" yaml:"operator"`
	Expected  float64 `json:"expected" yaml:"expected"`
	Actual    float64 `json:"actual" yaml:"actual"`
	Pass      bool    `json:"pass" yaml:"pass"`
	Message   string  `json:"message" yaml:"message"`
}

// NewSummary builds the report for stats and threshold results. Passed is
// false when any run failed or any threshold did not hold.
func NewSummary(stats metrics.Stats, results []threshold.Result) Summary {
	s := Summary{
		Stats:  stats,
		Passed: stats.Failures == 0 && threshold.AllPassed(results),
	}
	for _, r := range results {
		kind := "record"
		if r.Threshold.Kind == threshold.Aggregate {
			kind = "aggregate"
		}
		s.Thresholds = append(s.Thresholds, ThresholdResult{
			Threshold: r.Threshold.Raw,
			Kind:      kind,
			Metric:    r.Threshold.Metric,
			Aggregate: r.Threshold.Aggregate,
			Operator:  r.Threshold.Operator,
			Expected:  r.Threshold.Value,
			Actual:    r.Actual,
			Pass:      r.Pass,
			Message:   r.Message,
		})
	}
	return s
}

// PrintJSONReport outputs a JSON-formatted report.
func PrintJSONReport(w io.Writer, stats metrics.Stats, results []threshold.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewSummary(stats, results))
}

// PrintYAMLReport outputs a YAML-formatted report.
func PrintYAMLReport(w io.Writer, stats metrics.Stats, results []threshold.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewSummary(stats, results)); err != nil {
		return fmt.Errorf("encode yaml report: %w", err)
	}
	return enc.Close()
}

// PrintReport outputs a human-readable summary report.
func PrintReport(w io.Writer, stats metrics.Stats, results []threshold.Result, noColor bool) {
	p := newPalette(noColor)

	p.Header.Fprintln(w, "\n--- Tickmeter Results ---")
	row(w, p, "Runs:", fmt.Sprintf("%d", stats.Total))
	row(w, p, "Successful:", fmt.Sprintf("%d", stats.Successes))
	if stats.Failures > 0 {
		p.Label.Fprintf(w, "%-19s", "Failed:")
		p.Fail.Fprintf(w, "%d\n", stats.Failures)
	} else {
		row(w, p, "Failed:", "0")
	}
	if stats.ProbeFailures > 0 {
		p.Label.Fprintf(w, "%-19s", "Probe failures:")
		p.Warn.Fprintf(w, "%d\n", stats.ProbeFailures)
	}
	row(w, p, "Elapsed:", stats.Elapsed.Round(time.Millisecond).String())
	row(w, p, "Runs/sec:", fmt.Sprintf("%.2f", stats.RunsPerSec))

	p.Header.Fprintln(w, "\nRun Duration:")
	row(w, p, "  Min:", stats.MinDuration.String())
	row(w, p, "  Max:", stats.MaxDuration.String())
	row(w, p, "  Mean:", stats.MeanDuration.String())
	row(w, p, "  P50:", stats.P50Duration.String())
	row(w, p, "  P90:", stats.P90Duration.String())
	row(w, p, "  P95:", stats.P95Duration.String())
	row(w, p, "  P99:", stats.P99Duration.String())

	if len(stats.StatusBuckets) > 0 {
		p.Header.Fprintln(w, "\nStatus Buckets:")
		writeStatusBuckets(w, p, stats.StatusBuckets, "  ")
	}

	if len(stats.Errors) > 0 {
		p.Header.Fprintln(w, "\nErrors:")
		writeErrors(w, p, stats.Errors)
	}

	if names := fieldNames(stats); len(names) > 0 {
		p.Header.Fprintln(w, "\nFields (across runs):")
		width := 0
		for _, name := range names {
			if len(name) > width {
				width = len(name)
			}
		}
		for _, name := range names {
			s := stats.Fields[name]
			p.Label.Fprintf(w, "  %-*s  ", width, name)
			fmt.Fprintf(w, "n=%d mean=%s min=%s max=%s p95=%s\n",
				s.Count, formatNumber(s.Mean), formatNumber(s.Min), formatNumber(s.Max), formatNumber(s.P95))
		}
	}

	if len(results) > 0 {
		p.Header.Fprintln(w, "\nThresholds:")
		for _, r := range results {
			c := p.Pass
			if !r.Pass {
				c = p.Fail
			}
			c.Fprintf(w, "  %s\n", r.Message)
		}
	}
}

func row(w io.Writer, p palette, label, value string) {
	p.Label.Fprintf(w, "%-19s", label)
	p.Value.Fprintln(w, value)
}

// fieldNames lists the field summaries worth printing. Duration is already
// covered by the histogram section.
func fieldNames(stats metrics.Stats) []string {
	var names []string
	for _, name := range stats.FieldNames() {
		if name == "duration" {
			continue
		}
		names = append(names, name)
	}
	return names
}

func writeStatusBuckets(w io.Writer, p palette, buckets map[string]map[string]int, indent string) {
	rows := metrics.FlattenStatusBuckets(buckets)
	if len(rows) == 0 {
		fmt.Fprintf(w, "%sNone\n", indent)
		return
	}
	for _, r := range rows {
		p.Label.Fprintf(w, "%s%s %s: ", indent, strings.ToUpper(r.Kind), r.Code)
		p.Fail.Fprintf(w, "%d\n", r.Count)
	}
}

func writeErrors(w io.Writer, p palette, errs map[string]int) {
	names := make([]string, 0, len(errs))
	for name := range errs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if errs[names[i]] != errs[names[j]] {
			return errs[names[i]] > errs[names[j]]
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		p.Label.Fprintf(w, "  %s: ", name)
		p.Fail.Fprintf(w, "%d\n", errs[name])
	}
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) && v < 1e15 && v > -1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.3f", v)
}
