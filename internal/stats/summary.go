// Package stats reduces a sequence of sampled values into summary statistics.
//
// The reduction is a pure function of its input. Values are folded in the
// order given, so the same sequence always yields bit-identical results.
//
// # Definitions
//
//   - Mean and variance use a running (Welford) update in input order.
//   - StdDev is the population standard deviation: sqrt(M2 / N).
//   - Percentiles interpolate linearly between the two closest ranks of the
//     sorted values, at rank idx = p * (N-1) with p in [0, 1].
package stats

import (
	"math"
	"sort"
)

// Summary describes one field of sampled values.
//
// When Count is zero every other field is meaningless and Map omits it.
type Summary struct {
	Count  int     `json:"count" yaml:"count"`
	Min    float64 `json:"min" yaml:"min"`
	Max    float64 `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	StdDev float64 `json:"stddev" yaml:"stddev"`
	Median float64 `json:"median" yaml:"median"`
	P90    float64 `json:"p90" yaml:"p90"`
	P95    float64 `json:"p95" yaml:"p95"`
	P99    float64 `json:"p99" yaml:"p99"`
}

// Summarize reduces values into a Summary. The input slice is not modified.
// NaN and infinite values are dropped before the reduction and do not count.
func Summarize(values []float64) Summary {
	values = finiteValues(values)
	n := len(values)
	if n == 0 {
		return Summary{}
	}

	s := Summary{Count: n, Min: values[0], Max: values[0]}
	var mean, m2 float64
	for i, v := range values {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		delta := v - mean
		mean += delta / float64(i+1)
		m2 += delta * (v - mean)
	}

	// Rounding can push the running mean a hair outside the observed range.
	s.Mean = clamp(mean, s.Min, s.Max)
	if m2 > 0 {
		s.StdDev = math.Sqrt(m2 / float64(n))
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	s.Median = Percentile(sorted, 0.50)
	s.P90 = Percentile(sorted, 0.90)
	s.P95 = Percentile(sorted, 0.95)
	s.P99 = Percentile(sorted, 0.99)
	return s
}

// Percentile returns the p-th quantile (0 <= p <= 1) of sorted values using
// linear interpolation at rank p*(N-1). It returns NaN for an empty slice.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	idx := p * float64(n-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	frac := idx - float64(lo)
	return clamp(sorted[lo]+(sorted[hi]-sorted[lo])*frac, sorted[lo], sorted[hi])
}

// Map renders the summary as a record fragment. An empty summary yields only
// {"count": 0}: absent keys mean "no data", not zero.
func (s Summary) Map() map[string]any {
	if s.Count == 0 {
		return map[string]any{"count": 0}
	}
	return map[string]any{
		"count":  s.Count,
		"min":    s.Min,
		"max":    s.Max,
		"mean":   s.Mean,
		"stddev": s.StdDev,
		"median": s.Median,
		"p90":    s.P90,
		"p95":    s.P95,
		"p99":    s.P99,
	}
}

// finiteValues returns values unchanged when every entry is finite and a
// filtered copy otherwise.
func finiteValues(values []float64) []float64 {
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out := make([]float64, i, len(values)-1)
			copy(out, values[:i])
			for _, w := range values[i+1:] {
				if !math.IsNaN(w) && !math.IsInf(w, 0) {
					out = append(out, w)
				}
			}
			return out
		}
	}
	return values
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
