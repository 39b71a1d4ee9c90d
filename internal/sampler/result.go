package sampler

import (
	"sort"

	"github.com/torosent/tickmeter/internal/stats"
)

// ProbeErrorKey is the record key under which a probe failure is reported.
const ProbeErrorKey = "probe_error"

// Result is the reduced output of one sampler run.
type Result struct {
	// Scalar summarizes bare-number samples; nil when the probe never
	// returned one.
	Scalar *stats.Summary
	// Fields summarizes each named field over the samples it appeared in.
	Fields map[string]stats.Summary
	// Ticks counts probe invocations, including a failed one.
	Ticks int
	// Samples counts successful probe invocations.
	Samples int
	// ProbeError is set when sampling ended because the probe failed.
	ProbeError *ProbeError
}

func reduce(samples []Value, ticks int, probeErr *ProbeError) *Result {
	res := &Result{
		Ticks:      ticks,
		Samples:    len(samples),
		ProbeError: probeErr,
	}

	var scalars []float64
	perField := map[string][]float64{}
	var order []string
	for _, v := range samples {
		if v.isScalar {
			scalars = append(scalars, v.scalar)
			continue
		}
		// Map iteration order does not matter: each field's slice is still
		// built in sample order.
		for name, f := range v.fields {
			if _, seen := perField[name]; !seen {
				order = append(order, name)
			}
			perField[name] = append(perField[name], f)
		}
	}

	if len(scalars) > 0 {
		s := stats.Summarize(scalars)
		res.Scalar = &s
	}
	if len(order) > 0 {
		res.Fields = make(map[string]stats.Summary, len(order))
		for _, name := range order {
			res.Fields[name] = stats.Summarize(perField[name])
		}
	}
	return res
}

// FieldNames returns the summarized field names in sorted order.
func (r *Result) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Map renders the result as a record fragment. A scalar summary is placed at
// the top level, field summaries are nested under their names, and a run
// without samples yields {"count": 0}.
func (r *Result) Map() map[string]any {
	out := map[string]any{}
	if r == nil {
		out["count"] = 0
		return out
	}

	if r.Scalar != nil {
		for k, v := range r.Scalar.Map() {
			out[k] = v
		}
	}
	for name, s := range r.Fields {
		out[name] = s.Map()
	}
	if r.Scalar == nil && len(r.Fields) == 0 {
		out["count"] = 0
	}
	if r.ProbeError != nil {
		out[ProbeErrorKey] = map[string]any{
			"message": r.ProbeError.Err.Error(),
			"tick":    r.ProbeError.Tick,
		}
	}
	return out
}
