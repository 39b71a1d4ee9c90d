package instrument

import (
	"context"

	"github.com/torosent/tickmeter/internal/record"
	"github.com/torosent/tickmeter/internal/sampler"
)

// ScalarProbe adapts a function returning a single number.
func ScalarProbe(fn func(ctx context.Context) (float64, error)) sampler.Probe {
	return func(ctx context.Context) (sampler.Value, error) {
		v, err := fn(ctx)
		if err != nil {
			return sampler.Value{}, err
		}
		return sampler.Scalar(v), nil
	}
}

// ObjectProbe adapts a probe returning a nested object. Nested keys are
// flattened to dotted names before sampling; non-numeric leaves are dropped.
func ObjectProbe(fn func(ctx context.Context) (map[string]any, error)) sampler.Probe {
	return func(ctx context.Context) (sampler.Value, error) {
		obj, err := fn(ctx)
		if err != nil {
			return sampler.Value{}, err
		}
		return sampler.Fields(NumericFields(obj)), nil
	}
}

// NumericFields flattens obj and keeps its numeric leaves.
func NumericFields(obj map[string]any) map[string]float64 {
	flat := record.Flatten(obj)
	out := make(map[string]float64, len(flat))
	for k, v := range flat {
		if f, ok := record.ToFloat(v); ok {
			out[k] = f
		}
	}
	return out
}
