package probe

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/torosent/tickmeter/internal/record"
	"github.com/torosent/tickmeter/internal/sampler"
)

// ErrNoNumericData is returned when a payload holds nothing to sample.
var ErrNoNumericData = errors.New("probe: no numeric data")

// ErrNonFinite is returned when a payload carries NaN or an infinity.
var ErrNonFinite = errors.New("probe: non-finite value")

// parseValue turns a probe payload into a sample. With fields set, each name
// is read from its gjson path and missing paths are skipped. Without fields a
// bare number becomes a scalar and an object is flattened.
func parseValue(body []byte, fields map[string]string) (sampler.Value, error) {
	trimmed := strings.TrimSpace(string(body))
	if len(fields) == 0 {
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			if !finite(f) {
				return sampler.Value{}, fmt.Errorf("%w: %q", ErrNonFinite, trimmed)
			}
			return sampler.Scalar(f), nil
		}
	}
	if !gjson.Valid(trimmed) {
		return sampler.Value{}, errors.New("probe: payload is neither a number nor valid JSON")
	}

	out := map[string]float64{}
	if len(fields) > 0 {
		for name, path := range fields {
			f, ok, err := numeric(gjson.Get(trimmed, normalizePath(path)))
			if err != nil {
				return sampler.Value{}, fmt.Errorf("field %s: %w", name, err)
			}
			if ok {
				out[name] = f
			}
		}
	} else {
		doc := gjson.Parse(trimmed)
		f, ok, err := numeric(doc)
		if err != nil {
			return sampler.Value{}, err
		}
		if ok {
			return sampler.Scalar(f), nil
		}
		obj, ok := doc.Value().(map[string]interface{})
		if !ok {
			return sampler.Value{}, ErrNoNumericData
		}
		for k, v := range record.Flatten(obj) {
			f, ok, err := flatNumber(v)
			if err != nil {
				return sampler.Value{}, fmt.Errorf("field %s: %w", k, err)
			}
			if ok {
				out[k] = f
			}
		}
	}

	if len(out) == 0 {
		return sampler.Value{}, ErrNoNumericData
	}
	return sampler.Fields(out), nil
}

// numeric reads a number, a bool or a numeric string. Strings spelling NaN
// or an infinity are an error rather than a skipped field.
func numeric(r gjson.Result) (float64, bool, error) {
	switch r.Type {
	case gjson.Number:
		if !finite(r.Num) {
			return 0, false, ErrNonFinite
		}
		return r.Num, true, nil
	case gjson.True:
		return 1, true, nil
	case gjson.False:
		return 0, true, nil
	case gjson.String:
		return numericString(r.Str)
	default:
		return 0, false, nil
	}
}

// flatNumber reads a value of a flattened document. Bools are not samples
// here, unlike a selected field.
func flatNumber(v any) (float64, bool, error) {
	if s, ok := v.(string); ok {
		return numericString(s)
	}
	f, ok := record.ToFloat(v)
	if ok && !finite(f) {
		return 0, false, ErrNonFinite
	}
	return f, ok, nil
}

func numericString(s string) (float64, bool, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false, nil
	}
	if !finite(f) {
		return 0, false, fmt.Errorf("%w: %q", ErrNonFinite, s)
	}
	return f, true, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// normalizePath accepts "$.a.b" as well as gjson's native "a.b".
func normalizePath(path string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "$":
		return "@this"
	case strings.HasPrefix(path, "$."):
		return path[2:]
	default:
		return path
	}
}
