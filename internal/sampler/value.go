package sampler

import (
	"context"
	"fmt"
)

// Probe returns one measurement per call.
type Probe func(ctx context.Context) (Value, error)

// Value is a single probe result: either a bare number or a set of named
// numeric fields.
type Value struct {
	scalar   float64
	fields   map[string]float64
	isScalar bool
}

// Scalar wraps a bare number.
func Scalar(v float64) Value {
	return Value{scalar: v, isScalar: true}
}

// Fields wraps named numbers. The map is copied.
func Fields(m map[string]float64) Value {
	cp := make(map[string]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{fields: cp}
}

// IsScalar reports whether the value is a bare number.
func (v Value) IsScalar() bool { return v.isScalar }

// Float returns the bare number of a scalar value.
func (v Value) Float() float64 { return v.scalar }

// Field returns a named number of a field value.
func (v Value) Field(name string) (float64, bool) {
	f, ok := v.fields[name]
	return f, ok
}

// Len returns the number of fields, or 1 for a scalar.
func (v Value) Len() int {
	if v.isScalar {
		return 1
	}
	return len(v.fields)
}

func (v Value) String() string {
	if v.isScalar {
		return fmt.Sprintf("%g", v.scalar)
	}
	return fmt.Sprintf("%v", v.fields)
}

// ProbeError records the tick on which the probe failed.
type ProbeError struct {
	Tick int
	Err  error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe failed on tick %d: %v", e.Tick, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }
