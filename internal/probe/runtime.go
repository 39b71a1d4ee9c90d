package probe

import (
	"context"
	"runtime"

	"github.com/torosent/tickmeter/internal/sampler"
)

// Field names reported by Runtime.
const (
	FieldHeapAlloc   = "heap_alloc"
	FieldHeapObjects = "heap_objects"
	FieldGoroutines  = "goroutines"
	FieldNumGC       = "num_gc"
)

// Runtime samples the current process: heap bytes in use, live heap objects,
// goroutine count and completed GC cycles.
func Runtime() sampler.Probe {
	return func(ctx context.Context) (sampler.Value, error) {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		return sampler.Fields(map[string]float64{
			FieldHeapAlloc:   float64(ms.HeapAlloc),
			FieldHeapObjects: float64(ms.HeapObjects),
			FieldGoroutines:  float64(runtime.NumGoroutine()),
			FieldNumGC:       float64(ms.NumGC),
		}), nil
	}
}
