// Package recorder stamps start, end and duration onto a metrics record.
package recorder

import (
	"time"

	"github.com/torosent/tickmeter/internal/record"
)

// Record keys written by the recorder. Values are unix milliseconds.
const (
	StartKey    = "start"
	EndKey      = "end"
	DurationKey = "duration"
)

// Clock returns the current time.
type Clock func() time.Time

// Recorder writes timing fields. The zero value uses time.Now.
type Recorder struct {
	Now Clock
}

// New returns a recorder using the given clock, or time.Now when nil.
func New(now Clock) *Recorder {
	return &Recorder{Now: now}
}

func (r *Recorder) millis() int64 {
	now := time.Now
	if r != nil && r.Now != nil {
		now = r.Now
	}
	return now().UnixMilli()
}

// Start stamps rec["start"].
func (r *Recorder) Start(rec record.Record) {
	rec[StartKey] = r.millis()
}

// End stamps rec["end"] and rec["duration"] = end - start. Calling End
// without Start is a caller error; duration is then computed against zero.
func (r *Recorder) End(rec record.Record) {
	end := r.millis()
	rec[EndKey] = end
	start, _ := rec[StartKey].(int64)
	rec[DurationKey] = end - start
}

var defaultRecorder = &Recorder{}

// Start stamps rec with the wall clock.
func Start(rec record.Record) { defaultRecorder.Start(rec) }

// End stamps rec with the wall clock.
func End(rec record.Record) { defaultRecorder.End(rec) }
