// Package record defines the metrics record produced for one instrumented
// invocation and the helpers used to merge and flatten it.
package record

import (
	"fmt"
	"sort"
	"strings"
)

// Separator joins nested keys when a record is flattened.
const Separator = "."

// Record maps a metric name to a number, a nested Record, or an error object.
type Record map[string]any

// New returns an empty record.
func New() Record {
	return Record{}
}

// Merge copies src into dst. With an empty key the fields land at the top
// level; otherwise they are placed under dst[key], merging into an existing
// sub-record when one is already there.
func Merge(dst Record, src map[string]any, key string) {
	if dst == nil || len(src) == 0 {
		return
	}
	target := map[string]any(dst)
	if key != "" {
		target = subMap(dst, key)
	}
	for k, v := range src {
		target[k] = v
	}
}

// MergeKeep is Merge without overwriting. Keys already present in the target
// or listed in reserved keep their value; the skipped keys are returned
// sorted.
func MergeKeep(dst Record, src map[string]any, key string, reserved ...string) []string {
	if dst == nil || len(src) == 0 {
		return nil
	}
	target := map[string]any(dst)
	if key != "" {
		target = subMap(dst, key)
	}
	var skipped []string
	for k, v := range src {
		if _, taken := target[k]; taken || (key == "" && contains(reserved, k)) {
			skipped = append(skipped, k)
			continue
		}
		target[k] = v
	}
	sort.Strings(skipped)
	return skipped
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Sub returns the sub-record stored under key, creating it if needed. An
// empty key returns rec itself.
func Sub(rec Record, key string) Record {
	if key == "" {
		return rec
	}
	return Record(subMap(rec, key))
}

func subMap(rec Record, key string) map[string]any {
	switch existing := rec[key].(type) {
	case Record:
		return existing
	case map[string]any:
		return existing
	}
	sub := Record{}
	rec[key] = sub
	return sub
}

// Flatten joins nested maps into a single level using dotted keys, e.g.
// {"mem": {"heap": 1}} becomes {"mem.heap": 1}. Non-map values are kept as
// they are. An empty nested map disappears.
func Flatten(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	flattenInto(out, "", m)
	return out
}

func flattenInto(out map[string]any, prefix string, m map[string]any) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + Separator + k
		}
		switch nested := v.(type) {
		case Record:
			flattenInto(out, key, nested)
		case map[string]any:
			flattenInto(out, key, nested)
		default:
			out[key] = v
		}
	}
}

// Number looks up a dotted key in rec and converts it to float64.
func Number(rec map[string]any, key string) (float64, bool) {
	if v, ok := rec[key]; ok {
		return ToFloat(v)
	}
	// Walk nested maps for records that have not been flattened.
	parts := strings.Split(key, Separator)
	var cur any = rec
	for _, part := range parts {
		switch m := cur.(type) {
		case Record:
			cur = m[part]
		case map[string]any:
			cur = m[part]
		default:
			return 0, false
		}
	}
	return ToFloat(cur)
}

// ToFloat converts the numeric kinds that appear in records to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint:
		return float64(n), true
	default:
		return 0, false
	}
}

// Keys returns the sorted top-level keys of rec.
func Keys(rec map[string]any) []string {
	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ErrorObject describes a workload error inside a record.
func ErrorObject(err error) map[string]any {
	if err == nil {
		return nil
	}
	return map[string]any{
		"message": err.Error(),
		"type":    fmt.Sprintf("%T", err),
	}
}
