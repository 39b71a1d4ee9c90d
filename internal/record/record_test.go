package record_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/torosent/tickmeter/internal/record"
)

func TestFlattenNested(t *testing.T) {
	in := map[string]any{
		"duration": 12.0,
		"mem": map[string]any{
			"heap": map[string]any{"alloc": 1.0, "objects": 2},
			"gc":   3,
		},
		"probe": record.Record{"count": 0},
		"empty": map[string]any{},
	}
	got := record.Flatten(in)
	want := map[string]any{
		"duration":         12.0,
		"mem.heap.alloc":   1.0,
		"mem.heap.objects": 2,
		"mem.gc":           3,
		"probe.count":      0,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Flatten mismatch:\n got  %v\n want %v", got, want)
	}
}

func TestFlattenKeepsNonMapValues(t *testing.T) {
	in := map[string]any{"tags": []string{"a", "b"}, "name": "x"}
	got := record.Flatten(in)
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("expected values unchanged, got %v", got)
	}
}

func TestMergeTopLevel(t *testing.T) {
	rec := record.Record{"start": int64(1)}
	record.Merge(rec, map[string]any{"count": 2}, "")
	if rec["count"] != 2 || rec["start"] != int64(1) {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestMergeUnderKey(t *testing.T) {
	rec := record.Record{}
	record.Merge(rec, map[string]any{"count": 2}, "memory")
	record.Merge(rec, map[string]any{"mean": 1.5}, "memory")

	sub, ok := rec["memory"].(record.Record)
	if !ok {
		t.Fatalf("expected sub-record, got %T", rec["memory"])
	}
	if sub["count"] != 2 || sub["mean"] != 1.5 {
		t.Fatalf("unexpected sub-record %v", sub)
	}
}

func TestMergeIntoPlainMap(t *testing.T) {
	rec := record.Record{"memory": map[string]any{"count": 1}}
	record.Merge(rec, map[string]any{"max": 9.0}, "memory")
	sub := rec["memory"].(map[string]any)
	if sub["count"] != 1 || sub["max"] != 9.0 {
		t.Fatalf("unexpected sub-map %v", sub)
	}
}

func TestMergeKeepLeavesExistingKeys(t *testing.T) {
	rec := record.Record{"duration": int64(12), "status_code": 200}
	skipped := record.MergeKeep(rec, map[string]any{
		"duration":    map[string]any{"count": 3},
		"status_code": map[string]any{"count": 3},
		"error":       map[string]any{"count": 3},
		"load":        map[string]any{"count": 3},
	}, "", "error")

	if rec["duration"] != int64(12) || rec["status_code"] != 200 {
		t.Fatalf("existing keys overwritten: %v", rec)
	}
	if _, ok := rec["error"]; ok {
		t.Fatalf("reserved key written: %v", rec)
	}
	if _, ok := rec["load"]; !ok {
		t.Fatalf("new key missing: %v", rec)
	}
	want := []string{"duration", "error", "status_code"}
	if len(skipped) != len(want) {
		t.Fatalf("skipped = %v, want %v", skipped, want)
	}
	for i := range want {
		if skipped[i] != want[i] {
			t.Fatalf("skipped = %v, want %v", skipped, want)
		}
	}
}

func TestMergeKeepUnderKeyIgnoresReserved(t *testing.T) {
	rec := record.Record{"error": "x"}
	skipped := record.MergeKeep(rec, map[string]any{"error": 1.0}, "probe", "error")
	if len(skipped) != 0 {
		t.Fatalf("skipped = %v, want none", skipped)
	}
	if sub := rec["probe"].(record.Record); sub["error"] != 1.0 {
		t.Fatalf("unexpected sub-record %v", sub)
	}
}

func TestSubReturnsSameRecordForEmptyKey(t *testing.T) {
	rec := record.New()
	sub := record.Sub(rec, "")
	sub["x"] = 1
	if rec["x"] != 1 {
		t.Fatalf("expected write-through for empty key")
	}
}

func TestNumber(t *testing.T) {
	rec := map[string]any{
		"duration": int64(25),
		"mem":      map[string]any{"heap": record.Record{"p95": 7.5}},
		"flat.key": float32(2),
		"name":     "x",
	}
	tests := []struct {
		key  string
		want float64
		ok   bool
	}{
		{"duration", 25, true},
		{"mem.heap.p95", 7.5, true},
		{"flat.key", 2, true},
		{"name", 0, false},
		{"missing", 0, false},
		{"mem.heap.p95.deeper", 0, false},
	}
	for _, tt := range tests {
		got, ok := record.Number(rec, tt.key)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Number(%q) = %v, %v; want %v, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestErrorObject(t *testing.T) {
	if record.ErrorObject(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
	obj := record.ErrorObject(errors.New("boom"))
	if obj["message"] != "boom" {
		t.Fatalf("unexpected message %v", obj["message"])
	}
	if obj["type"] != "*errors.errorString" {
		t.Fatalf("unexpected type %v", obj["type"])
	}
}
