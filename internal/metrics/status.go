package metrics

import "sort"

// StatusBucket counts failed runs sharing a workload kind ("http" or "exit")
// and status or exit code.
type StatusBucket struct {
	Kind  string
	Code  string
	Count int
}

// FlattenStatusBuckets converts a nested kind->code map into rows sorted by
// descending count, then by kind and code for stability.
func FlattenStatusBuckets(buckets map[string]map[string]int) []StatusBucket {
	if len(buckets) == 0 {
		return nil
	}
	var rows []StatusBucket
	for kind, codes := range buckets {
		for code, count := range codes {
			rows = append(rows, StatusBucket{Kind: kind, Code: code, Count: count})
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		if rows[i].Kind != rows[j].Kind {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Code < rows[j].Code
	})
	return rows
}
