// Package metrics aggregates the records of many instrumented runs.
//
// A [Collector] is fed one record per run together with the error the
// workload returned:
//
//	collector := metrics.NewCollector()
//	collector.Start()
//	collector.RecordRun(rec, err)
//	stats := collector.Stats(collector.Elapsed())
//
// Run durations go into an HDR histogram for percentiles. Failed runs are
// counted by friendly error name and, when the record carries a status_code
// or exit_code, by status bucket. Every other numeric field of the flattened
// record is summarized across runs in [Stats.Fields], so a probe statistic
// such as "heap_alloc.mean" can be compared between runs.
//
// A run whose record contains a probe_error diagnostic still counts as a
// success; it is tallied separately in [Stats.ProbeFailures].
//
// Collector is safe for concurrent use.
package metrics
