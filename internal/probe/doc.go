// Package probe provides the built-in probes tickmeter samples while a
// workload runs: Go runtime statistics, numeric fields of a JSON endpoint and
// the output of an external command.
//
// Every probe returns either a scalar or a set of named fields. Nested JSON
// objects are flattened to dotted names; non-numeric values are ignored.
package probe
