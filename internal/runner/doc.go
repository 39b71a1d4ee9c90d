// Package runner repeats an instrumented run with bounded concurrency.
//
// The runner stops after a fixed number of runs, when an overall duration
// elapses, or when its context is cancelled, whichever comes first. Runs may
// be paced with a token-bucket rate limit.
//
// # Basic Usage
//
//	r := runner.New(runner.Options{
//		Concurrency:   4,
//		Runs:          100,
//		RatePerSecond: 10,
//		Task:          task,
//	})
//	result := r.Run(ctx)
//
// # Middleware
//
// Tasks compose with middleware:
//   - [WithRetry]: re-executes a failed run; [Attempt] reports the attempt number
//   - [WithLogging]: reports failed runs to a [FailureLogger]
//
// Workloads that talk HTTP report failing status codes as [*HTTPError].
package runner
