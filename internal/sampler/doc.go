// Package sampler runs a probe on a fixed cadence alongside a workload and
// reduces the collected values into summary statistics.
//
// # Basic Usage
//
//	s := sampler.New(func(ctx context.Context) (sampler.Value, error) {
//		return sampler.Scalar(float64(queue.Len())), nil
//	}, 50*time.Millisecond)
//
//	if err := s.Start(ctx); err != nil {
//		return err
//	}
//	doWork()
//	result, err := s.Finish()
//
// # Timing
//
// The first tick fires one full interval after Start, never immediately, so
// a short-lived workload is not skewed by a sample taken at time zero.
// Ticks never overlap: the loop re-arms only after the probe returns, with
// the interval minus the time the probe took. A probe slower than the
// interval therefore lowers the effective sampling rate.
//
// # Lifecycle
//
// A Sampler moves through [Idle], [Running], [Stopping] and [Stopped] and is
// single use. Starting twice, finishing before starting, or finishing twice
// returns an error wrapping [ErrInvalidUsage].
//
// Finish stops scheduling, waits for an in-flight tick to complete and then
// reduces the buffer. The probe context is not cancelled by Finish; a probe
// that never returns blocks Finish.
//
// # Probe Failures
//
// A probe error (or panic) ends sampling early. Samples gathered so far are
// kept and the failure is reported as [Result.ProbeError] rather than
// returned from Finish.
package sampler
