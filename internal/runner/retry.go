package runner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// HTTPError represents an HTTP workload failure with status details.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// FailureLogger logs failed runs.
type FailureLogger interface {
	LogFailure(run int64, err error)
}

// RetryPolicy configures retry behavior.
type RetryPolicy struct {
	MaxAttempts int                                        // total attempts including initial try
	Delay       time.Duration                              // fixed delay between retries (used if DelayFunc nil)
	ShouldRetry func(error) bool                           // predicate; if nil, all errors retried
	DelayFunc   func(attempt int, err error) time.Duration // dynamic backoff; attempt is 1-based
}

type attemptKey struct{}

// Attempt returns the 1-based attempt number of the run executing with ctx.
func Attempt(ctx context.Context) int {
	if n, ok := ctx.Value(attemptKey{}).(int); ok {
		return n
	}
	return 1
}

// retryTask wraps a Task with retry logic.
type retryTask struct {
	inner  Task
	policy RetryPolicy
}

// WithRetry wraps a Task with retry capability.
func WithRetry(task Task, policy RetryPolicy) Task {
	if policy.MaxAttempts <= 1 {
		return task // no retries needed
	}
	return &retryTask{
		inner:  task,
		policy: policy,
	}
}

func (r *retryTask) Do(ctx context.Context, run int64) error {
	var lastErr error
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		lastErr = r.inner.Do(context.WithValue(ctx, attemptKey{}, attempt), run)
		if lastErr == nil {
			return nil
		}

		// Don't delay after the last attempt.
		if attempt < r.policy.MaxAttempts {
			if r.policy.ShouldRetry != nil && !r.policy.ShouldRetry(lastErr) {
				return lastErr
			}
			delay := r.policy.Delay
			if r.policy.DelayFunc != nil {
				delay = r.policy.DelayFunc(attempt, lastErr)
			}
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
	return lastErr
}

// loggingTask wraps a Task with failure logging.
type loggingTask struct {
	inner  Task
	logger FailureLogger
}

// WithLogging wraps a Task to log failures.
func WithLogging(task Task, logger FailureLogger) Task {
	if logger == nil {
		return task
	}
	return &loggingTask{
		inner:  task,
		logger: logger,
	}
}

func (l *loggingTask) Do(ctx context.Context, run int64) error {
	err := l.inner.Do(ctx, run)
	if err != nil {
		l.logger.LogFailure(run, err)
	}
	return err
}

// ZapFailureLogger logs failed runs at warn level.
type ZapFailureLogger struct {
	Log *zap.Logger
}

func (z ZapFailureLogger) LogFailure(run int64, err error) {
	if z.Log == nil {
		return
	}
	z.Log.Warn("run failed", zap.Int64("run", run), zap.Error(err))
}
