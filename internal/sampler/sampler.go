package sampler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval is used when New receives a non-positive interval.
const DefaultInterval = 100 * time.Millisecond

// ErrInvalidUsage is returned for lifecycle calls made out of order.
var ErrInvalidUsage = errors.New("sampler: invalid usage")

// State is the lifecycle stage of a Sampler.
type State int32

const (
	Idle State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Option configures a Sampler.
type Option func(*Sampler)

// WithLogger attaches a logger for tick failures and lifecycle events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Sampler) {
		if l != nil {
			s.log = l
		}
	}
}

// Sampler invokes a probe periodically and summarizes the results.
type Sampler struct {
	probe    Probe
	interval time.Duration
	log      *zap.Logger

	mu    sync.Mutex // guards state transitions only
	state State
	stop  chan struct{}
	done  chan struct{}

	// Owned by the loop goroutine until done is closed.
	samples  []Value
	ticks    int
	probeErr *ProbeError
}

// New creates an idle sampler.
func New(probe Probe, interval time.Duration, opts ...Option) *Sampler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Sampler{
		probe:    probe,
		interval: interval,
		log:      zap.NewNop(),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the configured tick interval.
func (s *Sampler) Interval() time.Duration { return s.interval }

// State returns the current lifecycle stage.
func (s *Sampler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins ticking. Cancelling ctx stops further ticks without error;
// ctx is also the context handed to the probe.
func (s *Sampler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return fmt.Errorf("%w: start called while %s", ErrInvalidUsage, s.state)
	}
	if s.probe == nil {
		return fmt.Errorf("%w: nil probe", ErrInvalidUsage)
	}
	s.state = Running
	s.log.Debug("sampler started", zap.Duration("interval", s.interval))
	go s.run(ctx)
	return nil
}

// Finish stops ticking, waits for the in-flight tick and returns the summary.
func (s *Sampler) Finish() (*Result, error) {
	s.mu.Lock()
	if s.state != Running {
		state := s.state
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: finish called while %s", ErrInvalidUsage, state)
	}
	s.state = Stopping
	close(s.stop)
	s.mu.Unlock()

	<-s.done

	result := reduce(s.samples, s.ticks, s.probeErr)

	s.mu.Lock()
	s.state = Stopped
	s.mu.Unlock()

	s.log.Debug("sampler finished",
		zap.Int("ticks", s.ticks),
		zap.Int("samples", len(s.samples)),
		zap.Bool("probe_failed", s.probeErr != nil),
	)
	return result, nil
}

func (s *Sampler) run(ctx context.Context) {
	defer close(s.done)

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// Stop may have raced with the timer.
		select {
		case <-s.stop:
			return
		default:
		}

		began := time.Now()
		s.ticks++
		v, err := s.invoke(ctx)
		if err != nil {
			s.probeErr = &ProbeError{Tick: s.ticks, Err: err}
			s.log.Warn("probe failed, sampling stopped",
				zap.Int("tick", s.ticks),
				zap.Error(err),
			)
			return
		}
		s.samples = append(s.samples, v)

		delay := s.interval - time.Since(began)
		if delay < 0 {
			delay = 0
		}
		timer.Reset(delay)
	}
}

func (s *Sampler) invoke(ctx context.Context) (v Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("probe panic: %v", p)
		}
	}()
	return s.probe(ctx)
}
