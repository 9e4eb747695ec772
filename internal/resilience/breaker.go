// Package resilience guards calls to remote collaborators.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without attempting it.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // calls pass through, outcomes are recorded
	StateOpen                  // calls are rejected
	StateHalfOpen              // a limited number of probe calls is admitted
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreaker trips on the failure rate of the most recent calls.
// It is safe for concurrent use.
type CircuitBreaker struct {
	mu    sync.Mutex
	state State

	// ring buffer of the last windowSize outcomes, true = failure
	outcomes []bool
	next     int
	recorded int
	failures int

	windowSize  int
	minCalls    int
	failureRate float64
	openTimeout time.Duration
	probes      int

	openedAt       time.Time
	probesInFlight int
	probeSuccesses int

	now      func() time.Time
	onChange func(from, to State)
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithWindow sets how many recent outcomes the failure rate is computed over.
func WithWindow(n int) Option {
	return func(cb *CircuitBreaker) { cb.windowSize = n }
}

// WithMinCalls sets how many outcomes must be recorded before the breaker may trip.
func WithMinCalls(n int) Option {
	return func(cb *CircuitBreaker) { cb.minCalls = n }
}

// WithFailureRate sets the failure ratio in (0, 1] at which the breaker opens.
func WithFailureRate(r float64) Option {
	return func(cb *CircuitBreaker) { cb.failureRate = r }
}

// WithOpenTimeout sets how long the breaker stays open before admitting probes.
func WithOpenTimeout(d time.Duration) Option {
	return func(cb *CircuitBreaker) { cb.openTimeout = d }
}

// WithProbes sets how many consecutive successful probes close a half-open breaker.
func WithProbes(n int) Option {
	return func(cb *CircuitBreaker) { cb.probes = n }
}

// WithClock sets a custom clock function (for testing).
func WithClock(fn func() time.Time) Option {
	return func(cb *CircuitBreaker) { cb.now = fn }
}

// WithStateListener registers a callback invoked on every transition.
// It runs with the breaker lock held and must not call back into the breaker.
func WithStateListener(fn func(from, to State)) Option {
	return func(cb *CircuitBreaker) { cb.onChange = fn }
}

// NewCircuitBreaker creates a breaker with defaults: window 20, 10 minimum
// calls, 50% failure rate, 60s open timeout, 3 probes.
func NewCircuitBreaker(opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		state:       StateClosed,
		windowSize:  20,
		minCalls:    10,
		failureRate: 0.5,
		openTimeout: 60 * time.Second,
		probes:      3,
		now:         time.Now,
	}
	for _, o := range opts {
		o(cb)
	}
	if cb.windowSize <= 0 {
		cb.windowSize = 1
	}
	if cb.minCalls <= 0 || cb.minCalls > cb.windowSize {
		cb.minCalls = cb.windowSize
	}
	if cb.probes <= 0 {
		cb.probes = 1
	}
	cb.outcomes = make([]bool, cb.windowSize)
	return cb
}

// State returns the current state, moving an expired open breaker to half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()
	return cb.state
}

// Allow reports whether a call may proceed. In half-open state it reserves one
// of the probe slots; the caller must follow up with RecordSuccess or RecordFailure.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeHalfOpen()

	switch cb.state {
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.probesInFlight+cb.probeSuccesses >= cb.probes {
			return false
		}
		cb.probesInFlight++
		return true
	default:
		return true
	}
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.releaseProbe()
		cb.probeSuccesses++
		if cb.probeSuccesses >= cb.probes {
			cb.transition(StateClosed)
		}
	case StateClosed:
		cb.record(false)
	}
}

// RecordFailure records a failed call.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		// any failed probe re-opens the breaker
		cb.releaseProbe()
		cb.transition(StateOpen)
	case StateClosed:
		cb.record(true)
		if cb.recorded >= cb.minCalls &&
			float64(cb.failures)/float64(cb.recorded) >= cb.failureRate {
			cb.transition(StateOpen)
		}
	}
}

// Reset forces the breaker back to closed with an empty window.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}

// Execute runs fn if the breaker allows it and records the outcome. Context
// cancellation by the caller is not counted as a failure of the remote side.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	switch {
	case err == nil:
		cb.RecordSuccess()
	case ctx.Err() != nil:
		cb.cancelProbe()
	default:
		cb.RecordFailure()
	}
	return err
}

// record adds an outcome to the window. Must be called with mu held.
func (cb *CircuitBreaker) record(failed bool) {
	if cb.recorded == cb.windowSize {
		if cb.outcomes[cb.next] {
			cb.failures--
		}
	} else {
		cb.recorded++
	}
	cb.outcomes[cb.next] = failed
	if failed {
		cb.failures++
	}
	cb.next = (cb.next + 1) % cb.windowSize
}

func (cb *CircuitBreaker) releaseProbe() {
	if cb.probesInFlight > 0 {
		cb.probesInFlight--
	}
}

func (cb *CircuitBreaker) cancelProbe() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateHalfOpen {
		cb.releaseProbe()
	}
}

// maybeHalfOpen moves an open breaker to half-open once the timeout elapsed.
// Must be called with mu held.
func (cb *CircuitBreaker) maybeHalfOpen() {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.openTimeout {
		cb.transition(StateHalfOpen)
	}
}

// transition switches state and resets the per-state counters. Must be called with mu held.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	cb.probesInFlight = 0
	cb.probeSuccesses = 0

	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		for i := range cb.outcomes {
			cb.outcomes[i] = false
		}
		cb.next, cb.recorded, cb.failures = 0, 0, 0
	}

	if cb.onChange != nil && from != to {
		cb.onChange(from, to)
	}
}
