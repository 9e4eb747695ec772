package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testClock struct{ t time.Time }

func (c *testClock) now() time.Time          { return c.t }
func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(opts ...Option) (*CircuitBreaker, *testClock) {
	clock := &testClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	base := []Option{
		WithWindow(4),
		WithMinCalls(4),
		WithFailureRate(0.5),
		WithOpenTimeout(time.Minute),
		WithProbes(2),
		WithClock(clock.now),
	}
	return NewCircuitBreaker(append(base, opts...)...), clock
}

var errRemote = errors.New("remote down")

func fail(context.Context) error    { return errRemote }
func succeed(context.Context) error { return nil }

func TestBreakerStaysClosedBelowMinCalls(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Execute(ctx, fail), errRemote)
	}
	require.Equal(t, StateClosed, cb.State())
}

func TestBreakerOpensAtFailureRate(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx := context.Background()

	require.NoError(t, cb.Execute(ctx, succeed))
	require.NoError(t, cb.Execute(ctx, succeed))
	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateClosed, cb.State())

	// 2 of 4 failed
	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(ctx, func(context.Context) error {
		calls++
		return nil
	})
	require.ErrorIs(t, err, ErrCircuitOpen)
	require.Zero(t, calls)
}

func TestBreakerWindowSlides(t *testing.T) {
	cb, _ := newTestBreaker(WithFailureRate(0.75))
	ctx := context.Background()

	// F F S S: 50%, below threshold
	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)
	cb.Execute(ctx, succeed)
	cb.Execute(ctx, succeed)
	require.Equal(t, StateClosed, cb.State())

	// window is now F S S F, then S S F F
	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)
	require.Equal(t, StateClosed, cb.State())

	// S F F F: 75%
	cb.Execute(ctx, fail)
	require.Equal(t, StateOpen, cb.State())
}

func TestBreakerHalfOpenClosesAfterProbes(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		cb.Execute(ctx, fail)
	}
	require.Equal(t, StateOpen, cb.State())

	clock.advance(59 * time.Second)
	require.Equal(t, StateOpen, cb.State())

	clock.advance(time.Second)
	require.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeed))
	require.Equal(t, StateHalfOpen, cb.State())
	require.NoError(t, cb.Execute(ctx, succeed))
	require.Equal(t, StateClosed, cb.State())

	// the window was reset, a single failure does not re-open
	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateClosed, cb.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		cb.Execute(ctx, fail)
	}
	clock.advance(time.Minute)

	require.NoError(t, cb.Execute(ctx, succeed))
	require.Error(t, cb.Execute(ctx, fail))
	require.Equal(t, StateOpen, cb.State())

	require.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen)
}

func TestBreakerHalfOpenLimitsProbes(t *testing.T) {
	cb, clock := newTestBreaker()

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	clock.advance(time.Minute)

	require.True(t, cb.Allow())
	require.True(t, cb.Allow())
	require.False(t, cb.Allow())

	cb.RecordSuccess()
	cb.RecordSuccess()
	require.Equal(t, StateClosed, cb.State())
}

func TestBreakerIgnoresCallerCancellation(t *testing.T) {
	cb, _ := newTestBreaker()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 4; i++ {
		err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
		require.ErrorIs(t, err, context.Canceled)
	}
	require.Equal(t, StateClosed, cb.State())
}

func TestBreakerStateListener(t *testing.T) {
	var transitions []string
	cb, clock := newTestBreaker(WithStateListener(func(from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	}))

	for i := 0; i < 4; i++ {
		cb.RecordFailure()
	}
	clock.advance(time.Minute)
	cb.State()
	cb.Reset()

	require.Equal(t, []string{"closed->open", "open->half_open", "half_open->closed"}, transitions)
}

func TestBreakerDefaults(t *testing.T) {
	cb := NewCircuitBreaker()
	require.Equal(t, 20, cb.windowSize)
	require.Equal(t, 10, cb.minCalls)
	require.Equal(t, 3, cb.probes)
	require.Equal(t, StateClosed, cb.State())
}
