package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// testClock lets tests drive the breaker's notion of time.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time {
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestBreaker(settings Settings) (*CircuitBreaker, *testClock) {
	clock := &testClock{t: time.Unix(1_700_000_000, 0)}
	cb := NewCircuitBreaker(settings)
	cb.now = clock.now
	return cb, clock
}

func fail(ctx context.Context) error    { return errBoom }
func succeed(ctx context.Context) error { return nil }

func TestCircuitBreaker_TripsAtThreshold(t *testing.T) {
	cb, _ := newTestBreaker(Settings{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := cb.Execute(ctx, fail)
		require.ErrorIs(t, err, errBoom)
		assert.Equal(t, StateClosed, cb.State())
	}

	err := cb.Execute(ctx, fail)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_OpenFailsFastWithoutInvoking(t *testing.T) {
	cb, _ := newTestBreaker(Settings{FailureThreshold: 1, Timeout: 30 * time.Second})
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	require.Equal(t, StateOpen, cb.State())

	invoked := false
	err := cb.Execute(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, invoked)
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(Settings{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	})
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	require.Equal(t, StateOpen, cb.State())

	// Before the timeout elapses the probe is still rejected.
	clock.advance(29 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrOpen)

	clock.advance(2 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, succeed))
	state, counts := cb.Snapshot()
	assert.Equal(t, StateClosed, state)
	assert.Equal(t, Counts{}, counts)
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(Settings{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	})
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	clock.advance(31 * time.Second)

	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())

	// The timeout restarted with the probe failure.
	clock.advance(29 * time.Second)
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrOpen)
}

func TestCircuitBreaker_MonitoringPeriodSlidesWindow(t *testing.T) {
	cb, clock := newTestBreaker(Settings{
		FailureThreshold: 3,
		MonitoringPeriod: time.Minute,
		Timeout:          30 * time.Second,
	})
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)

	// Stale failures stop counting once the window has passed without one.
	clock.advance(2 * time.Minute)
	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateClosed, cb.State())

	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_ForcedReset(t *testing.T) {
	cb, clock := newTestBreaker(Settings{
		FailureThreshold: 1,
		Timeout:          time.Hour,
		ResetTimeout:     5 * time.Minute,
	})
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	require.Equal(t, StateOpen, cb.State())

	clock.advance(5 * time.Minute)
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(ctx, succeed))
}

func TestCircuitBreaker_StateChangeHook(t *testing.T) {
	var transitions []string
	cb, clock := newTestBreaker(Settings{
		Name:             "test",
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Second,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	ctx := context.Background()

	require.ErrorIs(t, cb.Execute(ctx, fail), errBoom)
	clock.advance(2 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}
