// Package resilience provides the fault-isolation primitive that gates
// repeated calls against an unhealthy chain endpoint.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrOpen is returned by Execute while the breaker is open: a deliberate
// fast-fail signal that the backing dependency is unhealthy. Callers must not
// retry it inside their current attempt loop.
var ErrOpen = errors.New("circuit breaker is open")

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Counts are monotonic within a closed/half-open episode and reset on the
// transition back to closed.
type Counts struct {
	Requests  uint64
	Failures  uint64
	Successes uint64
}

// Settings configure one breaker. Zero values fall back to the defaults
// below; ResetTimeout of zero disables the forced-close safety valve.
type Settings struct {
	Name             string
	FailureThreshold uint64
	SuccessThreshold uint64
	Timeout          time.Duration
	MonitoringPeriod time.Duration
	ResetTimeout     time.Duration
	OnStateChange    func(name string, from, to State)
}

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 2
	defaultTimeout          = 30 * time.Second
	defaultMonitoringPeriod = 60 * time.Second
)

// CircuitBreaker tracks failures in a sliding window and fails fast once the
// threshold is exceeded, probing recovery after the timeout elapses.
type CircuitBreaker struct {
	settings Settings

	mu            sync.Mutex
	state         State
	counts        Counts
	lastFailureAt time.Time
	nextAttemptAt time.Time
	lastOpenedAt  time.Time

	now func() time.Time
}

func NewCircuitBreaker(settings Settings) *CircuitBreaker {
	if settings.FailureThreshold == 0 {
		settings.FailureThreshold = defaultFailureThreshold
	}
	if settings.SuccessThreshold == 0 {
		settings.SuccessThreshold = defaultSuccessThreshold
	}
	if settings.Timeout <= 0 {
		settings.Timeout = defaultTimeout
	}
	if settings.MonitoringPeriod <= 0 {
		settings.MonitoringPeriod = defaultMonitoringPeriod
	}
	return &CircuitBreaker{
		settings: settings,
		state:    StateClosed,
		now:      time.Now,
	}
}

// Execute runs op through the breaker. The op's own error is always returned
// unchanged; the breaker only gates execution, it never swallows failures.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if !cb.allow() {
		return ErrOpen
	}

	err := op(ctx)
	cb.record(err)
	return err
}

// Snapshot returns the current state and counters for health reporting.
func (cb *CircuitBreaker) Snapshot() (State, Counts) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.maybeForceReset(cb.now())
	return cb.state, cb.counts
}

func (cb *CircuitBreaker) State() State {
	state, _ := cb.Snapshot()
	return state
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()
	cb.maybeForceReset(now)

	if cb.state == StateOpen {
		if now.Before(cb.nextAttemptAt) {
			return false
		}
		cb.transition(StateHalfOpen)
		cb.counts.Successes = 0
	}

	cb.counts.Requests++
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure(cb.now())
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onFailure(now time.Time) {
	// Failures outside the monitoring period no longer count toward the
	// threshold; the window slides with the most recent failure.
	if !cb.lastFailureAt.IsZero() && now.Sub(cb.lastFailureAt) > cb.settings.MonitoringPeriod {
		cb.counts.Failures = 0
	}
	cb.counts.Failures++
	cb.lastFailureAt = now

	switch cb.state {
	case StateHalfOpen:
		// A single failure while probing re-opens and restarts the timeout.
		cb.trip(now)
	case StateClosed:
		if cb.counts.Failures >= cb.settings.FailureThreshold {
			cb.trip(now)
		}
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case StateClosed:
		cb.counts.Successes++
	case StateHalfOpen:
		cb.counts.Successes++
		if cb.counts.Successes >= cb.settings.SuccessThreshold {
			cb.reset()
		}
	}
}

func (cb *CircuitBreaker) trip(now time.Time) {
	cb.nextAttemptAt = now.Add(cb.settings.Timeout)
	cb.lastOpenedAt = now
	cb.transition(StateOpen)
}

func (cb *CircuitBreaker) reset() {
	cb.counts = Counts{}
	cb.lastFailureAt = time.Time{}
	cb.transition(StateClosed)
}

// maybeForceReset is the safety valve against a stuck breaker: once
// ResetTimeout has elapsed since the breaker last opened, it is forced closed
// regardless of state.
func (cb *CircuitBreaker) maybeForceReset(now time.Time) {
	if cb.settings.ResetTimeout <= 0 || cb.state == StateClosed {
		return
	}
	if now.Sub(cb.lastOpenedAt) >= cb.settings.ResetTimeout {
		cb.reset()
	}
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to

	log.Info().
		Str("breaker", cb.settings.Name).
		Stringer("from", from).
		Stringer("to", to).
		Msg("circuit breaker state changed")

	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.settings.Name, from, to)
	}
}
