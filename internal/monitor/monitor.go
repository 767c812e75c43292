// Package monitor implements the polling state machine that keeps an
// off-chain view of HTLC activity converged with each chain. The generic
// scheduling, retry and health logic lives here; chain specifics are plugged
// in through ChainHooks.
package monitor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"

	"github.com/crosslock-io/htlc-monitor/internal/config"
	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// startLookback is how many units behind the head a monitor seeds itself
// when no processed unit is known. Events older than this window that
// occurred while the process was down are not re-delivered.
const startLookback = 100

// ChainHooks are the chain-specific operations the scheduler composes with.
// ProcessNewUnits receives the current watermark and returns the new one;
// returning the same value means the cycle was a no-op.
type ChainHooks interface {
	Chain() types.Chain
	InitializeStart(ctx context.Context) (uint64, error)
	CurrentUnit(ctx context.Context) (uint64, error)
	ProcessNewUnits(ctx context.Context, lastProcessed uint64) (uint64, error)
	// ReplayUnit re-decodes and re-dispatches a single unit without touching
	// the watermark. Callers go through Monitor.ReprocessUnit, which guards
	// against overlap with a polling cycle.
	ReplayUnit(ctx context.Context, unit uint64) error
	// Dispose releases the hook's connection strategy.
	Dispose() error
}

// Observer receives monitor telemetry; injected so the core carries no
// process-wide metric state.
type Observer interface {
	RecordCycle(chain types.Chain, duration time.Duration, err error)
	SetLastProcessedUnit(chain types.Chain, unit uint64)
}

type nopObserver struct{}

func (nopObserver) RecordCycle(types.Chain, time.Duration, error) {}
func (nopObserver) SetLastProcessedUnit(types.Chain, uint64)      {}

// Monitor owns the polling loop: at most one cycle in flight, success or
// error interval rescheduling, monotone watermark, health snapshots.
type Monitor struct {
	cfg   *config.MonitorConfig
	hooks ChainHooks
	obs   Observer

	running       atomic.Bool
	inFlight      atomic.Bool
	lastProcessed atomic.Uint64
	errorCount    atomic.Uint64
	startedAtMs   atomic.Int64

	quit chan struct{}
}

type Option func(*Monitor)

func WithObserver(obs Observer) Option {
	return func(m *Monitor) {
		m.obs = obs
	}
}

func New(cfg *config.MonitorConfig, hooks ChainHooks, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:   cfg,
		hooks: hooks,
		obs:   nopObserver{},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start determines the starting unit and launches the polling loop. Failure
// to determine a starting unit is the one unrecoverable condition: it is
// returned to the caller and the monitor stays not-running.
func (m *Monitor) Start(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%s monitor is already running", m.hooks.Chain())
	}

	seed, err := retryWithBackoff(ctx, m.cfg, func() (uint64, error) {
		return m.hooks.InitializeStart(ctx)
	})
	if err != nil {
		m.running.Store(false)
		return fmt.Errorf("failed to determine starting unit for %s monitor: %w", m.hooks.Chain(), err)
	}

	m.lastProcessed.Store(seed)
	m.startedAtMs.Store(time.Now().UnixMilli())
	m.quit = make(chan struct{})

	log.Ctx(ctx).Info().
		Stringer("chain", m.hooks.Chain()).
		Uint64("start_unit", seed).
		Dur("polling_interval", m.cfg.PollingInterval).
		Msg("monitor started")

	go m.loop(ctx)
	return nil
}

// Stop cancels the pending timer so no further cycle is scheduled and
// releases the connection strategy. An in-flight cycle is not preempted; it
// runs to its natural completion.
func (m *Monitor) Stop() {
	if !m.running.CompareAndSwap(true, false) {
		return
	}
	close(m.quit)
	if err := m.hooks.Dispose(); err != nil {
		log.Error().Err(err).Stringer("chain", m.hooks.Chain()).Msg("failed to dispose connection strategy")
	}
	log.Info().Stringer("chain", m.hooks.Chain()).Msg("monitor stopped")
}

func (m *Monitor) loop(ctx context.Context) {
	interval := m.cfg.PollingInterval

	for {
		if err := m.runCycle(ctx); err != nil {
			m.errorCount.Add(1)
			interval = m.cfg.ErrorPollingInterval
			log.Ctx(ctx).Error().
				Err(err).
				Stringer("chain", m.hooks.Chain()).
				Dur("retry_in", interval).
				Msg("polling cycle failed")
		} else {
			interval = m.cfg.PollingInterval
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-m.quit:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// runCycle executes one polling cycle. If a cycle is already in flight the
// tick is a no-op, so the same range is never processed twice concurrently.
func (m *Monitor) runCycle(ctx context.Context) error {
	if !m.inFlight.CompareAndSwap(false, true) {
		log.Ctx(ctx).Debug().Stringer("chain", m.hooks.Chain()).Msg("cycle already in flight, skipping tick")
		return nil
	}
	defer m.inFlight.Store(false)

	start := time.Now()
	last := m.lastProcessed.Load()
	next, err := m.hooks.ProcessNewUnits(ctx, last)
	m.obs.RecordCycle(m.hooks.Chain(), time.Since(start), err)
	if err != nil {
		return err
	}

	if next > last {
		m.lastProcessed.Store(next)
		m.obs.SetLastProcessedUnit(m.hooks.Chain(), next)
	}
	return nil
}

// ReprocessUnit forces a single unit through decode and dispatch again. It
// shares the in-flight guard with the polling cycle so the two never overlap.
func (m *Monitor) ReprocessUnit(ctx context.Context, unit uint64) error {
	if !m.inFlight.CompareAndSwap(false, true) {
		return fmt.Errorf("cannot reprocess unit %d: a cycle is in flight", unit)
	}
	defer m.inFlight.Store(false)

	return m.hooks.ReplayUnit(ctx, unit)
}

// GetHealth recomputes the health snapshot on demand. A failing head query
// leaves CurrentUnit and UnitsBehind at zero rather than failing the check.
func (m *Monitor) GetHealth(ctx context.Context) types.MonitorHealth {
	health := types.MonitorHealth{
		Running:           m.running.Load(),
		LastProcessedUnit: m.lastProcessed.Load(),
		ErrorCount:        m.errorCount.Load(),
	}
	if startedAt := m.startedAtMs.Load(); health.Running && startedAt > 0 {
		health.UptimeMs = uint64(time.Now().UnixMilli() - startedAt)
	}

	current, err := m.hooks.CurrentUnit(ctx)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Stringer("chain", m.hooks.Chain()).Msg("failed to fetch current unit for health check")
		return health
	}
	health.CurrentUnit = current
	if current > health.LastProcessedUnit {
		health.UnitsBehind = current - health.LastProcessedUnit
	}
	return health
}

// retryWithBackoff retries a fallible chain call up to MaxRetryAttempts with
// exponential backoff (base × 2^(attempt−1)), re-raising the last error on
// exhaustion. Used for head lookups and range fetches, never for per-item
// decode failures.
func retryWithBackoff[T any](ctx context.Context, cfg *config.MonitorConfig, op func() (T, error)) (T, error) {
	return retry.DoWithData(
		op,
		retry.Context(ctx),
		retry.Attempts(cfg.MaxRetryAttempts),
		retry.Delay(cfg.BaseRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Debug().
				Uint("attempt", n+1).
				Uint("max_attempts", cfg.MaxRetryAttempts).
				Err(err).
				Msg("chain call failed, retrying")
		}),
	)
}

// seedFromHead computes the initial watermark for a monitor that has no
// known processed unit.
func seedFromHead(head uint64) uint64 {
	if head > startLookback {
		return head - startLookback
	}
	return 0
}
