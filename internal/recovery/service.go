// Package recovery is the self-healing backstop: it scans both chains for
// HTLCs whose timelock has elapsed and refunds the ones this process is the
// sender of, without waiting for monitor events.
package recovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/crosslock-io/htlc-monitor/internal/clients/cosmosclient"
	"github.com/crosslock-io/htlc-monitor/internal/clients/evmclient"
	"github.com/crosslock-io/htlc-monitor/internal/config"
	"github.com/crosslock-io/htlc-monitor/internal/connstrategy"
	"github.com/crosslock-io/htlc-monitor/internal/resilience"
	"github.com/crosslock-io/htlc-monitor/internal/types"
	"github.com/crosslock-io/htlc-monitor/internal/utils/poller"
)

// Observer receives recovery telemetry.
type Observer interface {
	RecordRecoveryScan(chain types.Chain, candidates int, err error)
	RecordRefund(chain types.Chain, err error)
}

type nopObserver struct{}

func (nopObserver) RecordRecoveryScan(types.Chain, int, error) {}
func (nopObserver) RecordRefund(types.Chain, error)            {}

// Service runs an independent timer loop over both chains. A query failure
// on one chain never aborts the scan of the other.
type Service struct {
	cfg *config.RecoveryConfig
	obs Observer

	evmStrategy    connstrategy.Strategy[evmclient.EvmInterface]
	cosmosStrategy connstrategy.Strategy[cosmosclient.CosmosInterface]

	evmRefunder    Refunder
	cosmosRefunder Refunder

	evmBreaker    *resilience.CircuitBreaker
	cosmosBreaker *resilience.CircuitBreaker

	checked  atomic.Uint64
	refunded atomic.Uint64
	errors   atomic.Uint64

	mu          sync.Mutex
	lastCheckAt time.Time

	poller        *poller.Poller
	pollDecorator func(func(ctx context.Context) error) func(ctx context.Context) error
	breakerHook   func(name string, from, to resilience.State)
	now           func() time.Time
}

type Option func(*Service)

func WithObserver(obs Observer) Option {
	return func(s *Service) {
		s.obs = obs
	}
}

// WithEVMRefunder and WithCosmosRefunder wire the per-chain refund senders.
// A chain without a refunder is still scanned, but its candidates are only
// logged.
func WithEVMRefunder(r Refunder) Option {
	return func(s *Service) {
		s.evmRefunder = r
	}
}

func WithCosmosRefunder(r Refunder) Option {
	return func(s *Service) {
		s.cosmosRefunder = r
	}
}

// WithPollDecorator wraps the per-tick scan, typically to record its
// duration.
func WithPollDecorator(d func(func(ctx context.Context) error) func(ctx context.Context) error) Option {
	return func(s *Service) {
		s.pollDecorator = d
	}
}

// WithBreakerStateHook observes every breaker transition, typically to
// export it as a gauge.
func WithBreakerStateHook(hook func(name string, from, to resilience.State)) Option {
	return func(s *Service) {
		s.breakerHook = hook
	}
}

func NewService(
	cfg *config.RecoveryConfig,
	evmStrategy connstrategy.Strategy[evmclient.EvmInterface],
	cosmosStrategy connstrategy.Strategy[cosmosclient.CosmosInterface],
	opts ...Option,
) *Service {
	s := &Service{
		cfg:            cfg,
		obs:            nopObserver{},
		evmStrategy:    evmStrategy,
		cosmosStrategy: cosmosStrategy,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	breakerSettings := resilience.Settings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		Timeout:          cfg.Breaker.Timeout,
		MonitoringPeriod: cfg.Breaker.MonitoringPeriod,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
		OnStateChange:    s.breakerHook,
	}
	evmSettings := breakerSettings
	evmSettings.Name = "evm-refund"
	cosmosSettings := breakerSettings
	cosmosSettings.Name = "cosmos-refund"
	s.evmBreaker = resilience.NewCircuitBreaker(evmSettings)
	s.cosmosBreaker = resilience.NewCircuitBreaker(cosmosSettings)
	return s
}

func (s *Service) Start(ctx context.Context) {
	log.Ctx(ctx).Info().
		Dur("check_interval", s.cfg.CheckInterval).
		Uint64("evm_lookback_units", s.cfg.LookbackUnits).
		Msg("starting recovery service; locks created before the lookback window are outside the recovery horizon")

	pollMethod := s.checkExpired
	if s.pollDecorator != nil {
		pollMethod = s.pollDecorator(pollMethod)
	}
	s.poller = poller.NewPoller(s.cfg.CheckInterval, pollMethod)
	go s.poller.Start(ctx)
}

func (s *Service) Stop() {
	if s.poller != nil {
		s.poller.Stop()
	}
}

// Stats returns the cumulative counters since process start.
func (s *Service) Stats() types.RecoveryStats {
	s.mu.Lock()
	lastCheck := s.lastCheckAt
	s.mu.Unlock()

	return types.RecoveryStats{
		LastCheckAt: lastCheck,
		Checked:     s.checked.Load(),
		Refunded:    s.refunded.Load(),
		Errors:      s.errors.Load(),
	}
}

// BreakerStates exposes the per-chain breaker state for health reporting.
func (s *Service) BreakerStates() map[types.Chain]string {
	return map[types.Chain]string{
		types.ChainEVM:    s.evmBreaker.State().String(),
		types.ChainCosmos: s.cosmosBreaker.State().String(),
	}
}

// checkExpired is one recovery tick. Each chain is scanned independently and
// their errors are joined, so the poller logs both without either scan
// blocking the other.
func (s *Service) checkExpired(ctx context.Context) error {
	s.mu.Lock()
	s.lastCheckAt = s.now()
	s.mu.Unlock()

	evmErr := s.scanEVM(ctx)
	cosmosErr := s.scanCosmos(ctx)
	return errors.Join(evmErr, cosmosErr)
}

// scanEVM finds refund candidates from a bounded look-back window of
// creation events plus a per-id state read. The contract exposes no "list
// active" query, so anything created before the window is invisible here.
func (s *Service) scanEVM(ctx context.Context) error {
	now := uint64(s.now().Unix())

	candidates, err := connstrategy.WithConn(ctx, s.evmStrategy, func(conn evmclient.EvmInterface) ([]types.ExpiredHTLC, error) {
		head, err := conn.BlockNumber(ctx)
		if err != nil {
			return nil, err
		}
		var from uint64
		if head > s.cfg.LookbackUnits {
			from = head - s.cfg.LookbackUnits
		}

		logs, err := conn.FilterHTLCLogs(ctx, from, head)
		if err != nil {
			return nil, err
		}

		var expired []types.ExpiredHTLC
		for _, lg := range logs {
			ev, err := evmclient.DecodeLog(lg)
			if err != nil || ev.Type != types.EventHTLCCreated {
				continue
			}
			if ev.Timelock > now {
				continue
			}

			state, err := conn.GetHTLC(ctx, common.HexToHash(ev.HTLCID))
			if err != nil {
				log.Ctx(ctx).Warn().Err(err).Str("htlc_id", ev.HTLCID).Msg("failed to read HTLC state, skipping candidate")
				continue
			}
			if state.Withdrawn || state.Refunded {
				continue
			}

			expired = append(expired, types.ExpiredHTLC{
				Chain:    types.ChainEVM,
				HTLCID:   ev.HTLCID,
				Sender:   state.Sender.Hex(),
				Timelock: state.Timelock,
			})
		}
		return expired, nil
	})
	s.obs.RecordRecoveryScan(types.ChainEVM, len(candidates), err)
	if err != nil {
		s.errors.Add(1)
		return err
	}

	for _, candidate := range candidates {
		s.checked.Add(1)
		s.maybeRefund(ctx, candidate, s.evmRefunder, s.evmBreaker)
	}
	return nil
}

// scanCosmos pages through the contract's list_htlcs query and filters
// locally by expiry.
func (s *Service) scanCosmos(ctx context.Context) error {
	now := uint64(s.now().Unix())

	candidates, err := connstrategy.WithConn(ctx, s.cosmosStrategy, func(conn cosmosclient.CosmosInterface) ([]types.ExpiredHTLC, error) {
		var expired []types.ExpiredHTLC
		startAfter := ""
		for {
			records, err := conn.ListHTLCs(ctx, startAfter, s.cfg.PageLimit)
			if err != nil {
				return nil, err
			}
			if len(records) == 0 {
				break
			}
			for _, rec := range records {
				if rec.Withdrawn || rec.Refunded || rec.Timelock > now {
					continue
				}
				expired = append(expired, types.ExpiredHTLC{
					Chain:    types.ChainCosmos,
					HTLCID:   rec.ID,
					Sender:   rec.Sender,
					Timelock: rec.Timelock,
				})
			}
			if uint32(len(records)) < s.cfg.PageLimit {
				break
			}
			startAfter = records[len(records)-1].ID
		}
		return expired, nil
	})
	s.obs.RecordRecoveryScan(types.ChainCosmos, len(candidates), err)
	if err != nil {
		s.errors.Add(1)
		return err
	}

	for _, candidate := range candidates {
		s.checked.Add(1)
		s.maybeRefund(ctx, candidate, s.cosmosRefunder, s.cosmosBreaker)
	}
	return nil
}

// maybeRefund issues the compensating transaction for one candidate. Refunds
// are only attempted when this process's configured address is the lock's
// recorded sender. Exhausted retries are counted, never fatal.
func (s *Service) maybeRefund(
	ctx context.Context,
	candidate types.ExpiredHTLC,
	refunder Refunder,
	breaker *resilience.CircuitBreaker,
) {
	logger := log.Ctx(ctx).With().
		Stringer("chain", candidate.Chain).
		Str("htlc_id", candidate.HTLCID).
		Logger()

	if refunder == nil {
		logger.Debug().Msg("no refunder configured for chain, skipping expired HTLC")
		return
	}
	if !strings.EqualFold(candidate.Sender, refunder.Sender()) {
		logger.Debug().
			Str("htlc_sender", candidate.Sender).
			Str("configured_sender", refunder.Sender()).
			Msg("not the sender of expired HTLC, skipping refund")
		return
	}

	retryDelay := s.cfg.RetryDelay
	err := retry.Do(
		func() error {
			return breaker.Execute(ctx, func(ctx context.Context) error {
				txHash, err := refunder.RefundHTLC(ctx, candidate.HTLCID)
				if err != nil {
					return err
				}
				logger.Info().Str("tx_hash", txHash).Msg("refunded expired HTLC")
				return nil
			})
		},
		retry.Context(ctx),
		retry.Attempts(s.cfg.MaxRetries),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			return time.Duration(n+1) * retryDelay
		}),
		// An open breaker means the chain itself is unhealthy; leave the
		// candidate to the next scheduled tick instead of hammering it now.
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, resilience.ErrOpen)
		}),
	)

	s.obs.RecordRefund(candidate.Chain, err)
	if err != nil {
		s.errors.Add(1)
		logger.Error().Err(err).Msg("failed to refund expired HTLC")
		return
	}
	s.refunded.Add(1)
}
