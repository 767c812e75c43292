package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/crosslock-io/htlc-monitor/consumer"
	"github.com/crosslock-io/htlc-monitor/internal/clients/cosmosclient"
	"github.com/crosslock-io/htlc-monitor/internal/clients/evmclient"
	"github.com/crosslock-io/htlc-monitor/internal/config"
	"github.com/crosslock-io/htlc-monitor/internal/connstrategy"
	"github.com/crosslock-io/htlc-monitor/internal/monitor"
	"github.com/crosslock-io/htlc-monitor/internal/observability/metrics"
	"github.com/crosslock-io/htlc-monitor/internal/recovery"
	"github.com/crosslock-io/htlc-monitor/internal/resilience"
	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// Service owns the per-chain monitors, the recovery loop and the optional
// queue egress, and wires decoded events between them.
type Service struct {
	cfg *config.Config

	evmMonitor    *monitor.EVMMonitor
	cosmosMonitor *monitor.CosmosMonitor
	recovery      *recovery.Service
	eventConsumer consumer.EventConsumer

	evmStrategy    connstrategy.Strategy[evmclient.EvmInterface]
	cosmosStrategy connstrategy.Strategy[cosmosclient.CosmosInterface]
}

type Option func(*options)

type options struct {
	broadcaster   cosmosclient.Broadcaster
	eventConsumer consumer.EventConsumer
}

// WithCosmosBroadcaster supplies the signing backend recovery refunds go
// through on the CometBFT chain. Without one that chain is scan-only.
func WithCosmosBroadcaster(b cosmosclient.Broadcaster) Option {
	return func(o *options) {
		o.broadcaster = b
	}
}

// WithEventConsumer overrides the queue egress, mainly for embedding and
// tests.
func WithEventConsumer(c consumer.EventConsumer) Option {
	return func(o *options) {
		o.eventConsumer = c
	}
}

func NewService(cfg *config.Config, opts ...Option) (*Service, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	evmStrategy, err := connstrategy.NewEvmQueryStrategy(
		connstrategy.Mode(cfg.EVM.ConnectionMode),
		connstrategy.EvmOptions{
			Endpoint: cfg.EVM.Endpoint,
			Contract: cfg.EVM.ContractAddress,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating evm connection strategy: %w", err)
	}

	cosmosStrategy, err := connstrategy.NewCosmosQueryStrategy(
		connstrategy.Mode(cfg.Cosmos.ConnectionMode),
		connstrategy.CosmosOptions{
			RPCAddr:  cfg.Cosmos.RPCAddr,
			Contract: cfg.Cosmos.ContractAddress,
			Timeout:  cfg.Cosmos.Timeout,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("error while creating cosmos connection strategy: %w", err)
	}

	obs := metrics.NewObserver()

	s := &Service{
		cfg:            cfg,
		evmStrategy:    evmStrategy,
		cosmosStrategy: cosmosStrategy,
		evmMonitor: monitor.NewEVMMonitor(
			&cfg.EVMMonitor, evmStrategy, monitor.NewDispatcher(), monitor.WithObserver(obs),
		),
		cosmosMonitor: monitor.NewCosmosMonitor(
			&cfg.CosmosMonitor, cosmosStrategy, monitor.NewDispatcher(), monitor.WithObserver(obs),
		),
	}

	s.eventConsumer = o.eventConsumer
	if s.eventConsumer == nil && cfg.Queue != nil {
		s.eventConsumer = consumer.NewRabbitConsumer(cfg.Queue)
	}
	if s.eventConsumer != nil {
		push := func(ctx context.Context, ev types.HTLCEvent) error {
			return s.eventConsumer.PushHTLCEvent(ctx, &ev)
		}
		s.evmMonitor.Events().OnAllEvents(push)
		s.cosmosMonitor.Events().OnAllEvents(push)
	}

	if cfg.Recovery.Enabled {
		rec, err := s.buildRecovery(&cfg.Recovery, o.broadcaster, obs)
		if err != nil {
			return nil, err
		}
		s.recovery = rec
	}

	return s, nil
}

func (s *Service) buildRecovery(
	cfg *config.RecoveryConfig,
	broadcaster cosmosclient.Broadcaster,
	obs *metrics.Observer,
) (*recovery.Service, error) {
	recOpts := []recovery.Option{
		recovery.WithObserver(obs),
		recovery.WithPollDecorator(func(f func(ctx context.Context) error) func(ctx context.Context) error {
			return metrics.RecordPollerDuration("recovery_check", f)
		}),
		recovery.WithBreakerStateHook(func(name string, _, to resilience.State) {
			metrics.RecordBreakerState(name, int(to))
		}),
	}

	if cfg.EVMRefundKey != "" {
		wallet, err := evmclient.NewWallet(cfg.EVMRefundKey, s.cfg.EVM.ChainID)
		if err != nil {
			return nil, fmt.Errorf("error while creating evm refund wallet: %w", err)
		}
		recOpts = append(recOpts, recovery.WithEVMRefunder(
			recovery.NewEVMRefunder(s.evmStrategy, wallet),
		))
	} else {
		log.Warn().Msg("no evm refund key configured, evm recovery runs scan-only")
	}

	if broadcaster != nil {
		signingStrategy, err := connstrategy.NewCosmosSigningStrategy(
			connstrategy.Mode(s.cfg.Cosmos.ConnectionMode),
			connstrategy.CosmosOptions{
				RPCAddr:     s.cfg.Cosmos.RPCAddr,
				Contract:    s.cfg.Cosmos.ContractAddress,
				Timeout:     s.cfg.Cosmos.Timeout,
				Broadcaster: broadcaster,
			},
		)
		if err != nil {
			return nil, fmt.Errorf("error while creating cosmos signing strategy: %w", err)
		}
		sender := cfg.CosmosSender
		if sender == "" {
			sender = broadcaster.Sender()
		}
		recOpts = append(recOpts, recovery.WithCosmosRefunder(
			recovery.NewCosmosRefunder(signingStrategy, sender),
		))
	} else {
		log.Warn().Msg("no cosmos broadcaster configured, cosmos recovery runs scan-only")
	}

	return recovery.NewService(&s.cfg.Recovery, s.evmStrategy, s.cosmosStrategy, recOpts...), nil
}

// EVMEvents and CosmosEvents expose the per-chain dispatchers so embedders
// can register in-process handlers before StartMonitoring.
func (s *Service) EVMEvents() *monitor.Dispatcher {
	return s.evmMonitor.Events()
}

func (s *Service) CosmosEvents() *monitor.Dispatcher {
	return s.cosmosMonitor.Events()
}

// StartMonitoring connects the egress, starts both monitors in parallel and
// kicks off the recovery loop, then blocks until ctx is done and shuts
// everything down in reverse order.
func (s *Service) StartMonitoring(ctx context.Context) error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start event egress: %w", err)
		}
	}

	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		return s.evmMonitor.Start(ctx)
	})
	p.Go(func(ctx context.Context) error {
		return s.cosmosMonitor.Start(ctx)
	})
	if err := p.Wait(); err != nil {
		s.shutdown(ctx)
		return err
	}

	if s.recovery != nil {
		s.recovery.Start(ctx)
	}

	log.Ctx(ctx).Info().Msg("monitoring started on both chains")
	<-ctx.Done()

	s.shutdown(ctx)
	return nil
}

func (s *Service) shutdown(ctx context.Context) {
	if s.recovery != nil {
		s.recovery.Stop()
	}
	s.evmMonitor.Stop()
	s.cosmosMonitor.Stop()
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to stop event egress")
		}
	}
	log.Ctx(ctx).Info().Msg("monitoring stopped")
}

// StartEgress connects the queue egress without starting the monitors, for
// one-shot commands that replay events. No-op without a configured queue.
func (s *Service) StartEgress(ctx context.Context) error {
	if s.eventConsumer == nil {
		return nil
	}
	return s.eventConsumer.Start(ctx)
}

func (s *Service) StopEgress() {
	if s.eventConsumer == nil {
		return
	}
	if err := s.eventConsumer.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop event egress")
	}
}

// ReprocessUnit replays a single unit on the named chain through the normal
// dispatch path.
func (s *Service) ReprocessUnit(ctx context.Context, chain types.Chain, unit uint64) error {
	switch chain {
	case types.ChainEVM:
		return s.evmMonitor.ReprocessUnit(ctx, unit)
	case types.ChainCosmos:
		return s.cosmosMonitor.ReprocessUnit(ctx, unit)
	default:
		return fmt.Errorf("unknown chain %q", chain)
	}
}
