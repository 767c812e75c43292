package monitor

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog/log"

	"github.com/crosslock-io/htlc-monitor/internal/clients/evmclient"
	"github.com/crosslock-io/htlc-monitor/internal/config"
	"github.com/crosslock-io/htlc-monitor/internal/connstrategy"
	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// EVMMonitor watches the account-model chain. Its finality is only
// probabilistic, so a reorg buffer of trailing blocks is withheld from
// processing: acting too close to the head risks observing a lock that a
// later reorganization orphans.
type EVMMonitor struct {
	*Monitor

	cfg      *config.MonitorConfig
	strategy connstrategy.Strategy[evmclient.EvmInterface]
	events   *Dispatcher
}

func NewEVMMonitor(
	cfg *config.MonitorConfig,
	strategy connstrategy.Strategy[evmclient.EvmInterface],
	events *Dispatcher,
	opts ...Option,
) *EVMMonitor {
	em := &EVMMonitor{
		cfg:      cfg,
		strategy: strategy,
		events:   events,
	}
	em.Monitor = New(cfg, em, opts...)
	return em
}

func (em *EVMMonitor) Chain() types.Chain {
	return types.ChainEVM
}

func (em *EVMMonitor) Events() *Dispatcher {
	return em.events
}

func (em *EVMMonitor) InitializeStart(ctx context.Context) (uint64, error) {
	head, err := em.CurrentUnit(ctx)
	if err != nil {
		return 0, err
	}
	return seedFromHead(head), nil
}

func (em *EVMMonitor) CurrentUnit(ctx context.Context) (uint64, error) {
	return connstrategy.WithConn(ctx, em.strategy, func(conn evmclient.EvmInterface) (uint64, error) {
		return conn.BlockNumber(ctx)
	})
}

// ProcessNewUnits fetches and dispatches every HTLC log in the next safe
// block window. The watermark only advances (via the returned value) after
// the whole range has been dispatched.
func (em *EVMMonitor) ProcessNewUnits(ctx context.Context, lastProcessed uint64) (uint64, error) {
	head, err := retryWithBackoff(ctx, em.cfg, func() (uint64, error) {
		return em.CurrentUnit(ctx)
	})
	if err != nil {
		return lastProcessed, types.NewFetchError("evm head lookup", err)
	}

	if head <= em.cfg.ReorgBuffer {
		return lastProcessed, nil
	}
	safeUnit := head - em.cfg.ReorgBuffer
	if lastProcessed >= safeUnit {
		return lastProcessed, nil
	}

	fromUnit := lastProcessed + 1
	toUnit := min(safeUnit, fromUnit+em.cfg.MaxUnitsPerBatch-1)

	logs, err := retryWithBackoff(ctx, em.cfg, func() ([]ethtypes.Log, error) {
		return connstrategy.WithConn(ctx, em.strategy, func(conn evmclient.EvmInterface) ([]ethtypes.Log, error) {
			return conn.FilterHTLCLogs(ctx, fromUnit, toUnit)
		})
	})
	if err != nil {
		return lastProcessed, types.NewFetchError("evm log fetch", err)
	}

	events := em.decodeLogs(ctx, logs)

	// Dispatch in ascending block order; ordering across event types within
	// the same block is undefined and acceptable.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OriginUnit < events[j].OriginUnit
	})
	for _, ev := range events {
		em.events.Dispatch(ctx, ev)
	}

	log.Ctx(ctx).Debug().
		Uint64("from", fromUnit).
		Uint64("to", toUnit).
		Int("events", len(events)).
		Msg("processed EVM block range")

	return toUnit, nil
}

// ReplayUnit refetches one block and re-dispatches its events without
// moving the watermark.
func (em *EVMMonitor) ReplayUnit(ctx context.Context, unit uint64) error {
	logs, err := connstrategy.WithConn(ctx, em.strategy, func(conn evmclient.EvmInterface) ([]ethtypes.Log, error) {
		return conn.FilterHTLCLogs(ctx, unit, unit)
	})
	if err != nil {
		return types.NewFetchError("evm log fetch", err)
	}

	for _, ev := range em.decodeLogs(ctx, logs) {
		em.events.Dispatch(ctx, ev)
	}
	return nil
}

// decodeLogs converts raw logs, logging and skipping malformed ones so a
// single bad log cannot stall the range.
func (em *EVMMonitor) decodeLogs(ctx context.Context, logs []ethtypes.Log) []types.HTLCEvent {
	events := make([]types.HTLCEvent, 0, len(logs))
	for _, lg := range logs {
		ev, err := evmclient.DecodeLog(lg)
		if err != nil {
			log.Ctx(ctx).Warn().
				Err(err).
				Uint64("block", lg.BlockNumber).
				Str("tx", lg.TxHash.Hex()).
				Msg("skipping undecodable EVM log")
			continue
		}
		events = append(events, ev)
	}
	return events
}

// HTLCExists is a read-through query used by recovery and external
// collaborators; it never touches the watermark.
func (em *EVMMonitor) HTLCExists(ctx context.Context, htlcID common.Hash) (bool, error) {
	return connstrategy.WithConn(ctx, em.strategy, func(conn evmclient.EvmInterface) (bool, error) {
		return conn.HTLCExists(ctx, htlcID)
	})
}

// GetHTLC is the read-through state query counterpart of HTLCExists.
func (em *EVMMonitor) GetHTLC(ctx context.Context, htlcID common.Hash) (*evmclient.HTLCState, error) {
	return connstrategy.WithConn(ctx, em.strategy, func(conn evmclient.EvmInterface) (*evmclient.HTLCState, error) {
		return conn.GetHTLC(ctx, htlcID)
	})
}

func (em *EVMMonitor) Dispose() error {
	return em.strategy.Dispose()
}
