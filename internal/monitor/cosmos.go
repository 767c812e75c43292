package monitor

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/crosslock-io/htlc-monitor/internal/clients/cosmosclient"
	"github.com/crosslock-io/htlc-monitor/internal/config"
	"github.com/crosslock-io/htlc-monitor/internal/connstrategy"
	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// CosmosMonitor watches the CometBFT chain. Finality is assumed immediate,
// so there is no reorg buffer; heights are scanned one by one because the
// contract's events arrive as transaction attributes, and a single height's
// failure must not hold back the rest of the range.
type CosmosMonitor struct {
	*Monitor

	cfg      *config.MonitorConfig
	strategy connstrategy.Strategy[cosmosclient.CosmosInterface]
	events   *Dispatcher
}

func NewCosmosMonitor(
	cfg *config.MonitorConfig,
	strategy connstrategy.Strategy[cosmosclient.CosmosInterface],
	events *Dispatcher,
	opts ...Option,
) *CosmosMonitor {
	cm := &CosmosMonitor{
		cfg:      cfg,
		strategy: strategy,
		events:   events,
	}
	cm.Monitor = New(cfg, cm, opts...)
	return cm
}

func (cm *CosmosMonitor) Chain() types.Chain {
	return types.ChainCosmos
}

func (cm *CosmosMonitor) Events() *Dispatcher {
	return cm.events
}

func (cm *CosmosMonitor) InitializeStart(ctx context.Context) (uint64, error) {
	head, err := cm.CurrentUnit(ctx)
	if err != nil {
		return 0, err
	}
	return seedFromHead(head), nil
}

func (cm *CosmosMonitor) CurrentUnit(ctx context.Context) (uint64, error) {
	return connstrategy.WithConn(ctx, cm.strategy, func(conn cosmosclient.CosmosInterface) (uint64, error) {
		return conn.LatestHeight(ctx)
	})
}

func (cm *CosmosMonitor) ProcessNewUnits(ctx context.Context, lastProcessed uint64) (uint64, error) {
	head, err := retryWithBackoff(ctx, cm.cfg, func() (uint64, error) {
		return cm.CurrentUnit(ctx)
	})
	if err != nil {
		return lastProcessed, types.NewFetchError("cosmos height lookup", err)
	}
	if lastProcessed >= head {
		return lastProcessed, nil
	}

	fromUnit := lastProcessed + 1
	toUnit := min(head, fromUnit+cm.cfg.MaxUnitsPerBatch-1)

	_, err = connstrategy.WithConn(ctx, cm.strategy, func(conn cosmosclient.CosmosInterface) (struct{}, error) {
		for height := fromUnit; height <= toUnit; height++ {
			events, err := cm.fetchHeightEvents(ctx, conn, height)
			if err != nil {
				// One height's failure is skipped, not fatal; scanning
				// height by height trades batch efficiency for resilience
				// to partial endpoint failures.
				log.Ctx(ctx).Warn().
					Err(err).
					Uint64("height", height).
					Msg("skipping height after failed event fetch")
				continue
			}
			for _, ev := range events {
				cm.events.Dispatch(ctx, ev)
			}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return lastProcessed, err
	}

	log.Ctx(ctx).Debug().
		Uint64("from", fromUnit).
		Uint64("to", toUnit).
		Msg("processed cosmos height range")

	return toUnit, nil
}

// fetchHeightEvents is the two-tier fetch: search the height's transactions
// for contract executions and, if the search endpoint fails, fall back to
// scanning the full block results for the same attribute shape. A successful
// tx search is authoritative for the height.
func (cm *CosmosMonitor) fetchHeightEvents(
	ctx context.Context, conn cosmosclient.CosmosInterface, height uint64,
) ([]types.HTLCEvent, error) {
	txs, searchErr := conn.SearchHTLCTxs(ctx, height)
	if searchErr == nil {
		var events []types.HTLCEvent
		for _, tx := range txs {
			for _, raw := range tx.Events {
				if ev, ok := cosmosclient.DecodeWasmEvent(raw, height, tx.TxHash); ok {
					events = append(events, ev)
				}
			}
		}
		return events, nil
	}

	log.Ctx(ctx).Debug().
		Err(searchErr).
		Uint64("height", height).
		Msg("tx search failed, falling back to block results")

	rawEvents, blockErr := conn.BlockEvents(ctx, height)
	if blockErr != nil {
		return nil, types.NewFetchError("cosmos height fetch", errors.Join(searchErr, blockErr))
	}

	var events []types.HTLCEvent
	for _, raw := range rawEvents {
		// Block results carry no per-tx hash; provenance is height-only here.
		if ev, ok := cosmosclient.DecodeWasmEvent(raw, height, ""); ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (cm *CosmosMonitor) ReplayUnit(ctx context.Context, unit uint64) error {
	events, err := connstrategy.WithConn(ctx, cm.strategy, func(conn cosmosclient.CosmosInterface) ([]types.HTLCEvent, error) {
		return cm.fetchHeightEvents(ctx, conn, unit)
	})
	if err != nil {
		return err
	}
	for _, ev := range events {
		cm.events.Dispatch(ctx, ev)
	}
	return nil
}

func (cm *CosmosMonitor) Dispose() error {
	return cm.strategy.Dispose()
}
