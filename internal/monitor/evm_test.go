package monitor

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslock-io/htlc-monitor/internal/clients/evmclient"
	"github.com/crosslock-io/htlc-monitor/internal/config"
	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// staticStrategy hands out one fixed connection and never fails.
type staticStrategy[C any] struct {
	conn C
}

func (s *staticStrategy[C]) Acquire(ctx context.Context) (C, error) { return s.conn, nil }
func (s *staticStrategy[C]) Release(C)                              {}
func (s *staticStrategy[C]) Dispose() error                         { return nil }

type filterCall struct {
	from, to uint64
}

type stubEvmClient struct {
	blockNumberFn func(ctx context.Context) (uint64, error)
	filterFn      func(ctx context.Context, from, to uint64) ([]ethtypes.Log, error)
	getFn         func(ctx context.Context, htlcID common.Hash) (*evmclient.HTLCState, error)

	filterCalls []filterCall
}

func (c *stubEvmClient) BlockNumber(ctx context.Context) (uint64, error) {
	return c.blockNumberFn(ctx)
}

func (c *stubEvmClient) FilterHTLCLogs(ctx context.Context, from, to uint64) ([]ethtypes.Log, error) {
	c.filterCalls = append(c.filterCalls, filterCall{from: from, to: to})
	if c.filterFn != nil {
		return c.filterFn(ctx, from, to)
	}
	return nil, nil
}

func (c *stubEvmClient) GetHTLC(ctx context.Context, htlcID common.Hash) (*evmclient.HTLCState, error) {
	if c.getFn != nil {
		return c.getFn(ctx, htlcID)
	}
	return nil, errors.New("no such HTLC")
}

func (c *stubEvmClient) HTLCExists(ctx context.Context, htlcID common.Hash) (bool, error) {
	return false, nil
}

func (c *stubEvmClient) RefundHTLC(ctx context.Context, wallet *evmclient.Wallet, htlcID common.Hash) (string, error) {
	return "", errors.New("not supported")
}

func (c *stubEvmClient) Close() {}

func evmMonitorConfig(reorgBuffer uint64) *config.MonitorConfig {
	cfg := testMonitorConfig()
	cfg.ReorgBuffer = reorgBuffer
	return cfg
}

func createdLog(t *testing.T, block uint64, id common.Hash, amount int64) ethtypes.Log {
	t.Helper()
	data, err := evmclient.ContractABI.Events["HTLCCreated"].Inputs.NonIndexed().Pack(
		big.NewInt(amount),
		[32]byte{0xAA},
		big.NewInt(1_900_000_000),
		"cosmos",
		"osmo1receiver",
	)
	require.NoError(t, err)
	return ethtypes.Log{
		Topics: []common.Hash{
			evmclient.EventIDCreated,
			id,
			common.HexToHash("0x0000000000000000000000005aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
			common.HexToHash("0x000000000000000000000000fB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"),
		},
		Data:        data,
		BlockNumber: block,
	}
}

func refundedLog(block uint64, id common.Hash) ethtypes.Log {
	return ethtypes.Log{
		Topics:      []common.Hash{evmclient.EventIDRefunded, id},
		BlockNumber: block,
	}
}

func TestEVMMonitor_ProcessNewUnits(t *testing.T) {
	t.Run("withholds the reorg buffer from the head", func(t *testing.T) {
		client := &stubEvmClient{
			blockNumberFn: func(ctx context.Context) (uint64, error) { return 1000, nil },
		}
		em := NewEVMMonitor(evmMonitorConfig(12), &staticStrategy[evmclient.EvmInterface]{conn: client}, NewDispatcher())

		next, err := em.ProcessNewUnits(context.Background(), 980)
		require.NoError(t, err)
		assert.Equal(t, uint64(988), next)
		require.Len(t, client.filterCalls, 1)
		assert.Equal(t, filterCall{from: 981, to: 988}, client.filterCalls[0])

		// The head advances; the next cycle picks up exactly where the safe
		// window left off.
		client.blockNumberFn = func(ctx context.Context) (uint64, error) { return 1010, nil }
		next, err = em.ProcessNewUnits(context.Background(), next)
		require.NoError(t, err)
		assert.Equal(t, uint64(998), next)
		assert.Equal(t, filterCall{from: 989, to: 998}, client.filterCalls[1])
	})

	t.Run("no-op while the safe window has not moved", func(t *testing.T) {
		client := &stubEvmClient{
			blockNumberFn: func(ctx context.Context) (uint64, error) { return 1000, nil },
		}
		em := NewEVMMonitor(evmMonitorConfig(12), &staticStrategy[evmclient.EvmInterface]{conn: client}, NewDispatcher())

		next, err := em.ProcessNewUnits(context.Background(), 988)
		require.NoError(t, err)
		assert.Equal(t, uint64(988), next)
		assert.Empty(t, client.filterCalls)
	})

	t.Run("no-op while the chain is shorter than the buffer", func(t *testing.T) {
		client := &stubEvmClient{
			blockNumberFn: func(ctx context.Context) (uint64, error) { return 10, nil },
		}
		em := NewEVMMonitor(evmMonitorConfig(12), &staticStrategy[evmclient.EvmInterface]{conn: client}, NewDispatcher())

		next, err := em.ProcessNewUnits(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), next)
		assert.Empty(t, client.filterCalls)
	})

	t.Run("caps the range at the batch limit", func(t *testing.T) {
		client := &stubEvmClient{
			blockNumberFn: func(ctx context.Context) (uint64, error) { return 10_000, nil },
		}
		cfg := evmMonitorConfig(0)
		cfg.MaxUnitsPerBatch = 10
		em := NewEVMMonitor(cfg, &staticStrategy[evmclient.EvmInterface]{conn: client}, NewDispatcher())

		next, err := em.ProcessNewUnits(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, uint64(10), next)
		assert.Equal(t, filterCall{from: 1, to: 10}, client.filterCalls[0])
	})

	t.Run("dispatches in ascending block order and skips bad logs", func(t *testing.T) {
		idA := common.HexToHash("0x01")
		idB := common.HexToHash("0x02")
		client := &stubEvmClient{
			blockNumberFn: func(ctx context.Context) (uint64, error) { return 100, nil },
			filterFn: func(ctx context.Context, from, to uint64) ([]ethtypes.Log, error) {
				return []ethtypes.Log{
					refundedLog(8, idB),
					{BlockNumber: 6}, // no topics, undecodable
					createdLog(t, 5, idA, 1_000_000),
				}, nil
			},
		}
		events := NewDispatcher()
		var seen []types.HTLCEvent
		events.OnAllEvents(func(ctx context.Context, ev types.HTLCEvent) error {
			seen = append(seen, ev)
			return nil
		})
		em := NewEVMMonitor(evmMonitorConfig(0), &staticStrategy[evmclient.EvmInterface]{conn: client}, events)

		next, err := em.ProcessNewUnits(context.Background(), 4)
		require.NoError(t, err)
		assert.Equal(t, uint64(100), next)

		require.Len(t, seen, 2)
		assert.Equal(t, types.EventHTLCCreated, seen[0].Type)
		assert.Equal(t, uint64(5), seen[0].OriginUnit)
		assert.Equal(t, idA.Hex(), seen[0].HTLCID)
		assert.Equal(t, []types.Coin{{Denom: "wei", Amount: "1000000"}}, seen[0].Amount)
		assert.Equal(t, types.EventHTLCRefunded, seen[1].Type)
		assert.Equal(t, uint64(8), seen[1].OriginUnit)
	})

	t.Run("fetch failure leaves the watermark in place", func(t *testing.T) {
		client := &stubEvmClient{
			blockNumberFn: func(ctx context.Context) (uint64, error) { return 100, nil },
			filterFn: func(ctx context.Context, from, to uint64) ([]ethtypes.Log, error) {
				return nil, errors.New("rpc unavailable")
			},
		}
		em := NewEVMMonitor(evmMonitorConfig(0), &staticStrategy[evmclient.EvmInterface]{conn: client}, NewDispatcher())

		next, err := em.ProcessNewUnits(context.Background(), 50)
		require.Error(t, err)
		assert.True(t, types.IsKind(err, types.ErrKindFetch))
		assert.Equal(t, uint64(50), next)
	})
}

func TestEVMMonitor_ReprocessUnit(t *testing.T) {
	id := common.HexToHash("0x07")
	client := &stubEvmClient{
		blockNumberFn: func(ctx context.Context) (uint64, error) { return 100, nil },
		filterFn: func(ctx context.Context, from, to uint64) ([]ethtypes.Log, error) {
			return []ethtypes.Log{refundedLog(from, id)}, nil
		},
	}
	events := NewDispatcher()
	var seen []types.HTLCEvent
	events.OnAllEvents(func(ctx context.Context, ev types.HTLCEvent) error {
		seen = append(seen, ev)
		return nil
	})
	em := NewEVMMonitor(evmMonitorConfig(0), &staticStrategy[evmclient.EvmInterface]{conn: client}, events)

	require.NoError(t, em.ReprocessUnit(context.Background(), 42))
	assert.Equal(t, []filterCall{{from: 42, to: 42}}, client.filterCalls)
	require.Len(t, seen, 1)
	assert.Equal(t, uint64(42), seen[0].OriginUnit)

	// Replaying is idempotent at this layer: same unit, same events again.
	require.NoError(t, em.ReprocessUnit(context.Background(), 42))
	assert.Len(t, seen, 2)
	assert.Equal(t, seen[0], seen[1])
}
