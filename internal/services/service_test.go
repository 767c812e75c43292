package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslock-io/htlc-monitor/internal/config"
	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// captureConsumer records pushed events instead of publishing them.
type captureConsumer struct {
	started bool
	stopped bool
	events  []types.HTLCEvent
}

func (c *captureConsumer) Start(ctx context.Context) error {
	c.started = true
	return nil
}

func (c *captureConsumer) PushHTLCEvent(ctx context.Context, ev *types.HTLCEvent) error {
	c.events = append(c.events, *ev)
	return nil
}

func (c *captureConsumer) Stop() error {
	c.stopped = true
	return nil
}

func testServiceConfig() *config.Config {
	cfg := &config.Config{
		EVM: config.EVMConfig{
			Endpoint:        "http://localhost:8545",
			ContractAddress: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			ChainID:         11155111,
		},
		Cosmos: config.CosmosConfig{
			RPCAddr:         "http://localhost:26657",
			ContractAddress: "osmo1contract",
			Timeout:         20 * time.Second,
		},
		EVMMonitor:    config.MonitorConfig{ChainID: "sepolia", ReorgBuffer: 12},
		CosmosMonitor: config.MonitorConfig{ChainID: "osmosis-1"},
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func TestNewService(t *testing.T) {
	t.Run("wires the egress into both dispatchers", func(t *testing.T) {
		capture := &captureConsumer{}
		s, err := NewService(testServiceConfig(), WithEventConsumer(capture))
		require.NoError(t, err)

		s.EVMEvents().Dispatch(context.Background(), types.HTLCEvent{
			Type: types.EventHTLCCreated, Chain: types.ChainEVM, HTLCID: "0x01",
		})
		s.CosmosEvents().Dispatch(context.Background(), types.HTLCEvent{
			Type: types.EventHTLCRefunded, Chain: types.ChainCosmos, HTLCID: "swap-1",
		})

		require.Len(t, capture.events, 2)
		assert.Equal(t, types.ChainEVM, capture.events[0].Chain)
		assert.Equal(t, types.ChainCosmos, capture.events[1].Chain)
	})

	t.Run("without queue config events stay in process", func(t *testing.T) {
		s, err := NewService(testServiceConfig())
		require.NoError(t, err)
		assert.Nil(t, s.eventConsumer)
		assert.NoError(t, s.StartEgress(context.Background()))
	})

	t.Run("recovery disabled by default", func(t *testing.T) {
		s, err := NewService(testServiceConfig())
		require.NoError(t, err)
		assert.Nil(t, s.recovery)

		health := HealthStatus{}
		assert.Nil(t, health.Recovery)
	})

	t.Run("recovery enabled without keys is scan-only", func(t *testing.T) {
		cfg := testServiceConfig()
		cfg.Recovery = config.RecoveryConfig{Enabled: true}
		require.NoError(t, cfg.Recovery.Validate())

		s, err := NewService(cfg)
		require.NoError(t, err)
		require.NotNil(t, s.recovery)
	})

	t.Run("invalid evm refund key fails construction", func(t *testing.T) {
		cfg := testServiceConfig()
		cfg.Recovery = config.RecoveryConfig{Enabled: true, EVMRefundKey: "zz-not-hex"}
		require.NoError(t, cfg.Recovery.Validate())

		_, err := NewService(cfg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refund wallet")
	})
}

func TestServiceReprocessUnit_UnknownChain(t *testing.T) {
	s, err := NewService(testServiceConfig())
	require.NoError(t, err)

	err = s.ReprocessUnit(context.Background(), types.Chain("solana"), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown chain")
}
