package connstrategy

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// stubStrategy hands out a fixed connection and records the call sequence.
type stubStrategy struct {
	conn       string
	acquireErr error

	acquired int
	released int
	disposed int
}

func (s *stubStrategy) Acquire(ctx context.Context) (string, error) {
	if s.acquireErr != nil {
		return "", s.acquireErr
	}
	s.acquired++
	return s.conn, nil
}

func (s *stubStrategy) Release(conn string) {
	s.released++
}

func (s *stubStrategy) Dispose() error {
	s.disposed++
	return nil
}

func TestWithConn(t *testing.T) {
	t.Run("releases after success", func(t *testing.T) {
		s := &stubStrategy{conn: "conn-1"}

		got, err := WithConn(context.Background(), s, func(conn string) (int, error) {
			assert.Equal(t, "conn-1", conn)
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 1, s.acquired)
		assert.Equal(t, 1, s.released)
	})

	t.Run("releases after op failure", func(t *testing.T) {
		s := &stubStrategy{conn: "conn-1"}
		opErr := errors.New("query failed")

		_, err := WithConn(context.Background(), s, func(conn string) (int, error) {
			return 0, opErr
		})
		require.ErrorIs(t, err, opErr)
		assert.Equal(t, 1, s.released)
	})

	t.Run("acquire failure is a connection error", func(t *testing.T) {
		cause := errors.New("dial refused")
		s := &stubStrategy{acquireErr: cause}

		_, err := WithConn(context.Background(), s, func(conn string) (int, error) {
			t.Fatal("op must not run without a connection")
			return 0, nil
		})
		require.ErrorIs(t, err, cause)
		assert.True(t, types.IsKind(err, types.ErrKindConnection))
		assert.Zero(t, s.released)
	})
}

func TestNewEvmQueryStrategy(t *testing.T) {
	t.Run("direct mode requires endpoint", func(t *testing.T) {
		_, err := NewEvmQueryStrategy(ModeDirect, EvmOptions{
			Contract: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "endpoint")
	})

	t.Run("direct mode rejects bad contract address", func(t *testing.T) {
		_, err := NewEvmQueryStrategy(ModeDirect, EvmOptions{
			Endpoint: "http://localhost:8545",
			Contract: "not-an-address",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "contract address")
	})

	t.Run("direct mode succeeds", func(t *testing.T) {
		s, err := NewEvmQueryStrategy(ModeDirect, EvmOptions{
			Endpoint: "http://localhost:8545",
			Contract: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		})
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("pooled mode requires a pool", func(t *testing.T) {
		_, err := NewEvmQueryStrategy(ModePooled, EvmOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "pool")
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := NewEvmQueryStrategy(Mode("tunneled"), EvmOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown evm connection mode")
	})
}

func TestNewCosmosStrategies(t *testing.T) {
	t.Run("query strategy requires rpc address", func(t *testing.T) {
		_, err := NewCosmosQueryStrategy(ModeDirect, CosmosOptions{Contract: "osmo1contract"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "RPC address")
	})

	t.Run("query strategy succeeds", func(t *testing.T) {
		s, err := NewCosmosQueryStrategy(ModeDirect, CosmosOptions{
			RPCAddr:  "http://localhost:26657",
			Contract: "osmo1contract",
		})
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("signing strategy requires a broadcaster", func(t *testing.T) {
		_, err := NewCosmosSigningStrategy(ModeDirect, CosmosOptions{
			RPCAddr:  "http://localhost:26657",
			Contract: "osmo1contract",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "broadcaster")
	})
}
