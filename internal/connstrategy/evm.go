package connstrategy

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crosslock-io/htlc-monitor/internal/clients/evmclient"
)

// evmDirectQuery dials a fresh client per acquire. No reuse and no
// backpressure: suited to low-frequency callers like the recovery scan.
type evmDirectQuery struct {
	endpoint string
	contract common.Address
}

func (s *evmDirectQuery) Acquire(ctx context.Context) (evmclient.EvmInterface, error) {
	return evmclient.Dial(ctx, s.endpoint, s.contract)
}

func (s *evmDirectQuery) Release(conn evmclient.EvmInterface) {
	conn.Close()
}

func (s *evmDirectQuery) Dispose() error {
	return nil
}

// evmPooledQuery borrows from an externally owned pool; every Acquire is
// paired with a Release back into it.
type evmPooledQuery struct {
	pool Pool[evmclient.EvmInterface]
}

func (s *evmPooledQuery) Acquire(ctx context.Context) (evmclient.EvmInterface, error) {
	return s.pool.Acquire(ctx)
}

func (s *evmPooledQuery) Release(conn evmclient.EvmInterface) {
	s.pool.Release(conn)
}

func (s *evmPooledQuery) Dispose() error {
	return s.pool.Dispose()
}
