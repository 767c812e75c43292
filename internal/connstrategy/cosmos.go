package connstrategy

import (
	"context"
	"time"

	"github.com/crosslock-io/htlc-monitor/internal/clients/cosmosclient"
)

type cosmosDirectQuery struct {
	rpcAddr  string
	contract string
	timeout  time.Duration
}

func (s *cosmosDirectQuery) Acquire(ctx context.Context) (cosmosclient.CosmosInterface, error) {
	return cosmosclient.New(s.rpcAddr, s.contract, s.timeout)
}

func (s *cosmosDirectQuery) Release(cosmosclient.CosmosInterface) {}

func (s *cosmosDirectQuery) Dispose() error {
	return nil
}

type cosmosPooledQuery struct {
	pool Pool[cosmosclient.CosmosInterface]
}

func (s *cosmosPooledQuery) Acquire(ctx context.Context) (cosmosclient.CosmosInterface, error) {
	return s.pool.Acquire(ctx)
}

func (s *cosmosPooledQuery) Release(conn cosmosclient.CosmosInterface) {
	s.pool.Release(conn)
}

func (s *cosmosPooledQuery) Dispose() error {
	return s.pool.Dispose()
}

// cosmosDirectSigning builds a fresh query client per acquire and couples it
// with the shared broadcaster. The broadcaster is long-lived; only the query
// connection is per-call.
type cosmosDirectSigning struct {
	rpcAddr     string
	contract    string
	timeout     time.Duration
	broadcaster cosmosclient.Broadcaster
}

func (s *cosmosDirectSigning) Acquire(ctx context.Context) (cosmosclient.SigningInterface, error) {
	client, err := cosmosclient.New(s.rpcAddr, s.contract, s.timeout)
	if err != nil {
		return nil, err
	}
	return cosmosclient.NewSigningClient(client, s.broadcaster), nil
}

func (s *cosmosDirectSigning) Release(cosmosclient.SigningInterface) {}

func (s *cosmosDirectSigning) Dispose() error {
	return nil
}

type cosmosPooledSigning struct {
	pool Pool[cosmosclient.SigningInterface]
}

func (s *cosmosPooledSigning) Acquire(ctx context.Context) (cosmosclient.SigningInterface, error) {
	return s.pool.Acquire(ctx)
}

func (s *cosmosPooledSigning) Release(conn cosmosclient.SigningInterface) {
	s.pool.Release(conn)
}

func (s *cosmosPooledSigning) Dispose() error {
	return s.pool.Dispose()
}
