// Package connstrategy hides whether a chain connection is constructed fresh
// per call or borrowed from an externally owned pool. Monitors and the
// recovery service only ever see the Strategy contract.
package connstrategy

import (
	"context"

	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// Strategy is the uniform acquire/release/dispose contract. Every Acquire
// must be paired with a Release on the same connection, even on error paths.
type Strategy[C any] interface {
	Acquire(ctx context.Context) (C, error)
	Release(conn C)
	Dispose() error
}

// Pool is the externally owned connection pool a pooled strategy borrows
// from. Pool sizing, endpoint rotation and health management live with the
// pool's owner, not here.
type Pool[C any] interface {
	Acquire(ctx context.Context) (C, error)
	Release(conn C)
	Dispose() error
	Stats() PoolStats
}

// PoolStats mirrors the stats surface of the consumed pool interface.
type PoolStats struct {
	Size  int `json:"size"`
	Idle  int `json:"idle"`
	InUse int `json:"in_use"`
}

// WithConn scopes a connection to a single operation: acquire immediately
// before use, release in a deferred block so a failing op never leaks a
// pooled connection.
func WithConn[C any, T any](ctx context.Context, s Strategy[C], op func(conn C) (T, error)) (T, error) {
	conn, err := s.Acquire(ctx)
	if err != nil {
		var zero T
		return zero, types.NewConnectionError("acquire", err)
	}
	defer s.Release(conn)

	return op(conn)
}
