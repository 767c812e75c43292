// Package consumer defines the egress surface the external relay
// orchestrator consumes decoded HTLC events through.
package consumer

import (
	"context"

	"github.com/crosslock-io/htlc-monitor/internal/types"
)

type EventConsumer interface {
	Start(ctx context.Context) error
	PushHTLCEvent(ctx context.Context, ev *types.HTLCEvent) error
	Stop() error
}
