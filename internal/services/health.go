package services

import (
	"context"

	"github.com/crosslock-io/htlc-monitor/internal/observability/metrics"
	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// HealthStatus is the aggregate snapshot served on the metrics health
// endpoint.
type HealthStatus struct {
	EVM      types.MonitorHealth    `json:"evm"`
	Cosmos   types.MonitorHealth    `json:"cosmos"`
	Recovery *types.RecoveryStats   `json:"recovery,omitempty"`
	Breakers map[types.Chain]string `json:"breakers,omitempty"`
}

// Health queries both monitors on demand. Head lookups can fail while a
// chain is unreachable; the snapshot still reports the last processed
// watermarks.
func (s *Service) Health(ctx context.Context) HealthStatus {
	status := HealthStatus{
		EVM:    s.evmMonitor.GetHealth(ctx),
		Cosmos: s.cosmosMonitor.GetHealth(ctx),
	}
	if s.recovery != nil {
		stats := s.recovery.Stats()
		status.Recovery = &stats
		status.Breakers = s.recovery.BreakerStates()
	}
	return status
}

// HealthProvider adapts Health for the metrics server.
func (s *Service) HealthProvider() metrics.HealthProvider {
	return func(ctx context.Context) any {
		return s.Health(ctx)
	}
}
