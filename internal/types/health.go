package types

import "time"

// MonitorHealth is a point-in-time snapshot of a chain monitor, recomputed on
// demand and never persisted.
type MonitorHealth struct {
	Running           bool   `json:"running"`
	LastProcessedUnit uint64 `json:"last_processed_unit"`
	CurrentUnit       uint64 `json:"current_unit"`
	UnitsBehind       uint64 `json:"units_behind"`
	ErrorCount        uint64 `json:"error_count"`
	UptimeMs          uint64 `json:"uptime_ms"`
}

// ExpiredHTLC is a refund candidate found by the recovery scan: a lock whose
// timelock has elapsed and that is neither withdrawn nor refunded.
type ExpiredHTLC struct {
	Chain    Chain  `json:"chain"`
	HTLCID   string `json:"htlc_id"`
	Sender   string `json:"sender"`
	Timelock uint64 `json:"timelock"`
}

// RecoveryStats accumulates over the process lifetime.
type RecoveryStats struct {
	LastCheckAt time.Time `json:"last_check_at"`
	Checked     uint64    `json:"checked"`
	Refunded    uint64    `json:"refunded"`
	Errors      uint64    `json:"errors"`
}
