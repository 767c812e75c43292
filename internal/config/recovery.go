package config

import (
	"fmt"
	"time"
)

type RecoveryConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	CheckInterval time.Duration `mapstructure:"check-interval"`
	// LookbackUnits bounds the creation-event scan on the account-model
	// chain; locks created further back than this are outside the recovery
	// horizon (logged at startup).
	LookbackUnits uint64 `mapstructure:"lookback-units"`
	// PageLimit sizes the list_htlcs pages on the CometBFT chain.
	PageLimit  uint32        `mapstructure:"page-limit"`
	MaxRetries uint          `mapstructure:"max-retries"`
	RetryDelay time.Duration `mapstructure:"retry-delay"`
	// EVMRefundKey is the hex private key of the refund sender on the
	// account-model chain, typically injected via environment.
	EVMRefundKey string `mapstructure:"evm-refund-key"`
	// CosmosSender is the bech32 address refunds are authorized for on the
	// CometBFT chain; must match the broadcaster's key.
	CosmosSender string        `mapstructure:"cosmos-sender"`
	Breaker      BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	FailureThreshold uint64        `mapstructure:"failure-threshold"`
	SuccessThreshold uint64        `mapstructure:"success-threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MonitoringPeriod time.Duration `mapstructure:"monitoring-period"`
	ResetTimeout     time.Duration `mapstructure:"reset-timeout"`
}

const (
	defaultCheckInterval = time.Minute
	defaultLookbackUnits = 5000
	defaultPageLimit     = 100
	defaultMaxRetries    = 3
	defaultRetryDelay    = 2 * time.Second
)

func (cfg *RecoveryConfig) Validate() error {
	if !cfg.Enabled {
		return nil
	}
	if cfg.CheckInterval < 0 {
		return fmt.Errorf("recovery check-interval must not be negative")
	}
	if cfg.CheckInterval == 0 {
		cfg.CheckInterval = defaultCheckInterval
	}
	if cfg.LookbackUnits == 0 {
		cfg.LookbackUnits = defaultLookbackUnits
	}
	if cfg.PageLimit == 0 {
		cfg.PageLimit = defaultPageLimit
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	return nil
}
