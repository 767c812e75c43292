package config

import (
	"fmt"
	"time"
)

// MonitorConfig is immutable after construction: defaults are merged in by
// Validate exactly once at load time and never re-derived mid-operation.
type MonitorConfig struct {
	ChainID              string        `mapstructure:"chain-id"`
	PollingInterval      time.Duration `mapstructure:"polling-interval"`
	ErrorPollingInterval time.Duration `mapstructure:"error-polling-interval"`
	MaxUnitsPerBatch     uint64        `mapstructure:"max-units-per-batch"`
	MaxRetryAttempts     uint          `mapstructure:"max-retry-attempts"`
	BaseRetryDelay       time.Duration `mapstructure:"base-retry-delay"`
	// ReorgBuffer is the number of trailing units withheld from processing.
	// Zero is valid and means the chain's finality is trusted immediately.
	ReorgBuffer uint64 `mapstructure:"reorg-buffer"`
}

const (
	defaultPollingInterval      = 10 * time.Second
	defaultErrorPollingInterval = 30 * time.Second
	defaultMaxUnitsPerBatch     = 500
	defaultMaxRetryAttempts     = 3
	defaultBaseRetryDelay       = time.Second
)

func (cfg *MonitorConfig) Validate() error {
	if cfg.ChainID == "" {
		return fmt.Errorf("monitor chain-id is required")
	}
	if cfg.PollingInterval < 0 || cfg.ErrorPollingInterval < 0 {
		return fmt.Errorf("monitor polling intervals must not be negative")
	}
	if cfg.PollingInterval == 0 {
		cfg.PollingInterval = defaultPollingInterval
	}
	if cfg.ErrorPollingInterval == 0 {
		cfg.ErrorPollingInterval = defaultErrorPollingInterval
	}
	if cfg.MaxUnitsPerBatch == 0 {
		cfg.MaxUnitsPerBatch = defaultMaxUnitsPerBatch
	}
	if cfg.MaxRetryAttempts == 0 {
		cfg.MaxRetryAttempts = defaultMaxRetryAttempts
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = defaultBaseRetryDelay
	}
	return nil
}
