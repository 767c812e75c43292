package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	EVM           EVMConfig      `mapstructure:"evm"`
	Cosmos        CosmosConfig   `mapstructure:"cosmos"`
	EVMMonitor    MonitorConfig  `mapstructure:"evm-monitor"`
	CosmosMonitor MonitorConfig  `mapstructure:"cosmos-monitor"`
	Recovery      RecoveryConfig `mapstructure:"recovery"`
	Queue         *QueueConfig   `mapstructure:"queue"`
	Metrics       MetricsConfig  `mapstructure:"metrics"`
}

func (cfg *Config) Validate() error {
	if err := cfg.EVM.Validate(); err != nil {
		return err
	}
	if err := cfg.Cosmos.Validate(); err != nil {
		return err
	}
	if err := cfg.EVMMonitor.Validate(); err != nil {
		return err
	}
	if err := cfg.CosmosMonitor.Validate(); err != nil {
		return err
	}
	if err := cfg.Recovery.Validate(); err != nil {
		return err
	}
	// Queue config is optional; without it decoded events are only delivered
	// to in-process handlers.
	if cfg.Queue != nil {
		if err := cfg.Queue.Validate(); err != nil {
			return err
		}
	}
	return cfg.Metrics.Validate()
}

// New loads the YAML config at the given path and validates it, merging
// section defaults exactly once.
func New(cfgPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(cfgPath)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", cfgPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
