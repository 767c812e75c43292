package config

import (
	"fmt"
	"time"
)

type CosmosConfig struct {
	// RPCAddr is the CometBFT RPC URL, protocol prefix included.
	RPCAddr         string        `mapstructure:"rpc-addr"`
	ContractAddress string        `mapstructure:"contract-address"`
	Timeout         time.Duration `mapstructure:"timeout"`
	// ConnectionMode is "direct" or "pooled".
	ConnectionMode string `mapstructure:"connection-mode"`
}

const defaultCosmosTimeout = 20 * time.Second

func (cfg *CosmosConfig) Validate() error {
	if cfg.ConnectionMode == "" {
		cfg.ConnectionMode = "direct"
	}
	if cfg.ConnectionMode == "direct" && cfg.RPCAddr == "" {
		return fmt.Errorf("cosmos rpc-addr is required in direct mode")
	}
	if cfg.ContractAddress == "" {
		return fmt.Errorf("cosmos contract-address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCosmosTimeout
	}
	return nil
}
