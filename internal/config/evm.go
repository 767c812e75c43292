package config

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type EVMConfig struct {
	// Endpoint is the JSON-RPC URL of the account-model chain node.
	Endpoint        string `mapstructure:"endpoint"`
	ContractAddress string `mapstructure:"contract-address"`
	ChainID         int64  `mapstructure:"chain-id"`
	// ConnectionMode is "direct" or "pooled".
	ConnectionMode string `mapstructure:"connection-mode"`
}

func (cfg *EVMConfig) Validate() error {
	if cfg.ConnectionMode == "" {
		cfg.ConnectionMode = "direct"
	}
	if cfg.ConnectionMode == "direct" && cfg.Endpoint == "" {
		return fmt.Errorf("evm endpoint is required in direct mode")
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return fmt.Errorf("evm contract-address %q is not a valid address", cfg.ContractAddress)
	}
	if cfg.ChainID <= 0 {
		return fmt.Errorf("evm chain-id must be positive")
	}
	return nil
}
