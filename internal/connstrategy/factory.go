package connstrategy

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crosslock-io/htlc-monitor/internal/clients/cosmosclient"
	"github.com/crosslock-io/htlc-monitor/internal/clients/evmclient"
)

// Mode selects how a strategy obtains connections.
type Mode string

const (
	ModeDirect Mode = "direct"
	ModePooled Mode = "pooled"
)

// EvmOptions configures the account-model chain strategies. Pool is required
// in pooled mode, Endpoint and Contract in direct mode.
type EvmOptions struct {
	Endpoint string
	Contract string
	Pool     Pool[evmclient.EvmInterface]
}

// CosmosOptions configures the CometBFT chain strategies. Broadcaster is
// required for signing strategies (direct mode); SigningPool for pooled
// signing.
type CosmosOptions struct {
	RPCAddr     string
	Contract    string
	Timeout     time.Duration
	Pool        Pool[cosmosclient.CosmosInterface]
	SigningPool Pool[cosmosclient.SigningInterface]
	Broadcaster cosmosclient.Broadcaster
}

func NewEvmQueryStrategy(mode Mode, opts EvmOptions) (Strategy[evmclient.EvmInterface], error) {
	switch mode {
	case ModeDirect:
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("evm direct query strategy requires an endpoint URL")
		}
		if !common.IsHexAddress(opts.Contract) {
			return nil, fmt.Errorf("evm direct query strategy requires a valid contract address, got %q", opts.Contract)
		}
		return &evmDirectQuery{
			endpoint: opts.Endpoint,
			contract: common.HexToAddress(opts.Contract),
		}, nil
	case ModePooled:
		if opts.Pool == nil {
			return nil, fmt.Errorf("evm pooled query strategy requires a pool handle")
		}
		return &evmPooledQuery{pool: opts.Pool}, nil
	default:
		return nil, fmt.Errorf("unknown evm connection mode %q", mode)
	}
}

func NewCosmosQueryStrategy(mode Mode, opts CosmosOptions) (Strategy[cosmosclient.CosmosInterface], error) {
	switch mode {
	case ModeDirect:
		if opts.RPCAddr == "" {
			return nil, fmt.Errorf("cosmos direct query strategy requires an RPC address")
		}
		if opts.Contract == "" {
			return nil, fmt.Errorf("cosmos direct query strategy requires a contract address")
		}
		return &cosmosDirectQuery{
			rpcAddr:  opts.RPCAddr,
			contract: opts.Contract,
			timeout:  opts.Timeout,
		}, nil
	case ModePooled:
		if opts.Pool == nil {
			return nil, fmt.Errorf("cosmos pooled query strategy requires a pool handle")
		}
		return &cosmosPooledQuery{pool: opts.Pool}, nil
	default:
		return nil, fmt.Errorf("unknown cosmos connection mode %q", mode)
	}
}

func NewCosmosSigningStrategy(mode Mode, opts CosmosOptions) (Strategy[cosmosclient.SigningInterface], error) {
	switch mode {
	case ModeDirect:
		if opts.RPCAddr == "" {
			return nil, fmt.Errorf("cosmos direct signing strategy requires an RPC address")
		}
		if opts.Contract == "" {
			return nil, fmt.Errorf("cosmos direct signing strategy requires a contract address")
		}
		if opts.Broadcaster == nil {
			return nil, fmt.Errorf("cosmos direct signing strategy requires a broadcaster")
		}
		return &cosmosDirectSigning{
			rpcAddr:     opts.RPCAddr,
			contract:    opts.Contract,
			timeout:     opts.Timeout,
			broadcaster: opts.Broadcaster,
		}, nil
	case ModePooled:
		if opts.SigningPool == nil {
			return nil, fmt.Errorf("cosmos pooled signing strategy requires a pool handle")
		}
		return &cosmosPooledSigning{pool: opts.SigningPool}, nil
	default:
		return nil, fmt.Errorf("unknown cosmos connection mode %q", mode)
	}
}
