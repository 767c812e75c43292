package recovery

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crosslock-io/htlc-monitor/internal/clients/cosmosclient"
	"github.com/crosslock-io/htlc-monitor/internal/clients/evmclient"
	"github.com/crosslock-io/htlc-monitor/internal/connstrategy"
)

// Refunder broadcasts a refund for one expired lock on behalf of a single
// sender address. Refunds are sender-restricted by contract design, so the
// address doubles as the authorization check.
type Refunder interface {
	RefundHTLC(ctx context.Context, htlcID string) (txHash string, err error)
	Sender() string
}

type evmRefunder struct {
	strategy connstrategy.Strategy[evmclient.EvmInterface]
	wallet   *evmclient.Wallet
}

// NewEVMRefunder refunds through the account-model chain's query strategy,
// signing with the given wallet.
func NewEVMRefunder(strategy connstrategy.Strategy[evmclient.EvmInterface], wallet *evmclient.Wallet) Refunder {
	return &evmRefunder{strategy: strategy, wallet: wallet}
}

func (r *evmRefunder) RefundHTLC(ctx context.Context, htlcID string) (string, error) {
	return connstrategy.WithConn(ctx, r.strategy, func(conn evmclient.EvmInterface) (string, error) {
		return conn.RefundHTLC(ctx, r.wallet, common.HexToHash(htlcID))
	})
}

func (r *evmRefunder) Sender() string {
	return r.wallet.Address().Hex()
}

type cosmosRefunder struct {
	strategy connstrategy.Strategy[cosmosclient.SigningInterface]
	sender   string
}

// NewCosmosRefunder refunds through a signing connection strategy; sender is
// the bech32 address the backing broadcaster signs for.
func NewCosmosRefunder(strategy connstrategy.Strategy[cosmosclient.SigningInterface], sender string) Refunder {
	return &cosmosRefunder{strategy: strategy, sender: sender}
}

func (r *cosmosRefunder) RefundHTLC(ctx context.Context, htlcID string) (string, error) {
	return connstrategy.WithConn(ctx, r.strategy, func(conn cosmosclient.SigningInterface) (string, error) {
		return conn.RefundHTLC(ctx, htlcID)
	})
}

func (r *cosmosRefunder) Sender() string {
	return r.sender
}
