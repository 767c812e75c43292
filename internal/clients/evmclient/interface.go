package evmclient

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

type EvmInterface interface {
	// BlockNumber returns the current chain head.
	BlockNumber(ctx context.Context) (uint64, error)
	// FilterHTLCLogs fetches the created, withdrawn and refunded logs of the
	// HTLC contract for the inclusive block range [from, to] in one call.
	FilterHTLCLogs(ctx context.Context, from, to uint64) ([]ethtypes.Log, error)
	// GetHTLC is a read-through state query for a single lock.
	GetHTLC(ctx context.Context, htlcID common.Hash) (*HTLCState, error)
	HTLCExists(ctx context.Context, htlcID common.Hash) (bool, error)
	// RefundHTLC broadcasts a refund transaction signed by the given wallet
	// and returns the transaction hash.
	RefundHTLC(ctx context.Context, wallet *Wallet, htlcID common.Hash) (string, error)
	Close()
}
