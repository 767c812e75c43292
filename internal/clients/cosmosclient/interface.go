package cosmosclient

import (
	"context"

	abcitypes "github.com/cometbft/cometbft/abci/types"
)

// TxEvents groups the wasm events of a single transaction together with the
// reference of the transaction that emitted them.
type TxEvents struct {
	Height uint64
	TxHash string
	Events []abcitypes.Event
}

type CosmosInterface interface {
	// LatestHeight returns the node's current block height.
	LatestHeight(ctx context.Context) (uint64, error)
	// SearchHTLCTxs searches the transactions of one height for executions of
	// the HTLC contract and returns their events.
	SearchHTLCTxs(ctx context.Context, height uint64) ([]TxEvents, error)
	// BlockEvents fetches the full block results for one height and returns
	// every event in it: the fallback path when tx search is unavailable.
	BlockEvents(ctx context.Context, height uint64) ([]abcitypes.Event, error)
	// ListHTLCs pages through the contract's list_htlcs smart query.
	ListHTLCs(ctx context.Context, startAfter string, limit uint32) ([]HTLCRecord, error)
}

// SigningInterface extends the query surface with refund broadcasting. The
// actual signing lives behind the Broadcaster port; key management is not
// this module's concern.
type SigningInterface interface {
	CosmosInterface
	RefundHTLC(ctx context.Context, htlcID string) (string, error)
	Sender() string
}
