package cosmosclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	abcitypes "github.com/cometbft/cometbft/abci/types"
	rpchttp "github.com/cometbft/cometbft/rpc/client/http"
	"github.com/cosmos/gogoproto/proto"

	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// txSearchPageSize bounds one tx_search page; a single height holding more
// than this many contract executions is not a case the public endpoints
// return reliably anyway.
const txSearchPageSize = 100

const smartQueryPath = "/cosmwasm.wasm.v1.Query/SmartContractState"

// HTLCRecord is the contract's stored view of a lock, as returned by the
// list_htlcs smart query.
type HTLCRecord struct {
	ID            string       `json:"id"`
	Sender        string       `json:"sender"`
	Receiver      string       `json:"receiver"`
	Amount        []types.Coin `json:"amount"`
	Hashlock      string       `json:"hashlock"`
	Timelock      uint64       `json:"timelock"`
	Withdrawn     bool         `json:"withdrawn"`
	Refunded      bool         `json:"refunded"`
	TargetChain   string       `json:"target_chain"`
	TargetAddress string       `json:"target_address"`
}

type listHTLCsQuery struct {
	ListHTLCs struct {
		StartAfter string `json:"start_after,omitempty"`
		Limit      uint32 `json:"limit"`
	} `json:"list_htlcs"`
}

type listHTLCsResponse struct {
	HTLCs []HTLCRecord `json:"htlcs"`
}

// Client is a query client for one HTLC contract on a CometBFT chain.
type Client struct {
	rpc      *rpchttp.HTTP
	contract string
}

func New(rpcAddr, contract string, timeout time.Duration) (*Client, error) {
	rpc, err := rpchttp.NewWithTimeout(rpcAddr, "/websocket", uint(timeout.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("failed to create CometBFT RPC client: %w", err)
	}
	return &Client{rpc: rpc, contract: contract}, nil
}

func (c *Client) LatestHeight(ctx context.Context) (uint64, error) {
	status, err := c.rpc.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch node status: %w", err)
	}
	return uint64(status.SyncInfo.LatestBlockHeight), nil
}

func (c *Client) SearchHTLCTxs(ctx context.Context, height uint64) ([]TxEvents, error) {
	query := fmt.Sprintf("wasm._contract_address='%s' AND tx.height=%d", c.contract, height)
	page, perPage := 1, txSearchPageSize

	result, err := c.rpc.TxSearch(ctx, query, false, &page, &perPage, "asc")
	if err != nil {
		return nil, fmt.Errorf("tx search at height %d failed: %w", height, err)
	}

	out := make([]TxEvents, 0, len(result.Txs))
	for _, tx := range result.Txs {
		out = append(out, TxEvents{
			Height: uint64(tx.Height),
			TxHash: tx.Hash.String(),
			Events: tx.TxResult.Events,
		})
	}
	return out, nil
}

func (c *Client) BlockEvents(ctx context.Context, height uint64) ([]abcitypes.Event, error) {
	h := int64(height)
	results, err := c.rpc.BlockResults(ctx, &h)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch block results for height %d: %w", height, err)
	}

	var events []abcitypes.Event
	for _, txResult := range results.TxsResults {
		events = append(events, txResult.Events...)
	}
	events = append(events, results.FinalizeBlockEvents...)
	return events, nil
}

func (c *Client) ListHTLCs(ctx context.Context, startAfter string, limit uint32) ([]HTLCRecord, error) {
	var msg listHTLCsQuery
	msg.ListHTLCs.StartAfter = startAfter
	msg.ListHTLCs.Limit = limit
	queryData, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal list_htlcs query: %w", err)
	}

	req := &QuerySmartContractStateRequest{Address: c.contract, QueryData: queryData}
	reqBytes, err := proto.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal smart query request: %w", err)
	}

	result, err := c.rpc.ABCIQuery(ctx, smartQueryPath, reqBytes)
	if err != nil {
		return nil, fmt.Errorf("smart contract query failed: %w", err)
	}
	if result.Response.Code != 0 {
		return nil, fmt.Errorf("smart contract query rejected: %s", result.Response.Log)
	}

	var resp QuerySmartContractStateResponse
	if err := proto.Unmarshal(result.Response.Value, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal smart query response: %w", err)
	}

	var listed listHTLCsResponse
	if err := json.Unmarshal(resp.Data, &listed); err != nil {
		return nil, fmt.Errorf("failed to decode list_htlcs response: %w", err)
	}
	return listed.HTLCs, nil
}
