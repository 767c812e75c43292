package evmclient

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// refundGasLimit is a fixed ceiling for refund transactions; the contract's
// refund path touches a single storage slot and a transfer.
const refundGasLimit = 150_000

const htlcABIJSON = `[
	{"type":"event","name":"HTLCCreated","inputs":[
		{"name":"htlcId","type":"bytes32","indexed":true},
		{"name":"sender","type":"address","indexed":true},
		{"name":"receiver","type":"address","indexed":true},
		{"name":"amount","type":"uint256","indexed":false},
		{"name":"hashlock","type":"bytes32","indexed":false},
		{"name":"timelock","type":"uint256","indexed":false},
		{"name":"targetChain","type":"string","indexed":false},
		{"name":"targetAddress","type":"string","indexed":false}]},
	{"type":"event","name":"HTLCWithdrawn","inputs":[
		{"name":"htlcId","type":"bytes32","indexed":true},
		{"name":"secret","type":"bytes32","indexed":false}]},
	{"type":"event","name":"HTLCRefunded","inputs":[
		{"name":"htlcId","type":"bytes32","indexed":true}]},
	{"type":"function","name":"getHTLC","stateMutability":"view","inputs":[
		{"name":"htlcId","type":"bytes32"}],"outputs":[
		{"name":"sender","type":"address"},
		{"name":"receiver","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"hashlock","type":"bytes32"},
		{"name":"timelock","type":"uint256"},
		{"name":"withdrawn","type":"bool"},
		{"name":"refunded","type":"bool"}]},
	{"type":"function","name":"hasHTLC","stateMutability":"view","inputs":[
		{"name":"htlcId","type":"bytes32"}],"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"refund","stateMutability":"nonpayable","inputs":[
		{"name":"htlcId","type":"bytes32"}],"outputs":[]}
]`

// ContractABI is the parsed HTLC contract ABI, exported so decoders and tests
// can pack and unpack event payloads against the same definition.
var ContractABI = mustParseABI(htlcABIJSON)

var (
	EventIDCreated   = ContractABI.Events["HTLCCreated"].ID
	EventIDWithdrawn = ContractABI.Events["HTLCWithdrawn"].ID
	EventIDRefunded  = ContractABI.Events["HTLCRefunded"].ID
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid HTLC contract ABI: %v", err))
	}
	return parsed
}

// HTLCState is the on-chain record returned by getHTLC.
type HTLCState struct {
	Sender    common.Address
	Receiver  common.Address
	Amount    *big.Int
	Hashlock  [32]byte
	Timelock  uint64
	Withdrawn bool
	Refunded  bool
}

// Client wraps an ethclient connection scoped to one HTLC contract.
type Client struct {
	eth      *ethclient.Client
	contract common.Address
}

func Dial(ctx context.Context, endpoint string, contract common.Address) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial EVM endpoint: %w", err)
	}
	return &Client{eth: eth, contract: contract}, nil
}

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.eth.BlockNumber(ctx)
}

func (c *Client) FilterHTLCLogs(ctx context.Context, from, to uint64) ([]ethtypes.Log, error) {
	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{c.contract},
		Topics: [][]common.Hash{
			{EventIDCreated, EventIDWithdrawn, EventIDRefunded},
		},
	}
	logs, err := c.eth.FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter HTLC logs for blocks [%d, %d]: %w", from, to, err)
	}
	return logs, nil
}

func (c *Client) GetHTLC(ctx context.Context, htlcID common.Hash) (*HTLCState, error) {
	data, err := ContractABI.Pack("getHTLC", htlcID)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getHTLC call: %w", err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("getHTLC call failed: %w", err)
	}

	out, err := ContractABI.Unpack("getHTLC", raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getHTLC result: %w", err)
	}
	if len(out) != 7 {
		return nil, fmt.Errorf("getHTLC returned %d values, expected 7", len(out))
	}

	return &HTLCState{
		Sender:    out[0].(common.Address),
		Receiver:  out[1].(common.Address),
		Amount:    out[2].(*big.Int),
		Hashlock:  out[3].([32]byte),
		Timelock:  out[4].(*big.Int).Uint64(),
		Withdrawn: out[5].(bool),
		Refunded:  out[6].(bool),
	}, nil
}

func (c *Client) HTLCExists(ctx context.Context, htlcID common.Hash) (bool, error) {
	data, err := ContractABI.Pack("hasHTLC", htlcID)
	if err != nil {
		return false, fmt.Errorf("failed to pack hasHTLC call: %w", err)
	}

	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		return false, fmt.Errorf("hasHTLC call failed: %w", err)
	}

	out, err := ContractABI.Unpack("hasHTLC", raw)
	if err != nil {
		return false, fmt.Errorf("failed to unpack hasHTLC result: %w", err)
	}
	return out[0].(bool), nil
}

func (c *Client) RefundHTLC(ctx context.Context, wallet *Wallet, htlcID common.Hash) (string, error) {
	data, err := ContractABI.Pack("refund", htlcID)
	if err != nil {
		return "", fmt.Errorf("failed to pack refund call: %w", err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, wallet.Address())
	if err != nil {
		return "", fmt.Errorf("failed to get pending nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := ethtypes.NewTx(&ethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Gas:      refundGasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := wallet.SignTx(tx)
	if err != nil {
		return "", fmt.Errorf("failed to sign refund tx: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to broadcast refund tx: %w", err)
	}
	return signed.Hash().Hex(), nil
}

func (c *Client) Close() {
	c.eth.Close()
}
