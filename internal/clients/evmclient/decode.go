package evmclient

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// nativeDenom labels the value locked in the account-model contract; the
// contract escrows the chain's native asset.
const nativeDenom = "wei"

// DecodeLog turns a raw contract log into the shared HTLCEvent. Decoding is a
// pure function of the log, so repeated calls yield structurally equal values.
func DecodeLog(lg ethtypes.Log) (types.HTLCEvent, error) {
	if len(lg.Topics) == 0 {
		return types.HTLCEvent{}, types.NewDecodeError("evm log", fmt.Errorf("log without topics"))
	}

	ev := types.HTLCEvent{
		Chain:       types.ChainEVM,
		OriginUnit:  lg.BlockNumber,
		OriginTxRef: lg.TxHash.Hex(),
	}

	switch lg.Topics[0] {
	case EventIDCreated:
		if len(lg.Topics) < 4 {
			return types.HTLCEvent{}, types.NewDecodeError("evm created log", fmt.Errorf("expected 4 topics, got %d", len(lg.Topics)))
		}
		out, err := ContractABI.Events["HTLCCreated"].Inputs.NonIndexed().Unpack(lg.Data)
		if err != nil {
			return types.HTLCEvent{}, types.NewDecodeError("evm created log", err)
		}
		ev.Type = types.EventHTLCCreated
		ev.HTLCID = lg.Topics[1].Hex()
		ev.Sender = common.BytesToAddress(lg.Topics[2].Bytes()).Hex()
		ev.Receiver = common.BytesToAddress(lg.Topics[3].Bytes()).Hex()
		ev.Amount = []types.Coin{{Denom: nativeDenom, Amount: out[0].(*big.Int).String()}}
		hashlock := out[1].([32]byte)
		ev.Hashlock = common.BytesToHash(hashlock[:]).Hex()
		ev.Timelock = out[2].(*big.Int).Uint64()
		ev.TargetChain = out[3].(string)
		ev.TargetAddress = out[4].(string)
		return ev, nil

	case EventIDWithdrawn:
		if len(lg.Topics) < 2 {
			return types.HTLCEvent{}, types.NewDecodeError("evm withdrawn log", fmt.Errorf("expected 2 topics, got %d", len(lg.Topics)))
		}
		out, err := ContractABI.Events["HTLCWithdrawn"].Inputs.NonIndexed().Unpack(lg.Data)
		if err != nil {
			return types.HTLCEvent{}, types.NewDecodeError("evm withdrawn log", err)
		}
		ev.Type = types.EventHTLCWithdrawn
		ev.HTLCID = lg.Topics[1].Hex()
		secret := out[0].([32]byte)
		ev.Secret = common.BytesToHash(secret[:]).Hex()
		return ev, nil

	case EventIDRefunded:
		if len(lg.Topics) < 2 {
			return types.HTLCEvent{}, types.NewDecodeError("evm refunded log", fmt.Errorf("expected 2 topics, got %d", len(lg.Topics)))
		}
		ev.Type = types.EventHTLCRefunded
		ev.HTLCID = lg.Topics[1].Hex()
		return ev, nil

	default:
		return types.HTLCEvent{}, types.NewDecodeError("evm log", fmt.Errorf("unknown event topic %s", lg.Topics[0].Hex()))
	}
}
