package cosmosclient

import (
	"encoding/base64"
	"strconv"
	"strings"

	abcitypes "github.com/cometbft/cometbft/abci/types"

	"github.com/crosslock-io/htlc-monitor/internal/types"
)

// Actions emitted by the HTLC contract in its wasm event attributes.
const (
	actionCreate   = "create_htlc"
	actionWithdraw = "withdraw_htlc"
	actionRefund   = "refund_htlc"
)

// wasmEventType is the event type CosmWasm contracts emit their attributes
// under. Custom-typed events arrive prefixed with "wasm-".
const wasmEventType = "wasm"

// DecodeWasmEvent turns one wasm event into the shared HTLCEvent. The second
// return value is false when the event is not an HTLC event: wrong event
// type, unrecognized action, or missing htlc_id. Decoding is pure, so the
// same raw event always yields a structurally equal result.
func DecodeWasmEvent(ev abcitypes.Event, height uint64, txRef string) (types.HTLCEvent, bool) {
	if ev.Type != wasmEventType && !strings.HasPrefix(ev.Type, wasmEventType+"-") {
		return types.HTLCEvent{}, false
	}

	attrs := make(map[string]string, len(ev.Attributes))
	for _, attr := range ev.Attributes {
		attrs[decodeAttr(attr.Key)] = decodeAttr(attr.Value)
	}

	htlcID := attrs["htlc_id"]
	if htlcID == "" {
		return types.HTLCEvent{}, false
	}

	out := types.HTLCEvent{
		Chain:       types.ChainCosmos,
		HTLCID:      htlcID,
		OriginUnit:  height,
		OriginTxRef: txRef,
	}

	switch attrs["action"] {
	case actionCreate:
		out.Type = types.EventHTLCCreated
		out.Sender = attrs["sender"]
		out.Receiver = attrs["receiver"]
		out.Amount = types.ParseAmount(attrs["amount"])
		out.Hashlock = attrs["hashlock"]
		out.Timelock = parseUint(attrs["timelock"])
		out.TargetChain = attrs["target_chain"]
		out.TargetAddress = attrs["target_address"]
	case actionWithdraw:
		out.Type = types.EventHTLCWithdrawn
		out.Secret = attrs["secret"]
	case actionRefund:
		out.Type = types.EventHTLCRefunded
	default:
		return types.HTLCEvent{}, false
	}

	return out, true
}

// decodeAttr handles endpoints that still return base64-encoded attribute
// strings: attempt base64 and fall back to the raw value. A decoded result
// containing non-printable bytes is taken as evidence the value was not
// base64 in the first place.
func decodeAttr(v string) string {
	decoded, err := base64.StdEncoding.DecodeString(v)
	if err != nil {
		return v
	}
	for _, b := range decoded {
		if b < 0x20 || b > 0x7e {
			return v
		}
	}
	return string(decoded)
}

func parseUint(v string) uint64 {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
