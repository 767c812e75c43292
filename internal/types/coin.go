package types

import (
	"encoding/json"
	"strings"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Coin is a denominated amount as emitted in contract event attributes.
// Amount stays a decimal string so arbitrarily large values survive
// serialization unchanged.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// ParseAmount decodes the amount attribute of a created event. The attribute
// arrives in one of three shapes: a JSON array of coins, a single JSON coin
// object, or a bare "<digits><denom>" string. Absence and malformed input both
// decode to an empty slice; this function never fails.
func ParseAmount(raw string) []Coin {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []Coin{}
	}

	switch raw[0] {
	case '[':
		var coins []Coin
		if err := json.Unmarshal([]byte(raw), &coins); err != nil {
			return []Coin{}
		}
		return validCoins(coins)
	case '{':
		var coin Coin
		if err := json.Unmarshal([]byte(raw), &coin); err != nil {
			return []Coin{}
		}
		return validCoins([]Coin{coin})
	default:
		parsed, err := sdk.ParseCoinNormalized(raw)
		if err != nil {
			return []Coin{}
		}
		return []Coin{{Denom: parsed.Denom, Amount: parsed.Amount.String()}}
	}
}

// validCoins drops coins whose amount is not a well-formed integer. A coin
// with an empty denom or unparseable amount is treated like any other decode
// failure: it yields nothing rather than a partial value.
func validCoins(coins []Coin) []Coin {
	out := make([]Coin, 0, len(coins))
	for _, c := range coins {
		if c.Denom == "" {
			continue
		}
		if _, ok := sdkmath.NewIntFromString(c.Amount); !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}
