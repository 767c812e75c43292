package types

// Chain identifies which ledger an event or HTLC originates from.
type Chain string

const (
	ChainEVM    Chain = "evm"
	ChainCosmos Chain = "cosmos"
)

func (c Chain) String() string {
	return string(c)
}

// EventType is the variant tag of an HTLCEvent.
type EventType string

const (
	EventHTLCCreated   EventType = "created"
	EventHTLCWithdrawn EventType = "withdrawn"
	EventHTLCRefunded  EventType = "refunded"
)

func (e EventType) String() string {
	return string(e)
}

// HTLCEvent is the chain-agnostic view of a single lock, withdraw or refund
// observed on either ledger. HTLCID is stable across all three variants that
// refer to the same lock. Fields below the provenance block are only populated
// for the variants that carry them.
type HTLCEvent struct {
	Type   EventType `json:"type"`
	Chain  Chain     `json:"chain"`
	HTLCID string    `json:"htlc_id"`

	// provenance
	OriginUnit  uint64 `json:"origin_unit"`
	OriginTxRef string `json:"origin_tx_ref,omitempty"`

	// created
	Sender        string `json:"sender,omitempty"`
	Receiver      string `json:"receiver,omitempty"`
	Amount        []Coin `json:"amount,omitempty"`
	Hashlock      string `json:"hashlock,omitempty"`
	Timelock      uint64 `json:"timelock,omitempty"`
	TargetChain   string `json:"target_chain,omitempty"`
	TargetAddress string `json:"target_address,omitempty"`

	// withdrawn
	Secret string `json:"secret,omitempty"`
}
