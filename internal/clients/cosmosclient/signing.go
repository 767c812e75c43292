package cosmosclient

import (
	"context"
	"encoding/json"
	"fmt"
)

// Broadcaster signs and broadcasts a contract execution on behalf of the
// configured sender. Implementations own the keyring and the tx encoding;
// this module only hands them the execute message.
type Broadcaster interface {
	ExecuteContract(ctx context.Context, contract string, msg []byte) (txHash string, err error)
	Sender() string
}

type refundMsg struct {
	RefundHTLC struct {
		HTLCID string `json:"htlc_id"`
	} `json:"refund_htlc"`
}

// SigningClient couples the query client with a Broadcaster so refund
// execution travels through the same connection value the strategy hands out.
type SigningClient struct {
	*Client
	broadcaster Broadcaster
}

func NewSigningClient(client *Client, broadcaster Broadcaster) *SigningClient {
	return &SigningClient{Client: client, broadcaster: broadcaster}
}

func (s *SigningClient) RefundHTLC(ctx context.Context, htlcID string) (string, error) {
	var msg refundMsg
	msg.RefundHTLC.HTLCID = htlcID
	raw, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal refund_htlc message: %w", err)
	}
	return s.broadcaster.ExecuteContract(ctx, s.contract, raw)
}

func (s *SigningClient) Sender() string {
	return s.broadcaster.Sender()
}
