package evmclient

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet signs refund transactions for a single sender address. Key material
// comes from the caller; this package never loads or stores keys itself.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
	signer  ethtypes.Signer
}

func NewWallet(hexKey string, chainID int64) (*Wallet, error) {
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("invalid refund private key: %w", err)
	}
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		signer:  ethtypes.LatestSignerForChainID(big.NewInt(chainID)),
	}, nil
}

func (w *Wallet) Address() common.Address {
	return w.address
}

func (w *Wallet) SignTx(tx *ethtypes.Transaction) (*ethtypes.Transaction, error) {
	return ethtypes.SignTx(tx, w.signer, w.key)
}
