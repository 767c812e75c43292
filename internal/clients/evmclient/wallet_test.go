package evmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWallet(t *testing.T) {
	t.Run("derives its address from the key", func(t *testing.T) {
		// Hardhat's first development account.
		w, err := NewWallet("ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80", 31337)
		require.NoError(t, err)
		assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", w.Address().Hex())
	})

	t.Run("rejects malformed key material", func(t *testing.T) {
		_, err := NewWallet("zz-not-hex", 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid refund private key")
	})
}
