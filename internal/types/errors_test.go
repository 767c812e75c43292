package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewConnectionError("dial", cause)

	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "dial")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestKindOf(t *testing.T) {
	t.Run("direct chain error", func(t *testing.T) {
		err := NewFetchError("filter logs", errors.New("boom"))
		assert.Equal(t, ErrKindFetch, KindOf(err))
	})

	t.Run("wrapped chain error", func(t *testing.T) {
		err := fmt.Errorf("cycle failed: %w", NewTimeoutError("head", errors.New("deadline")))
		assert.Equal(t, ErrKindTimeout, KindOf(err))
		assert.True(t, IsKind(err, ErrKindTimeout))
		assert.False(t, IsKind(err, ErrKindDecode))
	})

	t.Run("plain error has no kind", func(t *testing.T) {
		assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	})
}
