package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can pick a propagation policy
// without string matching: connection and fetch failures are retried, decode
// and handler failures are isolated per item.
type ErrorKind string

const (
	ErrKindConnection ErrorKind = "connection"
	ErrKindFetch      ErrorKind = "fetch"
	ErrKindDecode     ErrorKind = "decode"
	ErrKindHandler    ErrorKind = "handler"
	ErrKindTimeout    ErrorKind = "timeout"
)

// ChainError wraps a chain-facing failure with its kind and the operation
// that produced it.
type ChainError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("%s error in %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ChainError) Unwrap() error {
	return e.Err
}

func NewConnectionError(op string, err error) *ChainError {
	return &ChainError{Kind: ErrKindConnection, Op: op, Err: err}
}

func NewFetchError(op string, err error) *ChainError {
	return &ChainError{Kind: ErrKindFetch, Op: op, Err: err}
}

func NewDecodeError(op string, err error) *ChainError {
	return &ChainError{Kind: ErrKindDecode, Op: op, Err: err}
}

func NewHandlerError(op string, err error) *ChainError {
	return &ChainError{Kind: ErrKindHandler, Op: op, Err: err}
}

func NewTimeoutError(op string, err error) *ChainError {
	return &ChainError{Kind: ErrKindTimeout, Op: op, Err: err}
}

// KindOf returns the kind of the outermost ChainError in err's chain, or the
// empty string when err carries no classification.
func KindOf(err error) ErrorKind {
	var ce *ChainError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
