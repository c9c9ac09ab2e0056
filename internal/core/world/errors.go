package world

import (
	"errors"
	"fmt"
)

// Core integration-layer errors
var (
	ErrInvalidConfig      = errors.New("invalid world configuration")
	ErrConnectionFailed   = errors.New("world connection failed")
	ErrQueryFailed        = errors.New("entity query failed")
	ErrSubscriptionFailed = errors.New("entity subscription failed")
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrTransactionFailed  = errors.New("transaction failed")
)

// Kind classifies every error that crosses a component boundary. The
// indexer connection and the wallet connection are independent failure
// domains, so KindConnectionFailed and KindWalletNotConnected are always
// distinguishable.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindInvalidConfig
	KindConnectionFailed
	KindQueryFailed
	KindSubscriptionFailed
	KindWalletNotConnected
	KindTransactionFailed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidConfig:
		return "invalid_config"
	case KindConnectionFailed:
		return "connection_failed"
	case KindQueryFailed:
		return "query_failed"
	case KindSubscriptionFailed:
		return "subscription_failed"
	case KindWalletNotConnected:
		return "wallet_not_connected"
	case KindTransactionFailed:
		return "transaction_failed"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindInvalidConfig:
		return ErrInvalidConfig
	case KindConnectionFailed:
		return ErrConnectionFailed
	case KindQueryFailed:
		return ErrQueryFailed
	case KindSubscriptionFailed:
		return ErrSubscriptionFailed
	case KindWalletNotConnected:
		return ErrWalletNotConnected
	case KindTransactionFailed:
		return ErrTransactionFailed
	default:
		return nil
	}
}

// Error carries a Kind, a human-readable message, and the untranslated
// cause. It matches both its sentinel and its cause through errors.Is.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Retryable reports whether the connection manager may retry after this
// error. Only transient connection failures qualify; a bad config or a
// rejected transaction never does.
func (e *Error) Retryable() bool {
	return e.Kind == KindConnectionFailed
}

// NewError creates an error of the given kind without a cause.
func NewError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError translates an underlying error into the fixed taxonomy.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from any error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
