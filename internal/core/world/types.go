package world

import (
	"context"
	"encoding/json"

	"github.com/respp/astrade-world/internal/core/indexer"
)

// ConnectionState is the world connection lifecycle state. Exactly one is
// active at any time and only the connection manager mutates it.
type ConnectionState uint8

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateError
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Entity, QueryFilter and Update originate in the indexer layer; the
// aliases keep the UI-facing surface inside this package.
type (
	Entity      = indexer.Entity
	QueryFilter = indexer.Query
	Update      = indexer.Update
)

// SystemCall is an invocation of an on-chain entrypoint that mutates
// world state and therefore needs a signed transaction.
type SystemCall struct {
	ContractAddress string
	Entrypoint      string
	Calldata        []string
}

// TransactionResult is the signed submission outcome as reported by the
// wallet. Status stays raw; its shape belongs to the wallet provider.
type TransactionResult struct {
	TransactionHash string
	Status          json.RawMessage
}

// Signer is the externally injected signing capability. Key custody and
// authentication state live entirely behind this interface.
type Signer interface {
	Available() bool
	ExecuteTransaction(ctx context.Context, contractAddress, entrypoint string, calldata []string) (TransactionResult, error)
	ExecuteBatch(ctx context.Context, calls []SystemCall) (TransactionResult, error)
}

// ClientBuilder constructs the active indexer client for a connect cycle.
type ClientBuilder interface {
	Build(ctx context.Context, restricted bool) (indexer.Client, error)
}

// ClientSource hands out the active client handle. Components other than
// the connection manager only ever read the handle through this.
type ClientSource interface {
	ActiveClient() (indexer.Client, bool)
}
