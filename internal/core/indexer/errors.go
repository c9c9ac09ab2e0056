package indexer

import "errors"

var (
	ErrClientClosed = errors.New("indexer client is closed")
	ErrSessionLost  = errors.New("indexer session lost")
	ErrUnreachable  = errors.New("indexer unreachable")
)

// PushError is a transport-level error frame relayed to a subscription.
type PushError struct {
	Message string
}

func (e *PushError) Error() string {
	if e.Message == "" {
		return "indexer push error"
	}
	return "indexer push error: " + e.Message
}
