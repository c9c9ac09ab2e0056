// Package indexer contains the clients that speak to the world indexer.
// Two interchangeable implementations exist: a native one holding a
// persistent WebSocket session for push updates, and a restricted one that
// emulates subscriptions by polling over plain HTTP. Callers obtain a
// client through the Factory and never branch on execution context again.
package indexer

import (
	"context"
	"encoding/json"
	"time"
)

// Mode identifies which client strategy is backing a handle.
type Mode uint8

const (
	ModeNative Mode = iota
	ModeRestricted
)

func (m Mode) String() string {
	switch m {
	case ModeNative:
		return "native"
	case ModeRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// Query selects entities by key and model name within a world namespace.
type Query struct {
	Keys   []string
	Models []string
}

// Entity is a keyed bundle of model data grouped by namespace and model.
type Entity struct {
	ID     string
	Models map[string]map[string]json.RawMessage
}

// Update is a single push delivery for a subscription. Exactly one of
// Data or Err is set.
type Update struct {
	Data []Entity
	Err  error
}

// Stream is a live feed of updates for one subscription. Updates are
// delivered in transport arrival order; when the internal buffer is full
// the newest update is dropped and counted instead of blocking the
// transport.
type Stream interface {
	Updates() <-chan Update
	Dropped() uint64
	Close() error
}

// Client is the strategy interface over the two indexer backends.
type Client interface {
	Mode() Mode
	QueryEntities(ctx context.Context, q Query) ([]Entity, error)
	Subscribe(ctx context.Context, q Query) (Stream, error)
	Stats() Stats
	Close() error
}

// Stats contains client-level counters in the spirit of transport stats.
type Stats struct {
	Queries          uint64
	Subscriptions    uint64
	UpdatesDelivered uint64
	UpdatesDropped   uint64
	Uptime           time.Duration
}

// Options holds the shared configuration for both client implementations.
type Options struct {
	RPCURL       string
	IndexerURL   string
	WorldAddress string
	Namespace    string

	DialTimeout  time.Duration
	PollInterval time.Duration
	StreamBuffer int
}

func (o Options) withDefaults() Options {
	if o.DialTimeout <= 0 {
		o.DialTimeout = 10 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.StreamBuffer <= 0 {
		o.StreamBuffer = 64
	}
	return o
}
