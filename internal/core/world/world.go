// Package world is the integration layer between the app and a deployed
// blockchain world: it maintains the indexer connection, resolves
// contract addresses from the manifest, serves entity queries and live
// subscriptions, and relays signed transactions through an injected
// wallet capability. The UI treats it as a black box with deterministic
// connect, disconnect and reconnect semantics.
package world

import (
	"context"

	"github.com/respp/astrade-world/internal/core/indexer"
	"github.com/respp/astrade-world/internal/core/observability/log"
)

// World is the facade consumed by the UI and mission layers.
type World struct {
	cfg      Config
	logger   log.Log
	manager  *Manager
	query    *QueryService
	relay    *Relay
	resolver *Resolver
}

// New wires a World over the real indexer client factory.
func New(cfg Config, logger log.Log) *World {
	factory := indexer.NewFactory(indexer.Options{
		RPCURL:       cfg.RPCURL,
		IndexerURL:   cfg.IndexerURL,
		WorldAddress: cfg.WorldAddress,
		Namespace:    cfg.Namespace,
		DialTimeout:  cfg.ConnectTimeout,
		PollInterval: cfg.PollInterval,
		StreamBuffer: cfg.SubscriptionBuffer,
	}, logger)
	return NewWithBuilder(cfg, factory, logger)
}

// NewWithBuilder wires a World over any client builder. Tests inject
// fakes through this.
func NewWithBuilder(cfg Config, builder ClientBuilder, logger log.Log) *World {
	logger = logger.With(log.String("component", "world"))
	resolver := NewResolver()
	manager := NewManager(cfg, builder, resolver, logger)

	return &World{
		cfg:      cfg,
		logger:   logger,
		manager:  manager,
		query:    NewQueryService(manager, logger),
		relay:    NewRelay(manager, logger),
		resolver: resolver,
	}
}

// Connect establishes the world connection. With the integration disabled
// by config it does nothing and the state stays DISCONNECTED.
func (w *World) Connect(ctx context.Context) error {
	if !w.cfg.Enabled {
		w.logger.Info("World integration disabled, skipping connect")
		return nil
	}
	return w.manager.Connect(ctx)
}

// Disconnect tears down the connection, all subscriptions and the
// manifest, from any state.
func (w *World) Disconnect() {
	w.manager.Disconnect()
}

// Reconnect drops and re-establishes the connection with a fresh retry
// budget.
func (w *World) Reconnect(ctx context.Context) error {
	if !w.cfg.Enabled {
		return nil
	}
	return w.manager.Reconnect(ctx)
}

func (w *World) State() ConnectionState { return w.manager.State() }
func (w *World) IsConnected() bool      { return w.manager.IsConnected() }
func (w *World) IsLoading() bool        { return w.manager.IsLoading() }
func (w *World) Err() error             { return w.manager.Err() }

// Manifest returns the manifest installed by the last successful
// connect, or nil.
func (w *World) Manifest() *Manifest {
	return w.resolver.Manifest()
}

// FindContract resolves a manifest tag to its deployed contract. It
// misses cleanly before connect.
func (w *World) FindContract(tag string) (Contract, bool) {
	return w.resolver.FindContract(tag)
}

// OnStateChange registers a connection state observer.
func (w *World) OnStateChange(obs StateObserver) {
	w.manager.OnStateChange(obs)
}

// SetSigner injects the wallet signing capability.
func (w *World) SetSigner(s Signer) {
	w.relay.SetSigner(s)
}

// QueryEntities runs a one-shot entity query.
func (w *World) QueryEntities(ctx context.Context, filter QueryFilter) ([]Entity, error) {
	return w.query.QueryEntities(ctx, filter)
}

// SubscribeToEntities opens a live subscription delivering updates to cb.
func (w *World) SubscribeToEntities(ctx context.Context, filter QueryFilter, cb Callback) (*Subscription, error) {
	return w.manager.Registry().Subscribe(ctx, filter, cb)
}

// ExecuteSystemCall relays one system call through the injected signer.
// It is a thin wrapper over the relay's submit path; the two are distinct
// on purpose.
func (w *World) ExecuteSystemCall(ctx context.Context, call SystemCall) (TransactionResult, error) {
	return w.relay.SubmitCall(ctx, call)
}

// ExecuteBatchSystemCalls relays a batch of system calls.
func (w *World) ExecuteBatchSystemCalls(ctx context.Context, calls []SystemCall) (TransactionResult, error) {
	return w.relay.SubmitBatch(ctx, calls)
}

// Stats returns the active client's counters while connected.
func (w *World) Stats() (indexer.Stats, bool) {
	client, ok := w.manager.ActiveClient()
	if !ok {
		return indexer.Stats{}, false
	}
	return client.Stats(), true
}

// Subscriptions reports how many live subscriptions are tracked.
func (w *World) Subscriptions() int {
	return w.manager.Registry().Len()
}
