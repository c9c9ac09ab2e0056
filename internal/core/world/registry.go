package world

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/respp/astrade-world/internal/core/indexer"
	"github.com/respp/astrade-world/internal/core/observability/log"
)

// Callback receives one Update per underlying push event, in transport
// arrival order. It runs on the subscription's pump goroutine, so slow
// callbacks apply backpressure to that subscription only.
type Callback func(Update)

// Registry creates, tracks and cancels live entity subscriptions. Every
// open subscription is reachable from here, which is what lets
// Disconnect guarantee an empty registry with no orphaned listeners.
type Registry struct {
	source ClientSource
	logger log.Log

	mu   sync.Mutex
	subs map[string]*Subscription
}

func NewRegistry(source ClientSource, logger log.Log) *Registry {
	return &Registry{
		source: source,
		logger: logger.With(log.String("component", "subscription_registry")),
		subs:   make(map[string]*Subscription),
	}
}

// Subscribe opens one new tracked subscription. Identical filters get
// independent subscriptions on purpose; two subscribers never share a
// cancellation.
func (r *Registry) Subscribe(ctx context.Context, filter QueryFilter, cb Callback) (*Subscription, error) {
	client, ok := r.source.ActiveClient()
	if !ok {
		return nil, NewError(KindConnectionFailed, "no active world connection")
	}

	stream, err := client.Subscribe(ctx, filter)
	if err != nil {
		return nil, WrapError(KindSubscriptionFailed, "open subscription", err)
	}

	sub := &Subscription{
		id:     uuid.NewString(),
		reg:    r,
		stream: stream,
	}

	r.mu.Lock()
	r.subs[sub.id] = sub
	r.mu.Unlock()

	go sub.pump(cb)

	r.logger.Debug("Subscription registered", log.String("subscription_id", sub.id))
	return sub, nil
}

// Len reports how many subscriptions are currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// CancelAll empties the registry. Individual cancel failures are logged,
// never propagated; after it returns the registry is empty.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		subs = append(subs, sub)
	}
	r.mu.Unlock()

	for _, sub := range subs {
		if err := sub.cancel(); err != nil {
			r.logger.Warn("Subscription cancel failed",
				log.String("subscription_id", sub.id),
				log.Error(err))
		}
	}
}

func (r *Registry) remove(id string) {
	r.mu.Lock()
	delete(r.subs, id)
	r.mu.Unlock()
}

// Subscription is the opaque handle returned by Subscribe. Cancel is
// idempotent and safe after the owning connection is gone.
type Subscription struct {
	id        string
	reg       *Registry
	stream    indexer.Stream
	cancelled int32 // atomic bool
}

// ID returns the registry identity of this subscription.
func (s *Subscription) ID() string {
	return s.id
}

// Dropped reports how many updates overflowed this subscription's buffer.
func (s *Subscription) Dropped() uint64 {
	return s.stream.Dropped()
}

// Cancel stops delivery. After it returns no further callback invocation
// happens; an update already in flight is discarded.
func (s *Subscription) Cancel() {
	if err := s.cancel(); err != nil {
		s.reg.logger.Warn("Subscription cancel failed",
			log.String("subscription_id", s.id),
			log.Error(err))
	}
}

func (s *Subscription) cancel() error {
	if !atomic.CompareAndSwapInt32(&s.cancelled, 0, 1) {
		return nil
	}
	s.reg.remove(s.id)
	return s.stream.Close()
}

// pump drains the stream into the callback until the stream closes or
// the subscription is cancelled.
func (s *Subscription) pump(cb Callback) {
	for update := range s.stream.Updates() {
		if atomic.LoadInt32(&s.cancelled) == 1 {
			return
		}
		cb(update)
	}
}
