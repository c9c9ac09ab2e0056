package indexer

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/respp/astrade-world/internal/core/observability/log"
)

var _ Client = (*Restricted)(nil)

// Restricted is the degraded-mode indexer client for execution contexts
// that cannot hold a native push session. Queries work exactly as in
// native mode; subscriptions are emulated by polling the query endpoint
// and publishing only when the response digest changes, so live-update
// fidelity is bounded by the poll interval.
type Restricted struct {
	opts Options
	hc   *http.Client

	mu      sync.Mutex
	cancels map[*stream]context.CancelFunc

	closed    int32 // atomic bool
	startTime time.Time

	queries       uint64 // atomic
	subscriptions uint64 // atomic
	delivered     uint64 // atomic
	dropped       uint64 // atomic

	logger log.Log
}

func NewRestricted(opts Options, logger log.Log) *Restricted {
	opts = opts.withDefaults()
	return &Restricted{
		opts:      opts,
		hc:        &http.Client{Timeout: opts.DialTimeout},
		cancels:   make(map[*stream]context.CancelFunc),
		startTime: time.Now(),
		logger:    logger.With(log.String("client", ModeRestricted.String())),
	}
}

func (r *Restricted) Mode() Mode {
	return ModeRestricted
}

func (r *Restricted) QueryEntities(ctx context.Context, q Query) ([]Entity, error) {
	raw, err := fetchEntities(ctx, r.hc, r.opts, q)
	if err != nil {
		return nil, err
	}
	atomic.AddUint64(&r.queries, 1)
	return parseEntities(raw), nil
}

func (r *Restricted) Subscribe(ctx context.Context, q Query) (Stream, error) {
	if atomic.LoadInt32(&r.closed) == 1 {
		return nil, ErrClientClosed
	}

	// The initial fetch both validates the subscription and seeds the
	// change digest, so the first poll only fires on an actual change.
	raw, err := fetchEntities(ctx, r.hc, r.opts, q)
	if err != nil {
		return nil, err
	}

	s := newStream(r.opts.StreamBuffer, &r.delivered, &r.dropped, r.logger)
	pollCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.cancels[s] = cancel
	r.mu.Unlock()

	atomic.AddUint64(&r.subscriptions, 1)
	go r.poll(pollCtx, s, q, xxhash.Sum64(raw))

	return &restrictedSub{r: r, stream: s}, nil
}

func (r *Restricted) Stats() Stats {
	return Stats{
		Queries:          atomic.LoadUint64(&r.queries),
		Subscriptions:    atomic.LoadUint64(&r.subscriptions),
		UpdatesDelivered: atomic.LoadUint64(&r.delivered),
		UpdatesDropped:   atomic.LoadUint64(&r.dropped),
		Uptime:           time.Since(r.startTime),
	}
}

func (r *Restricted) Close() error {
	if !atomic.CompareAndSwapInt32(&r.closed, 0, 1) {
		return nil
	}

	r.logger.Info("Closing restricted indexer client",
		log.Duration("uptime", time.Since(r.startTime)),
		log.Uint64("queries", atomic.LoadUint64(&r.queries)))

	r.mu.Lock()
	for s, cancel := range r.cancels {
		cancel()
		_ = s.Close()
		delete(r.cancels, s)
	}
	r.mu.Unlock()

	return nil
}

// poll re-runs the subscription query at the configured interval and
// publishes a delta only when the response body digest changes.
func (r *Restricted) poll(ctx context.Context, s *stream, q Query, digest uint64) {
	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		raw, err := fetchEntities(ctx, r.hc, r.opts, q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.publish(Update{Err: err})
			continue
		}
		atomic.AddUint64(&r.queries, 1)

		next := xxhash.Sum64(raw)
		if next == digest {
			continue
		}
		digest = next
		s.publish(Update{Data: parseEntities(raw)})
	}
}

func (r *Restricted) dropStream(s *stream) {
	r.mu.Lock()
	if cancel, ok := r.cancels[s]; ok {
		cancel()
		delete(r.cancels, s)
	}
	r.mu.Unlock()
}

type restrictedSub struct {
	r      *Restricted
	stream *stream
}

func (s *restrictedSub) Updates() <-chan Update { return s.stream.Updates() }
func (s *restrictedSub) Dropped() uint64        { return s.stream.Dropped() }

func (s *restrictedSub) Close() error {
	s.r.dropStream(s.stream)
	return s.stream.Close()
}
