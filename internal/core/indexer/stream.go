package indexer

import (
	"sync"
	"sync/atomic"

	"github.com/respp/astrade-world/internal/core/observability/log"
)

var _ Stream = (*stream)(nil)

// stream is the buffered delivery queue shared by both client
// implementations. publish never blocks the producer: when the buffer is
// full the update is dropped and counted.
type stream struct {
	ch      chan Update
	mu      sync.Mutex
	closed  bool
	dropped uint64 // atomic

	delivered *uint64 // client-level counter, atomic
	droppedC  *uint64 // client-level counter, atomic
	logger    log.Log
}

func newStream(buffer int, delivered, dropped *uint64, logger log.Log) *stream {
	return &stream{
		ch:        make(chan Update, buffer),
		delivered: delivered,
		droppedC:  dropped,
		logger:    logger,
	}
}

func (s *stream) Updates() <-chan Update {
	return s.ch
}

func (s *stream) Dropped() uint64 {
	return atomic.LoadUint64(&s.dropped)
}

// publish enqueues one update. Deliveries racing with Close are silently
// discarded, which keeps post-cancel transport pushes harmless.
func (s *stream) publish(u Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	select {
	case s.ch <- u:
		atomic.AddUint64(s.delivered, 1)
	default:
		atomic.AddUint64(&s.dropped, 1)
		atomic.AddUint64(s.droppedC, 1)
		s.logger.Warn("Subscription buffer full, update dropped",
			log.Uint64("dropped_total", atomic.LoadUint64(&s.dropped)))
	}
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}
