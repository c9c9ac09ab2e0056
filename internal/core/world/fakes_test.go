package world

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/respp/astrade-world/internal/core/indexer"
)

// fakeStream is an in-memory indexer.Stream driven directly by tests.
type fakeStream struct {
	ch      chan indexer.Update
	mu      sync.Mutex
	closed  bool
	dropped uint64
}

func newFakeStream(buffer int) *fakeStream {
	return &fakeStream{ch: make(chan indexer.Update, buffer)}
}

func (s *fakeStream) push(u indexer.Update) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- u:
	default:
		atomic.AddUint64(&s.dropped, 1)
	}
}

func (s *fakeStream) Updates() <-chan indexer.Update { return s.ch }

func (s *fakeStream) Dropped() uint64 { return atomic.LoadUint64(&s.dropped) }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.ch)
	return nil
}

// fakeClient is an in-memory indexer client.
type fakeClient struct {
	mode   indexer.Mode
	buffer int

	mu       sync.Mutex
	entities []indexer.Entity
	queryErr error
	subErr   error
	streams  []*fakeStream
	closed   bool
	queries  int
}

func newFakeClient(mode indexer.Mode) *fakeClient {
	return &fakeClient{mode: mode, buffer: 16}
}

func (c *fakeClient) Mode() indexer.Mode { return c.mode }

func (c *fakeClient) QueryEntities(_ context.Context, _ indexer.Query) ([]indexer.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries++
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	return c.entities, nil
}

func (c *fakeClient) Subscribe(_ context.Context, _ indexer.Query) (indexer.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subErr != nil {
		return nil, c.subErr
	}
	s := newFakeStream(c.buffer)
	c.streams = append(c.streams, s)
	return s, nil
}

func (c *fakeClient) Stats() indexer.Stats { return indexer.Stats{} }

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, s := range c.streams {
		_ = s.Close()
	}
	return nil
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeClient) lastStream() *fakeStream {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.streams) == 0 {
		return nil
	}
	return c.streams[len(c.streams)-1]
}

// fakeBuilder hands out fake clients and can be told to fail a number of
// consecutive builds. A blocking builder is used for re-entry tests.
type fakeBuilder struct {
	mu       sync.Mutex
	client   *fakeClient
	failures int
	err      error
	calls    int
	block    chan struct{}
}

func (b *fakeBuilder) Build(_ context.Context, _ bool) (indexer.Client, error) {
	b.mu.Lock()
	b.calls++
	failures := b.failures
	if failures > 0 {
		b.failures--
	}
	err := b.err
	block := b.block
	client := b.client
	b.mu.Unlock()

	if block != nil {
		<-block
	}
	if failures > 0 {
		if err == nil {
			err = errors.New("indexer unavailable")
		}
		return nil, err
	}
	if client == nil {
		client = newFakeClient(indexer.ModeNative)
		b.mu.Lock()
		b.client = client
		b.mu.Unlock()
	}
	return client, nil
}

func (b *fakeBuilder) buildCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// fakeSigner records relayed calls.
type fakeSigner struct {
	mu        sync.Mutex
	available bool
	err       error
	result    TransactionResult
	calls     []SystemCall
	batches   [][]SystemCall
}

func (s *fakeSigner) Available() bool { return s.available }

func (s *fakeSigner) ExecuteTransaction(_ context.Context, contract, entrypoint string, calldata []string) (TransactionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return TransactionResult{}, s.err
	}
	s.calls = append(s.calls, SystemCall{ContractAddress: contract, Entrypoint: entrypoint, Calldata: calldata})
	result := s.result
	if result.TransactionHash == "" {
		result.TransactionHash = "0xtx" + entrypoint
	}
	return result, nil
}

func (s *fakeSigner) ExecuteBatch(_ context.Context, calls []SystemCall) (TransactionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return TransactionResult{}, s.err
	}
	s.batches = append(s.batches, calls)
	result := s.result
	if result.TransactionHash == "" {
		result.TransactionHash = "0xbatch"
	}
	return result, nil
}

func (s *fakeSigner) singleCalls() []SystemCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SystemCall(nil), s.calls...)
}

func (s *fakeSigner) batchCalls() [][]SystemCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]SystemCall(nil), s.batches...)
}
