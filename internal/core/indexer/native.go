package indexer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"

	"github.com/respp/astrade-world/internal/core/observability/log"
)

var _ Client = (*Native)(nil)

// Native is the full-fidelity indexer client. It keeps one WebSocket
// session for push subscriptions and uses HTTP for one-shot queries.
type Native struct {
	opts Options
	hc   *http.Client
	conn *websocket.Conn

	writeMu sync.Mutex
	mu      sync.RWMutex
	streams map[string]*stream

	closed    int32 // atomic bool
	startTime time.Time

	queries       uint64 // atomic
	subscriptions uint64 // atomic
	delivered     uint64 // atomic
	dropped       uint64 // atomic

	logger log.Log
}

// subscribeFrame is the control message sent to open or close a live
// subscription on the session.
type subscribeFrame struct {
	Type         string   `json:"type"`
	Subscription string   `json:"subscription"`
	World        string   `json:"world,omitempty"`
	Namespace    string   `json:"namespace,omitempty"`
	Keys         []string `json:"keys,omitempty"`
	Models       []string `json:"models,omitempty"`
}

// NewNative dials the indexer's WebSocket endpoint and starts the read
// loop. A dial failure is returned to the factory, which decides whether
// to fall back to the restricted client.
func NewNative(ctx context.Context, opts Options, logger log.Log) (*Native, error) {
	opts = opts.withDefaults()
	logger = logger.With(log.String("client", ModeNative.String()))

	dialer := websocket.Dialer{HandshakeTimeout: opts.DialTimeout}
	conn, resp, err := dialer.DialContext(ctx, wsURL(opts.IndexerURL), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	n := &Native{
		opts:      opts,
		hc:        &http.Client{Timeout: opts.DialTimeout},
		conn:      conn,
		streams:   make(map[string]*stream),
		startTime: time.Now(),
		logger:    logger,
	}

	go n.readLoop()

	logger.Info("Native indexer session established",
		log.String("indexer_url", opts.IndexerURL),
		log.String("world", opts.WorldAddress))

	return n, nil
}

func (n *Native) Mode() Mode {
	return ModeNative
}

func (n *Native) QueryEntities(ctx context.Context, q Query) ([]Entity, error) {
	raw, err := fetchEntities(ctx, n.hc, n.opts, q)
	if err != nil {
		return nil, err
	}
	atomic.AddUint64(&n.queries, 1)
	return parseEntities(raw), nil
}

func (n *Native) Subscribe(ctx context.Context, q Query) (Stream, error) {
	if atomic.LoadInt32(&n.closed) == 1 {
		return nil, ErrClientClosed
	}

	id := uuid.NewString()
	s := newStream(n.opts.StreamBuffer, &n.delivered, &n.dropped, n.logger)

	n.mu.Lock()
	n.streams[id] = s
	n.mu.Unlock()

	err := n.writeFrame(subscribeFrame{
		Type:         "subscribe",
		Subscription: id,
		World:        n.opts.WorldAddress,
		Namespace:    n.opts.Namespace,
		Keys:         q.Keys,
		Models:       q.Models,
	})
	if err != nil {
		n.dropStream(id)
		return nil, err
	}

	atomic.AddUint64(&n.subscriptions, 1)
	n.logger.Debug("Subscription opened", log.String("subscription_id", id))

	return &nativeSub{n: n, id: id, stream: s}, nil
}

func (n *Native) Stats() Stats {
	return Stats{
		Queries:          atomic.LoadUint64(&n.queries),
		Subscriptions:    atomic.LoadUint64(&n.subscriptions),
		UpdatesDelivered: atomic.LoadUint64(&n.delivered),
		UpdatesDropped:   atomic.LoadUint64(&n.dropped),
		Uptime:           time.Since(n.startTime),
	}
}

func (n *Native) Close() error {
	if !atomic.CompareAndSwapInt32(&n.closed, 0, 1) {
		return nil
	}

	n.logger.Info("Closing native indexer session",
		log.Duration("uptime", time.Since(n.startTime)),
		log.Uint64("queries", atomic.LoadUint64(&n.queries)),
		log.Uint64("subscriptions", atomic.LoadUint64(&n.subscriptions)))

	err := n.conn.Close()

	n.mu.Lock()
	for id, s := range n.streams {
		_ = s.Close()
		delete(n.streams, id)
	}
	n.mu.Unlock()

	return err
}

// nativeSub couples a stream to its session-level unsubscribe.
type nativeSub struct {
	n      *Native
	id     string
	stream *stream
}

func (s *nativeSub) Updates() <-chan Update { return s.stream.Updates() }
func (s *nativeSub) Dropped() uint64        { return s.stream.Dropped() }

func (s *nativeSub) Close() error {
	s.n.dropStream(s.id)
	if atomic.LoadInt32(&s.n.closed) == 0 {
		// Best effort: the session may already be gone.
		_ = s.n.writeFrame(subscribeFrame{Type: "unsubscribe", Subscription: s.id})
	}
	return s.stream.Close()
}

func (n *Native) writeFrame(frame subscribeFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	n.writeMu.Lock()
	defer n.writeMu.Unlock()
	return n.conn.WriteMessage(websocket.TextMessage, payload)
}

func (n *Native) dropStream(id string) {
	n.mu.Lock()
	delete(n.streams, id)
	n.mu.Unlock()
}

// readLoop routes push frames to their streams until the session ends.
// Frames for unknown or already-cancelled subscriptions are ignored.
func (n *Native) readLoop() {
	for {
		_, payload, err := n.conn.ReadMessage()
		if err != nil {
			if atomic.LoadInt32(&n.closed) == 0 {
				n.logger.Warn("Indexer session read failed", log.Error(err))
				n.broadcastError(ErrSessionLost)
			}
			return
		}
		n.routeFrame(payload)
	}
}

func (n *Native) routeFrame(payload []byte) {
	frame := gjson.ParseBytes(payload)
	id := frame.Get("subscription").String()

	n.mu.RLock()
	s, ok := n.streams[id]
	n.mu.RUnlock()
	if !ok {
		return
	}

	switch frame.Get("type").String() {
	case "update":
		s.publish(Update{Data: parseEntities(payload)})
	case "error":
		s.publish(Update{Err: &PushError{Message: frame.Get("message").String()}})
	default:
		n.logger.Debug("Unhandled frame type",
			log.String("type", frame.Get("type").String()))
	}
}

func (n *Native) broadcastError(err error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for _, s := range n.streams {
		s.publish(Update{Err: err})
	}
}

// wsURL converts the indexer's HTTP base URL into its WebSocket endpoint.
func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https"):
		base = "wss" + base[len("https"):]
	case strings.HasPrefix(base, "http"):
		base = "ws" + base[len("http"):]
	}
	return strings.TrimSuffix(base, "/") + "/ws"
}
