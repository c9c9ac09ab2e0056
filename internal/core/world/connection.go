package world

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/respp/astrade-world/internal/core/indexer"
	"github.com/respp/astrade-world/internal/core/observability/log"
)

var _ ClientSource = (*Manager)(nil)

// StateObserver is notified after every connection state transition.
type StateObserver func(prev, next ConnectionState)

// Manager owns the connection state machine, the active client handle and
// the retry bookkeeping. All other components read the handle through it
// and never mutate connection state themselves.
type Manager struct {
	cfg      Config
	builder  ClientBuilder
	registry *Registry
	resolver *Resolver
	logger   log.Log

	connecting int32 // atomic, guards against concurrent connects

	mu         sync.RWMutex
	state      ConnectionState
	client     indexer.Client
	lastErr    error
	attempts   int
	retryTimer *time.Timer

	obsMu     sync.RWMutex
	observers []StateObserver
}

func NewManager(cfg Config, builder ClientBuilder, resolver *Resolver, logger log.Log) *Manager {
	m := &Manager{
		cfg:      cfg,
		builder:  builder,
		resolver: resolver,
		state:    StateDisconnected,
		logger:   logger.With(log.String("component", "connection_manager")),
	}
	m.registry = NewRegistry(m, logger)
	return m
}

// Connect drives DISCONNECTED/ERROR into CONNECTED. A second call while
// one is outstanding is a no-op; the in-flight guard makes sure only one
// client construction ever runs at a time. Config validation failures are
// fatal and never scheduled for retry; client construction failures are
// transient and retried up to the configured attempt budget.
func (m *Manager) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&m.connecting, 0, 1) {
		m.logger.Debug("Connect already in flight")
		return nil
	}
	defer atomic.StoreInt32(&m.connecting, 0)

	if m.IsConnected() {
		return nil
	}

	if err := m.cfg.Validate(); err != nil {
		m.logger.Error("World config rejected", log.Error(err))
		m.setErr(err)
		m.setState(StateError)
		return err
	}

	m.setState(StateConnecting)

	buildCtx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	client, err := m.builder.Build(buildCtx, m.cfg.RestrictedContext)
	if err != nil {
		wrapped := WrapError(KindConnectionFailed, "build indexer client", err)
		m.logger.Warn("World connect failed", log.Error(wrapped))
		m.setErr(wrapped)
		m.setState(StateError)
		m.scheduleRetry()
		return wrapped
	}

	var manifest *Manifest
	if m.cfg.ManifestPath != "" {
		manifest, err = LoadManifest(m.cfg.ManifestPath)
		if err != nil {
			// Manifest problems are config-class failures: a broken
			// document stays broken, so no retry is scheduled.
			_ = client.Close()
			m.logger.Error("Manifest rejected", log.Error(err))
			m.setErr(err)
			m.setState(StateError)
			return err
		}
	}

	m.mu.Lock()
	m.client = client
	m.attempts = 0
	m.lastErr = nil
	m.mu.Unlock()

	if manifest != nil {
		m.resolver.Install(manifest)
	}

	m.setState(StateConnected)
	m.logger.Info("World connected",
		log.String("mode", client.Mode().String()),
		log.String("world", m.cfg.WorldAddress))
	return nil
}

// Disconnect tears everything down from any state: pending retry timer,
// every tracked subscription, the manifest and the client handle.
func (m *Manager) Disconnect() {
	m.teardown(true)
	m.setState(StateDisconnected)
	m.logger.Info("World disconnected")
}

// Reconnect is the manual recovery path. The RECONNECTING transition is
// visible even when the subsequent connect fails, and the attempt budget
// starts over.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.setState(StateReconnecting)
	m.teardown(true)
	return m.Connect(ctx)
}

func (m *Manager) State() ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) IsConnected() bool {
	return m.State() == StateConnected
}

func (m *Manager) IsLoading() bool {
	s := m.State()
	return s == StateConnecting || s == StateReconnecting
}

// Err returns the error that put the manager into its current ERROR
// state, or nil.
func (m *Manager) Err() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// ActiveClient hands out the current client handle for readers. It only
// exists while connected.
func (m *Manager) ActiveClient() (indexer.Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client, m.client != nil
}

// Registry returns the subscription registry owned by this manager.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Attempts reports how many failed connects the current retry cycle has
// accumulated.
func (m *Manager) Attempts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts
}

// OnStateChange registers an observer for state transitions. Observers
// run asynchronously and must not block on manager calls.
func (m *Manager) OnStateChange(obs StateObserver) {
	m.obsMu.Lock()
	m.observers = append(m.observers, obs)
	m.obsMu.Unlock()
}

// teardown cancels the retry timer, empties the subscription registry,
// clears the manifest and closes the client handle, in that order.
// Subscription cancellation is best effort.
func (m *Manager) teardown(resetAttempts bool) {
	m.mu.Lock()
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.mu.Unlock()

	m.registry.CancelAll()

	m.mu.Lock()
	client := m.client
	m.client = nil
	if resetAttempts {
		m.attempts = 0
	}
	m.lastErr = nil
	m.mu.Unlock()

	m.resolver.Clear()

	if client != nil {
		if err := client.Close(); err != nil {
			m.logger.Warn("Client close failed", log.Error(err))
		}
	}
}

// scheduleRetry burns one attempt and arms the retry timer, unless the
// budget is exhausted. Disconnect stops the timer, so a stale retry can
// never fire after an intentional disconnect.
func (m *Manager) scheduleRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.attempts++
	if m.attempts >= m.cfg.MaxConnectAttempts {
		m.logger.Warn("Connect attempt budget exhausted",
			log.Int("attempts", m.attempts))
		return
	}

	attempt := m.attempts
	m.logger.Info("Scheduling connect retry",
		log.Int("attempt", attempt),
		log.Duration("delay", m.cfg.RetryInterval))

	m.retryTimer = time.AfterFunc(m.cfg.RetryInterval, func() {
		// A retry that raced an intentional disconnect must not revive
		// the connection.
		if m.State() != StateError {
			return
		}
		m.logger.Info("Retrying connect", log.Int("attempt", attempt))
		_ = m.Connect(context.Background())
	})
}

func (m *Manager) setErr(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setState(next ConnectionState) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	m.mu.Unlock()

	if prev == next {
		return
	}

	m.logger.Debug("Connection state changed",
		log.String("from", prev.String()),
		log.String("to", next.String()))

	m.obsMu.RLock()
	observers := make([]StateObserver, len(m.observers))
	copy(observers, m.observers)
	m.obsMu.RUnlock()

	for _, obs := range observers {
		go obs(prev, next)
	}
}
