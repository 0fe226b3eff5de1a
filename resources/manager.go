// Package resources remembers which resource hashes have already been
// uploaded so they are not sent twice.
//
// The set is stored in the datastore under Key as JSON and expires as a
// whole: once the entry is older than the expiration window it is dropped
// and the cache starts over.
package resources

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/tailored-agentic-units/datastore/codec"
	"github.com/tailored-agentic-units/datastore/datastore"
	"github.com/tailored-agentic-units/datastore/observability"
)

// Key is the datastore key holding the hash set.
const Key = "resourcehashes"

// Version is the schema version of the stored entry.
const Version = 0

// DefaultExpiration bounds how long a hash set is trusted.
const DefaultExpiration = 30 * 24 * time.Hour

// Event types emitted by Manager.
const (
	EventLoaded        observability.EventType = "resources.loaded"
	EventExpired       observability.EventType = "resources.expired"
	EventPersistFailed observability.EventType = "resources.persist_failed"
)

// Entry is the persisted form of the hash set.
type Entry struct {
	LastUpdateMs int64    `json:"last_update_ms"`
	Hashes       []string `json:"hashes"`
}

// Option configures a Manager.
type Option func(*Manager)

// WithObserver sets the diagnostics sink.
func WithObserver(o observability.Observer) Option {
	return func(m *Manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithExpiration overrides DefaultExpiration.
func WithExpiration(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.expiration = d
		}
	}
}

// Manager is an in-memory hash set mirrored to the datastore.
type Manager struct {
	handler    datastore.Handler
	observer   observability.Observer
	now        func() time.Time
	expiration time.Duration

	mu           sync.Mutex
	hashes       map[string]struct{}
	lastUpdateMs int64

	ready     chan struct{}
	readyOnce sync.Once
}

// NewManager creates a Manager and starts loading the stored set in the
// background.
func NewManager(h datastore.Handler, opts ...Option) *Manager {
	m := &Manager{
		handler:    h,
		observer:   observability.NoOpObserver{},
		now:        time.Now,
		expiration: DefaultExpiration,
		hashes:     make(map[string]struct{}),
		ready:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	datastore.Get(h, Key, codec.JSON[Entry]{}, m.onLoaded, datastore.WithVersion(Version))
	return m
}

// Ready reports whether the initial load has settled, whatever its outcome.
func (m *Manager) Ready() bool {
	select {
	case <-m.ready:
		return true
	default:
		return false
	}
}

// WaitReady blocks until Ready or ctx ends.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WasSent reports whether hash has been cached.
func (m *Manager) WasSent(hash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.hashes[hash]
	return ok
}

// CacheHash records hash and persists the set.
func (m *Manager) CacheHash(hash string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.hashes[hash]; ok {
		return
	}
	m.hashes[hash] = struct{}{}
	if m.lastUpdateMs == 0 || m.expired(m.lastUpdateMs) {
		m.lastUpdateMs = m.now().UnixMilli()
	}
	m.persistLocked()
}

// Hashes returns the cached hashes, sorted.
func (m *Manager) Hashes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedLocked()
}

func (m *Manager) onLoaded(r datastore.Result[Entry]) {
	defer m.readyOnce.Do(func() { close(m.ready) })

	if r.Status != datastore.StatusSuccess {
		return
	}

	entry := r.Content.Data
	if m.expired(entry.LastUpdateMs) {
		m.emit(EventExpired, observability.LevelVerbose, map[string]any{"hashes": len(entry.Hashes)})
		datastore.Delete(m.handler, Key, nil)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	pending := len(m.hashes) > 0
	for _, h := range entry.Hashes {
		m.hashes[h] = struct{}{}
	}
	if m.lastUpdateMs == 0 || entry.LastUpdateMs < m.lastUpdateMs {
		m.lastUpdateMs = entry.LastUpdateMs
	}
	m.emit(EventLoaded, observability.LevelVerbose, map[string]any{"hashes": len(entry.Hashes)})

	// Hashes cached before the load finished were written without the
	// stored ones.
	if pending {
		m.persistLocked()
	}
}

func (m *Manager) expired(lastUpdateMs int64) bool {
	return m.now().UnixMilli()-lastUpdateMs > m.expiration.Milliseconds()
}

func (m *Manager) persistLocked() {
	entry := Entry{LastUpdateMs: m.lastUpdateMs, Hashes: m.sortedLocked()}
	datastore.Set(m.handler, Key, entry, Version, codec.JSON[Entry]{}, func(err error) {
		if err != nil {
			m.emit(EventPersistFailed, observability.LevelWarning, map[string]any{"error": err.Error()})
		}
	})
}

func (m *Manager) sortedLocked() []string {
	out := make([]string, 0, len(m.hashes))
	for h := range m.hashes {
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

func (m *Manager) emit(t observability.EventType, level observability.Level, data map[string]any) {
	m.observer.OnEvent(context.Background(), observability.Event{
		Type:      t,
		Level:     level,
		Target:    observability.TargetMaintainer,
		Timestamp: m.now(),
		Source:    "resources.Manager",
		Data:      data,
	})
}
