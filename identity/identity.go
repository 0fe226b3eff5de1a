// Package identity persists the anonymous installation identifier.
//
// The identifier is a UUIDv7 created on first use and stored in the
// datastore under Key. A missing or unreadable entry is replaced by a fresh
// identifier; the datastore never blocks identity resolution.
package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/datastore/codec"
	"github.com/tailored-agentic-units/datastore/datastore"
	"github.com/tailored-agentic-units/datastore/observability"
)

// Key is the datastore key holding the identifier.
const Key = "anonymousid"

// Version is the schema version of the stored identifier.
const Version = 0

// Event types emitted by Provider.
const (
	EventGenerated     observability.EventType = "identity.generated"
	EventPersistFailed observability.EventType = "identity.persist_failed"
	EventDiscarded     observability.EventType = "identity.discarded"
)

// Option configures a Provider.
type Option func(*Provider)

// WithObserver sets the diagnostics sink.
func WithObserver(o observability.Observer) Option {
	return func(p *Provider) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithGenerator overrides identifier generation.
func WithGenerator(gen func() (uuid.UUID, error)) Option {
	return func(p *Provider) {
		if gen != nil {
			p.generate = gen
		}
	}
}

// Provider loads or creates the anonymous identifier. It is safe for
// concurrent use; concurrent callers share one resolution.
type Provider struct {
	handler  datastore.Handler
	observer observability.Observer
	generate func() (uuid.UUID, error)

	mu     sync.Mutex
	cached string
}

// NewProvider creates a Provider backed by h.
func NewProvider(h datastore.Handler, opts ...Option) *Provider {
	p := &Provider{
		handler:  h,
		observer: observability.NoOpObserver{},
		generate: uuid.NewV7,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the persisted identifier, creating and storing one when none
// is usable. A failed write is logged and the new identifier is still
// returned; it will be persisted again on the next cold start.
func (p *Provider) ID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" {
		return p.cached, nil
	}

	r, err := datastore.GetSync(ctx, p.handler, Key, codec.String{}, datastore.WithVersion(Version))
	if err != nil {
		return "", err
	}

	if r.Status == datastore.StatusSuccess {
		if id, parseErr := uuid.Parse(r.Content.Data); parseErr == nil {
			p.cached = id.String()
			return p.cached, nil
		}
		p.emit(ctx, EventDiscarded, observability.LevelWarning, "Stored anonymous id is not a UUID", nil)
	}

	id, err := p.generate()
	if err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	p.cached = id.String()
	p.emit(ctx, EventGenerated, observability.LevelVerbose, "", map[string]any{"status": r.Status.String()})

	if err := datastore.SetSync(ctx, p.handler, Key, p.cached, Version, codec.String{}); err != nil {
		p.emit(ctx, EventPersistFailed, observability.LevelWarning, "Failed to persist anonymous id", map[string]any{
			"error": err.Error(),
		})
	}

	return p.cached, nil
}

// Reset deletes the stored identifier. The next ID call creates a new one.
func (p *Provider) Reset(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cached = ""
	return datastore.DeleteSync(ctx, p.handler, Key)
}

func (p *Provider) emit(ctx context.Context, t observability.EventType, level observability.Level, msg string, data map[string]any) {
	p.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Target:    observability.TargetMaintainer,
		Timestamp: time.Now(),
		Source:    "identity.Provider",
		Message:   msg,
		Data:      data,
	})
}
