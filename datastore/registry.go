package datastore

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Registry owns one FileHandler per feature, created on first use, all
// sharing the same Config and options.
type Registry struct {
	cfg  Config
	opts []Option

	mu       sync.Mutex
	handlers map[string]*FileHandler
	closed   bool
}

// NewRegistry validates cfg and returns an empty Registry.
func NewRegistry(cfg Config, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Registry{
		cfg:      cfg,
		opts:     opts,
		handlers: make(map[string]*FileHandler),
	}, nil
}

// Handler returns the handler for feature, creating it if needed. After
// Close it returns a NoOpHandler.
func (r *Registry) Handler(feature string) (Handler, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return NoOpHandler{}, nil
	}
	if h, ok := r.handlers[feature]; ok {
		return h, nil
	}

	h, err := New(feature, r.cfg, r.opts...)
	if err != nil {
		return nil, err
	}
	r.handlers[feature] = h
	return h, nil
}

// Features lists the features with a live handler, sorted.
func (r *Registry) Features() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ClearAll clears every live handler and waits for the deletions.
func (r *Registry) ClearAll(ctx context.Context) error {
	var errs []error
	for _, h := range r.snapshot() {
		if err := ClearSync(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close drains and stops every handler. Later Handler calls return a
// NoOpHandler.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	var errs []error
	for _, h := range r.snapshot() {
		if err := h.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) snapshot() []*FileHandler {
	r.mu.Lock()
	defer r.mu.Unlock()

	handlers := make([]*FileHandler, 0, len(r.handlers))
	for _, h := range r.handlers {
		handlers = append(handlers, h)
	}
	return handlers
}
