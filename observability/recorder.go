package observability

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// Recorder keeps every event it receives in memory. It is safe for
// concurrent use and is intended for tests and diagnostics dumps.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) OnEvent(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in arrival order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Find returns the recorded events of the given type.
func (r *Recorder) Find(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var found []Event
	for _, e := range r.events {
		if e.Type == t {
			found = append(found, e)
		}
	}
	return found
}

// HasMessage reports whether any recorded event message contains substr.
func (r *Recorder) HasMessage(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.events {
		if strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

// Reset discards all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
