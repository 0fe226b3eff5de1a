package observability

import "context"

// MultiObserver fans out events to multiple observers.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver creates a MultiObserver that forwards events to all
// non-nil observers.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	filtered := make([]Observer, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}
	return &MultiObserver{observers: filtered}
}

func (m *MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m.observers {
		obs.OnEvent(ctx, event)
	}
}

// FilterObserver forwards only events at or above MinLevel whose target is
// one of Targets. An empty Targets list accepts every target.
type FilterObserver struct {
	Next     Observer
	MinLevel Level
	Targets  []Target
}

func (f *FilterObserver) OnEvent(ctx context.Context, event Event) {
	if f.Next == nil || event.Level < f.MinLevel {
		return
	}
	if len(f.Targets) == 0 {
		f.Next.OnEvent(ctx, event)
		return
	}
	for _, t := range f.Targets {
		if t == event.Target {
			f.Next.OnEvent(ctx, event)
			return
		}
	}
}
