package datastore

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/datastore/observability"
)

type options struct {
	observer   observability.Observer
	now        func() time.Time
	registerer prometheus.Registerer
}

func defaultOptions() options {
	return options{
		observer: observability.NoOpObserver{},
		now:      time.Now,
	}
}

// Option configures a FileHandler or Registry.
type Option func(*options)

// WithObserver sets the diagnostics sink. Defaults to a no-op observer.
func WithObserver(o observability.Observer) Option {
	return func(opts *options) {
		if o != nil {
			opts.observer = o
		}
	}
}

// WithClock overrides the time source used for LAST_UPDATE_DATE and
// staleness checks.
func WithClock(now func() time.Time) Option {
	return func(opts *options) {
		if now != nil {
			opts.now = now
		}
	}
}

// WithMetrics registers operation metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(opts *options) {
		opts.registerer = reg
	}
}

// ReadOption configures a single read.
type ReadOption func(*readOptions)

type readOptions struct {
	version *int
}

// WithVersion requires the stored schema version to equal v. A different
// version reads as NoData and the file is left untouched.
func WithVersion(v int) ReadOption {
	return func(o *readOptions) {
		o.version = &v
	}
}
