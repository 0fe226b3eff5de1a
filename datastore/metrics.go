package datastore

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels.
const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
	opClear  = "clear"
)

// handlerMetrics holds Prometheus collectors for datastore operations.
// A nil *handlerMetrics disables collection.
type handlerMetrics struct {
	operations *prometheus.CounterVec   // By feature, op and status
	duration   *prometheus.HistogramVec // By feature and op
	queueDepth *prometheus.GaugeVec     // By feature
	purges     *prometheus.CounterVec   // By feature and reason
}

// newHandlerMetrics registers the datastore collectors with reg. Several
// handlers may share a registerer; collectors registered by an earlier
// handler are reused.
func newHandlerMetrics(reg prometheus.Registerer) (*handlerMetrics, error) {
	if reg == nil {
		return nil, nil // Metrics disabled
	}

	m := &handlerMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datastore",
			Name:      "operations_total",
			Help:      "Total number of datastore operations by outcome",
		}, []string{"feature", "op", "status"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "datastore",
			Name:      "operation_duration_seconds",
			Help:      "Time spent executing datastore operations on the worker",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"feature", "op"}),

		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "datastore",
			Name:      "queue_depth",
			Help:      "Number of operations waiting for the worker",
		}, []string{"feature"}),

		purges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "datastore",
			Name:      "purges_total",
			Help:      "Total number of files deleted on read",
		}, []string{"feature", "reason"}),
	}

	var err error
	if m.operations, err = register(reg, m.operations); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.queueDepth, err = register(reg, m.queueDepth); err != nil {
		return nil, err
	}
	if m.purges, err = register(reg, m.purges); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var alreadyRegErr prometheus.AlreadyRegisteredError
		if errors.As(err, &alreadyRegErr) {
			if existing, ok := alreadyRegErr.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *handlerMetrics) observe(feature, op string, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(feature, op, status).Inc()
	m.duration.WithLabelValues(feature, op).Observe(elapsed.Seconds())
}

func (m *handlerMetrics) setDepth(feature string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(feature).Set(float64(depth))
}

func (m *handlerMetrics) purged(feature, reason string) {
	if m == nil {
		return
	}
	m.purges.WithLabelValues(feature, reason).Inc()
}

func errStatus(err error) string {
	if err != nil {
		return StatusFailure.String()
	}
	return StatusSuccess.String()
}
