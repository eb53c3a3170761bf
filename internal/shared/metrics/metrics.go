package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Validation outcome labels
const (
	OutcomeValid          = "valid"
	OutcomeCodeNotFound   = "code_not_found"
	OutcomeCodeDisabled   = "code_disabled"
	OutcomeSessionExpired = "session_expired"
	OutcomeError          = "error"
)

// Metrics groups the collectors exported on /metrics
type Metrics struct {
	Registry *prometheus.Registry

	ValidationsTotal    *prometheus.CounterVec
	SessionsCreated     prometheus.Counter
	ActivationsTotal    prometheus.Counter
	InsertConflicts     prometheus.Counter
	StoreLatency        *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry. Go and process
// collectors are included when withRuntime is set.
func New(withRuntime bool) (*Metrics, error) {
	registry := prometheus.NewRegistry()

	if withRuntime {
		if err := registry.Register(collectors.NewGoCollector()); err != nil {
			return nil, fmt.Errorf("failed to register Go collector: %w", err)
		}
		if err := registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
			return nil, fmt.Errorf("failed to register process collector: %w", err)
		}
	}

	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		ValidationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "access_validations_total",
			Help: "Access code validations by outcome.",
		}, []string{"outcome"}),
		SessionsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "access_sessions_created_total",
			Help: "Sessions bound to an access code.",
		}),
		ActivationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "access_code_activations_total",
			Help: "First-use activations of access codes.",
		}),
		InsertConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "access_session_insert_conflicts_total",
			Help: "Concurrent session inserts that lost the race and were retried as lookups.",
		}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "access_store_operation_duration_seconds",
			Help:    "Latency of store operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method", "status"}),
	}, nil
}

// ObserveStore records the duration of a store call started at start
func (m *Metrics) ObserveStore(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordValidation increments the outcome counter
func (m *Metrics) RecordValidation(outcome string) {
	if m == nil {
		return
	}
	m.ValidationsTotal.WithLabelValues(outcome).Inc()
}
