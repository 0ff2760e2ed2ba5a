// Package metrics exposes the Prometheus collectors of the tracking service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all service collectors. A nil *Metrics records nothing.
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Storage metrics
	StorageOperations        *prometheus.CounterVec
	StorageOperationDuration *prometheus.HistogramVec

	// Business metrics
	ShipmentMutations *prometheus.CounterVec
	StatusTransitions *prometheus.CounterVec
	RejectedMutations *prometheus.CounterVec
	ImportedRecords   *prometheus.CounterVec
	TrackingLookups   *prometheus.CounterVec
	CollectionSize    prometheus.Gauge

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "cargo",
	}
}

// New creates a Metrics instance on its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.StorageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "storage_operations_total",
			Help:      "Total number of storage backend operations",
		},
		[]string{"service", "backend", "operation", "status"},
	)

	m.StorageOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Storage backend operation duration in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "backend", "operation"},
	)

	m.ShipmentMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "shipment_mutations_total",
			Help:      "Total number of committed shipment mutations",
		},
		[]string{"service", "kind"},
	)

	m.StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "shipment_status_transitions_total",
			Help:      "Total number of shipment status transitions",
		},
		[]string{"service", "from", "to"},
	)

	m.RejectedMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "shipment_mutations_rejected_total",
			Help:      "Total number of rejected shipment mutations",
		},
		[]string{"service", "kind", "reason"},
	)

	m.ImportedRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "shipment_imported_records_total",
			Help:      "Total number of records added by import",
		},
		[]string{"service", "format"},
	)

	m.TrackingLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "tracking_lookups_total",
			Help:      "Total number of public tracking lookups by answering source",
		},
		[]string{"service", "source"},
	)

	m.CollectionSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "shipments",
			Help:        "Number of shipments in the collection",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.StorageOperations,
		m.StorageOperationDuration,
		m.ShipmentMutations,
		m.StatusTransitions,
		m.RejectedMutations,
		m.ImportedRecords,
		m.TrackingLookups,
		m.CollectionSize,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordStorageOperation records a repository call
func (m *Metrics) RecordStorageOperation(backend, operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.StorageOperations.WithLabelValues(m.serviceName, backend, operation, outcome(success)).Inc()
	m.StorageOperationDuration.WithLabelValues(m.serviceName, backend, operation).Observe(duration.Seconds())
}

// RecordMutation records a committed create, update, transition, delete or import
func (m *Metrics) RecordMutation(kind string) {
	if m == nil {
		return
	}
	m.ShipmentMutations.WithLabelValues(m.serviceName, kind).Inc()
}

// RecordTransition records a status change
func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.StatusTransitions.WithLabelValues(m.serviceName, from, to).Inc()
}

// RecordRejection records a mutation refused with reason
func (m *Metrics) RecordRejection(kind, reason string) {
	if m == nil {
		return
	}
	m.RejectedMutations.WithLabelValues(m.serviceName, kind, reason).Inc()
}

// RecordImport records records added by an import
func (m *Metrics) RecordImport(format string, count int) {
	if m == nil {
		return
	}
	m.ImportedRecords.WithLabelValues(m.serviceName, format).Add(float64(count))
}

// RecordTrackingLookup records which source answered a tracking lookup
func (m *Metrics) RecordTrackingLookup(source string) {
	if m == nil {
		return
	}
	m.TrackingLookups.WithLabelValues(m.serviceName, source).Inc()
}

// SetCollectionSize sets the number of shipments held
func (m *Metrics) SetCollectionSize(n int) {
	if m == nil {
		return
	}
	m.CollectionSize.Set(float64(n))
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	if m == nil {
		return
	}
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	if m == nil {
		return
	}
	m.HTTPRequestsInFlight.Dec()
}
