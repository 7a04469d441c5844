// Package metrics provides Prometheus metrics collection for the field engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "maintforms"

// Collector holds all Prometheus metrics.
type Collector struct {
	// Registry operations by module, operation and outcome
	FieldOperations *prometheus.CounterVec

	// Validation failures by module and rule
	ValidationFailures *prometheus.CounterVec

	// Persisted records that failed to parse and were ignored
	OverlayLoadErrors *prometheus.CounterVec

	// Current number of custom fields per module
	CustomFields *prometheus.GaugeVec

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a collector registered with reg.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		FieldOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "field_operations_total",
				Help:      "Field registry operations",
			},
			[]string{"module", "operation", "outcome"},
		),
		ValidationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validation_failures_total",
				Help:      "Field values that failed validation",
			},
			[]string{"module", "rule"},
		),
		OverlayLoadErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "overlay_load_errors_total",
				Help:      "Stored schema records that could not be parsed",
			},
			[]string{"record"},
		),
		CustomFields: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "custom_fields",
				Help:      "Number of custom fields per module",
			},
			[]string{"module"},
		),
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "route"},
		),
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Successful configuration reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reload_errors_total",
				Help:      "Failed configuration reloads",
			},
		),
	}
}

// RecordOperation counts a registry operation. Safe on a nil collector.
func (c *Collector) RecordOperation(module, operation, outcome string) {
	if c == nil {
		return
	}
	c.FieldOperations.WithLabelValues(module, operation, outcome).Inc()
}

// RecordValidationFailure counts a failed validation. Safe on a nil collector.
func (c *Collector) RecordValidationFailure(module, rule string) {
	if c == nil {
		return
	}
	c.ValidationFailures.WithLabelValues(module, rule).Inc()
}

// RecordLoadError counts an unparsable stored record. Safe on a nil collector.
func (c *Collector) RecordLoadError(record string) {
	if c == nil {
		return
	}
	c.OverlayLoadErrors.WithLabelValues(record).Inc()
}

// SetCustomFields sets the custom field gauge. Safe on a nil collector.
func (c *Collector) SetCustomFields(module string, n int) {
	if c == nil {
		return
	}
	c.CustomFields.WithLabelValues(module).Set(float64(n))
}
