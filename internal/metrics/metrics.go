// Package metrics defines the Prometheus metrics exported by the fulfillment service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Fulfillment metrics
	FulfillmentRequestsTotal   *prometheus.CounterVec
	FulfillmentDurationSeconds *prometheus.HistogramVec

	// Table source metrics
	TableFetchTotal           *prometheus.CounterVec
	TableFetchDurationSeconds *prometheus.HistogramVec

	// NLU metrics
	NLURequestsTotal *prometheus.CounterVec

	// Front-end channel metrics
	ChannelRequestsTotal *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterClients prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	return &Metrics{
		FulfillmentRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "compeng_fulfillment_requests_total",
				Help: "Total number of dispatched queries by intent and status",
			},
			[]string{"intent", "status"}, // status: success, missing_param, unrecognized, error
		),

		FulfillmentDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compeng_fulfillment_duration_seconds",
				Help:    "Query dispatch duration in seconds by intent",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"intent"},
		),

		TableFetchTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "compeng_table_fetch_total",
				Help: "Total number of table fetches by table and status",
			},
			[]string{"table", "status"}, // status: success, empty, error
		),

		TableFetchDurationSeconds: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "compeng_table_fetch_duration_seconds",
				Help:    "Table fetch duration in seconds by table",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
			},
			[]string{"table"}, // table: ug_courses, course_lecturers, lecturer_info
		),

		NLURequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "compeng_nlu_requests_total",
				Help: "Total number of free-text intent classifications by provider and status",
			},
			[]string{"provider", "status"},
		),

		ChannelRequestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "compeng_relay_requests_total",
				Help: "Total number of requests per front-end channel and status",
			},
			[]string{"channel", "status"}, // channel: webhook, relay, line
		),

		RateLimiterDropped: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "compeng_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter"},
		),

		RateLimiterClients: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "compeng_rate_limiter_active_clients",
				Help: "Number of clients currently tracked by the relay rate limiter",
			},
		),
	}
}

// RecordFulfillment records a dispatched query
func (m *Metrics) RecordFulfillment(intent, status string, duration float64) {
	m.FulfillmentRequestsTotal.WithLabelValues(intent, status).Inc()
	m.FulfillmentDurationSeconds.WithLabelValues(intent).Observe(duration)
}

// RecordTableFetch records one table fetch
func (m *Metrics) RecordTableFetch(table, status string, duration float64) {
	m.TableFetchTotal.WithLabelValues(table, status).Inc()
	m.TableFetchDurationSeconds.WithLabelValues(table).Observe(duration)
}

// RecordNLU records an intent classification attempt
func (m *Metrics) RecordNLU(provider, status string) {
	m.NLURequestsTotal.WithLabelValues(provider, status).Inc()
}

// RecordChannelRequest records a request on a front-end channel
func (m *Metrics) RecordChannelRequest(channel, status string) {
	m.ChannelRequestsTotal.WithLabelValues(channel, status).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiter string) {
	m.RateLimiterDropped.WithLabelValues(limiter).Inc()
}

// SetRateLimiterClients updates the tracked client count
func (m *Metrics) SetRateLimiterClients(count int) {
	m.RateLimiterClients.Set(float64(count))
}
