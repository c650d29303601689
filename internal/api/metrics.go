package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts extraction and expense traffic
type Metrics struct {
	extractions     *prometheus.CounterVec
	extractDuration prometheus.Histogram
	expensesCreated prometheus.Counter
	authFailures    prometheus.Counter
	gatherer        prometheus.Gatherer
}

// NewMetrics registers the server metrics with reg
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		extractions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "receipt_extractions_total",
			Help: "Receipt extraction requests by outcome",
		}, []string{"outcome"}),
		extractDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "receipt_extraction_duration_seconds",
			Help:    "Time taken to extract a receipt",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		expensesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receipt_expenses_created_total",
			Help: "Total number of expenses stored",
		}),
		authFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "receipt_auth_failures_total",
			Help: "Requests rejected for a missing or wrong bearer token",
		}),
		gatherer: reg,
	}

	reg.MustRegister(m.extractions, m.extractDuration, m.expensesCreated, m.authFailures)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
