// Package metrics provides Prometheus metrics for bookrag
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for bookrag. Each instance owns its
// registry so several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	// Retrieval metrics
	RetrievalsTotal        *prometheus.CounterVec
	RetrievalDuration      prometheus.Histogram
	RetrievalResultsTotal  prometheus.Counter
	RetrievalFilteredTotal prometheus.Counter

	// Answer metrics
	AnswersTotal *prometheus.CounterVec

	// Ingest metrics
	ChunksProducedTotal prometheus.Counter
	VectorsWrittenTotal prometheus.Counter
	EmbedFailuresTotal  prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers all metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.RetrievalsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrag_retrievals_total",
			Help: "Total number of retrieval calls by outcome",
		},
		[]string{"status"},
	)

	m.RetrievalDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bookrag_retrieval_duration_seconds",
			Help:    "Duration of retrieval calls in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	m.RetrievalResultsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrag_retrieval_results_total",
			Help: "Total number of results returned by retrieval",
		},
	)

	m.RetrievalFilteredTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrag_retrieval_filtered_total",
			Help: "Total number of candidates dropped by the similarity floor",
		},
	)

	m.AnswersTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrag_answers_total",
			Help: "Total number of answers by status",
		},
		[]string{"status"},
	)

	m.ChunksProducedTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrag_chunks_produced_total",
			Help: "Total number of chunks produced by ingestion",
		},
	)

	m.VectorsWrittenTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrag_vectors_written_total",
			Help: "Total number of vectors written to the store",
		},
	)

	m.EmbedFailuresTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "bookrag_embed_failures_total",
			Help: "Total number of embedding calls that returned an error",
		},
	)

	m.HTTPRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookrag_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "status"},
	)

	m.HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookrag_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	return m
}

// Registry returns the registry the metrics are registered on
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRetrieval records one retrieval call
func (m *Metrics) RecordRetrieval(status string, returned, filtered int, duration time.Duration) {
	m.RetrievalsTotal.WithLabelValues(status).Inc()
	m.RetrievalDuration.Observe(duration.Seconds())
	m.RetrievalResultsTotal.Add(float64(returned))
	m.RetrievalFilteredTotal.Add(float64(filtered))
}

// RecordAnswer records one composed answer
func (m *Metrics) RecordAnswer(status string) {
	m.AnswersTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an HTTP request with its status
func (m *Metrics) RecordHTTPRequest(path, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(path).Observe(duration.Seconds())
}
