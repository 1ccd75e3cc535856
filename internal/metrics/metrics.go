package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sage"

// Collector exposes Prometheus metrics for the HTTP surface and the
// ingestion pipelines, on a private registry.
type Collector struct {
	registry        *prometheus.Registry
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	itemsIngested      *prometheus.CounterVec
	duplicatesSkipped  *prometheus.CounterVec
	enrichmentFailures *prometheus.CounterVec
	itemsJunked        prometheus.Counter
}

// NewCollector constructs a collector with default histograms/counters.
func NewCollector() (*Collector, error) {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for inbound HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of inbound HTTP requests.",
	}, []string{"method", "path", "status"})

	itemsIngested := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "items_total",
		Help:      "Feed items appended to the store, by source.",
	}, []string{"source"})

	duplicatesSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "duplicates_skipped_total",
		Help:      "Candidate items dropped by the existence check, by source.",
	}, []string{"source"})

	enrichmentFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "enrichment_failures_total",
		Help:      "Enrichment calls that degraded to default results, by source.",
	}, []string{"source"})

	itemsJunked := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ingest",
		Name:      "items_junked_total",
		Help:      "Feed items flagged junk by the re-classifier.",
	})

	for _, collector := range []prometheus.Collector{
		requestDuration, requestTotal, itemsIngested,
		duplicatesSkipped, enrichmentFailures, itemsJunked,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return &Collector{
		registry:           registry,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		itemsIngested:      itemsIngested,
		duplicatesSkipped:  duplicatesSkipped,
		enrichmentFailures: enrichmentFailures,
		itemsJunked:        itemsJunked,
	}, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler to record HTTP metrics.
func (c *Collector) InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(rw.status)
		path := r.URL.Path

		c.requestTotal.WithLabelValues(r.Method, path, status).Inc()
		c.requestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
	})
}

// RecordIngest counts an ingestion batch outcome for one source.
func (c *Collector) RecordIngest(source string, inserted, duplicates int) {
	c.itemsIngested.WithLabelValues(source).Add(float64(inserted))
	c.duplicatesSkipped.WithLabelValues(source).Add(float64(duplicates))
}

// RecordEnrichmentFailure counts one degraded enrichment call.
func (c *Collector) RecordEnrichmentFailure(source string) {
	c.enrichmentFailures.WithLabelValues(source).Inc()
}

// RecordJunked counts one item flagged junk.
func (c *Collector) RecordJunked() {
	c.itemsJunked.Inc()
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
