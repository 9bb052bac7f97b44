// Package metrics holds the Prometheus instrumentation shared by the corpus
// builder, the corpus, the mosaic synthesizer and the HTTP viewer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Thumbnail processing results
const (
	ResultAccepted = "accepted"
	ResultSkipped  = "skipped"
	ResultFailed   = "failed"
	ResultCached   = "cached"
)

// Metrics holds all Prometheus metrics for Infinipic. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Corpus building metrics
	thumbnailsProcessed *prometheus.CounterVec

	// Corpus metrics
	corpusRestored     prometheus.Gauge
	corpusRestoreStops *prometheus.CounterVec
	findClosest        prometheus.Histogram

	// Mosaic metrics
	mosaicBuild prometheus.Histogram

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec
}

// New creates all metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		thumbnailsProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infinipic_thumbnails_processed_total",
				Help: "Total number of candidate images processed while building the corpus",
			},
			[]string{"result"},
		),

		corpusRestored: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "infinipic_corpus_restored_records",
				Help: "Number of thumbnails loaded by the last corpus restore",
			},
		),

		corpusRestoreStops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infinipic_corpus_restore_stops_total",
				Help: "Corpus restores by the condition that ended them",
			},
			[]string{"reason"},
		),

		findClosest: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "infinipic_find_closest_duration_seconds",
				Help:    "Duration of one exhaustive nearest thumbnail search",
				Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
			},
		),

		mosaicBuild: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "infinipic_mosaic_build_duration_seconds",
				Help:    "Duration of a complete mosaic synthesis",
				Buckets: prometheus.DefBuckets,
			},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "infinipic_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "infinipic_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "infinipic_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "route"},
		),
	}
}

// RecordThumbnail counts one processed candidate image
func (m *Metrics) RecordThumbnail(result string) {
	if m == nil {
		return
	}
	m.thumbnailsProcessed.WithLabelValues(result).Inc()
}

// RecordRestore records the outcome of a corpus restore
func (m *Metrics) RecordRestore(loaded int, reason string) {
	if m == nil {
		return
	}
	m.corpusRestored.Set(float64(loaded))
	m.corpusRestoreStops.WithLabelValues(reason).Inc()
}

// ObserveFindClosest records the duration of one nearest thumbnail search
func (m *Metrics) ObserveFindClosest(d time.Duration) {
	if m == nil {
		return
	}
	m.findClosest.Observe(d.Seconds())
}

// ObserveMosaicBuild records the duration of one mosaic synthesis
func (m *Metrics) ObserveMosaicBuild(d time.Duration) {
	if m == nil {
		return
	}
	m.mosaicBuild.Observe(d.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, route string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, route)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, route, rw.statusCode, time.Since(start))
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
