// Package metrics exposes Prometheus instrumentation for the HTTP layer, the
// propagation pool, pass prediction and the element-set dataset.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyglass_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyglass_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	propagationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skyglass_propagation_duration_seconds",
			Help:    "Duration of one batch propagation.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"backend"},
	)

	propagationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyglass_propagation_total",
			Help: "Objects propagated, by outcome.",
		},
		[]string{"backend", "result"},
	)

	propagationWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyglass_propagation_workers",
			Help: "Configured propagation worker count.",
		},
	)

	passPredictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyglass_pass_predictions_total",
			Help: "Pass prediction runs, by shadow model.",
		},
		[]string{"shadow"},
	)

	passSamplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyglass_pass_samples_total",
			Help: "Pass prediction samples, by result (above, below, skipped).",
		},
		[]string{"result"},
	)

	predictionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skyglass_prediction_duration_seconds",
			Help:    "Duration of one pass prediction run.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	tleDatasetCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyglass_tle_dataset_count",
			Help: "Element sets in the loaded dataset.",
		},
	)

	tleDatasetObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyglass_tle_dataset_objects",
			Help: "Distinct objects in the loaded dataset.",
		},
	)

	tleDatasetAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyglass_tle_dataset_age_seconds",
			Help: "Seconds since the dataset was loaded.",
		},
	)

	tleSelectionAgeDays = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "skyglass_tle_selection_age_days",
			Help:    "Age of the selected element set relative to the target time.",
			Buckets: []float64{0.25, 0.5, 1, 2, 3, 5, 7, 14, 30},
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyglass_stream_connections_total",
			Help: "Sky stream connection events (connect, disconnect).",
		},
		[]string{"event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "skyglass_streams_active",
			Help: "Open sky stream connections.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyglass_stream_messages_total",
			Help: "SSE messages sent.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "skyglass_stream_bytes_total",
			Help: "SSE bytes sent, keep-alives included.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skyglass_stream_errors_total",
			Help: "Sky stream errors, by reason.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		propagationDurationSeconds,
		propagationTotal,
		propagationWorkers,
		passPredictionsTotal,
		passSamplesTotal,
		predictionDurationSeconds,
		tleDatasetCount,
		tleDatasetObjects,
		tleDatasetAgeSeconds,
		tleSelectionAgeDays,
		streamConnectionsTotal,
		streamsActive,
		streamMessagesTotal,
		streamBytesTotal,
		streamErrorsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPropagation records one batch propagation.
func RecordPropagation(backend string, d time.Duration, success, failed int) {
	propagationDurationSeconds.WithLabelValues(backend).Observe(d.Seconds())
	propagationTotal.WithLabelValues(backend, "ok").Add(float64(success))
	propagationTotal.WithLabelValues(backend, "error").Add(float64(failed))
}

// SetPropagationWorkers records the configured pool size.
func SetPropagationWorkers(n int) { propagationWorkers.Set(float64(n)) }

// RecordPrediction records one pass prediction run and its sample counts.
func RecordPrediction(shadow string, d time.Duration, above, below, skipped int) {
	passPredictionsTotal.WithLabelValues(shadow).Inc()
	predictionDurationSeconds.Observe(d.Seconds())
	passSamplesTotal.WithLabelValues("above").Add(float64(above))
	passSamplesTotal.WithLabelValues("below").Add(float64(below))
	passSamplesTotal.WithLabelValues("skipped").Add(float64(skipped))
}

// SetTLEDataset records the size of a freshly loaded dataset.
func SetTLEDataset(entries, objects int) {
	tleDatasetCount.Set(float64(entries))
	tleDatasetObjects.Set(float64(objects))
}

// SetTLEDatasetAge records how long ago the dataset was loaded.
func SetTLEDatasetAge(seconds float64) { tleDatasetAgeSeconds.Set(seconds) }

// ObserveSelectionAge records the age of a selected element set.
func ObserveSelectionAge(days float64) { tleSelectionAgeDays.Observe(days) }

// StreamConnected counts a new stream and returns the matching disconnect.
func StreamConnected() (disconnected func()) {
	streamConnectionsTotal.WithLabelValues("connect").Inc()
	streamsActive.Inc()
	return func() {
		streamConnectionsTotal.WithLabelValues("disconnect").Inc()
		streamsActive.Dec()
	}
}

// RecordStreamMessage counts one SSE message of n bytes. Keep-alives count
// bytes only.
func RecordStreamMessage(n int, keepalive bool) {
	if !keepalive {
		streamMessagesTotal.Inc()
	}
	streamBytesTotal.Add(float64(n))
}

// IncStreamErrors counts a stream error.
func IncStreamErrors(reason string) { streamErrorsTotal.WithLabelValues(reason).Inc() }

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

var knownRoutes = map[string]bool{
	"/":                            true,
	"/healthz":                     true,
	"/readyz":                      true,
	"/metrics":                     true,
	"/api/v1/sun":                  true,
	"/api/v1/moon":                 true,
	"/api/v1/moon/phase":           true,
	"/api/v1/passes":               true,
	"/api/v1/tle/metadata":         true,
	"/api/v1/tle/select":           true,
	"/api/v1/tle/fetch":            true,
	"/api/v1/satellites/positions": true,
	"/api/v1/stream/sky":           true,
}

// normalizeRoute maps a request path to a bounded label set so that
// per-object paths and scanner noise do not create new series.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, "/api/v1/satellites/"); ok {
		if id, ok := strings.CutSuffix(rest, "/track"); ok && isDigits(id) {
			return "/api/v1/satellites/{norad_id}/track"
		}
	}
	return "other"
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
