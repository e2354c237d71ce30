package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "giftbox"

// ServerMetrics holds the HTTP request metrics of the order server
type ServerMetrics struct {
	Requests  *prometheus.CounterVec
	LatencyMS *prometheus.HistogramVec
}

// NewServerMetrics creates the request metrics and registers them on reg.
// A nil reg leaves them unregistered (tests).
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "method", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	if reg != nil {
		reg.MustRegister(requests, latency)
	}
	return &ServerMetrics{Requests: requests, LatencyMS: latency}
}

// Instrument wraps next, counting requests by status and observing latency
func (m *ServerMetrics) Instrument(handler string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		m.Requests.WithLabelValues(handler, r.Method, strconv.Itoa(rec.status)).Inc()
		m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Milliseconds()))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// NotificationMetrics counts fan-out trigger outcomes
type NotificationMetrics struct {
	Outcomes *prometheus.CounterVec
	Attempts *prometheus.CounterVec
}

// Notification outcomes
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// NewNotificationMetrics creates the fan-out metrics and registers them on reg.
// A nil reg leaves them unregistered.
func NewNotificationMetrics(reg prometheus.Registerer) *NotificationMetrics {
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "outcomes_total",
		Help:      "Notification trigger outcomes by notifier, event and result.",
	}, []string{"notifier", "event", "outcome"})
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifications",
		Name:      "attempts_total",
		Help:      "Notification delivery attempts, retries included.",
	}, []string{"notifier"})

	if reg != nil {
		reg.MustRegister(outcomes, attempts)
	}
	return &NotificationMetrics{Outcomes: outcomes, Attempts: attempts}
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
