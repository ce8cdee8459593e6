// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingress metrics
	WebhookRequests      *prometheus.CounterVec
	TransactionsReceived *prometheus.CounterVec
	CreatesDetected      *prometheus.CounterVec
	LaunchesPersisted    prometheus.Counter
	DecodeErrors         *prometheus.CounterVec

	// Scheduler metrics
	QueueSize       prometheus.Gauge
	TasksInFlight   prometheus.Gauge
	TasksTotal      *prometheus.CounterVec
	MintsAdmitted   *prometheus.CounterVec
	ScoringDuration prometheus.Histogram
	ReportsByLabel  *prometheus.CounterVec

	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec
	WSReconnects   prometheus.Counter

	// Sink metrics
	SinkErrors *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "pump_radar"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		WebhookRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "webhook_requests_total",
			Help:      "Total number of webhook requests by response status",
		}, []string{"status"}),
		TransactionsReceived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingress",
			Name:      "transactions_received_total",
			Help:      "Total number of transactions received by source",
		}, []string{"source"}),
		CreatesDetected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "creates_detected_total",
			Help:      "Total number of create events detected by source",
		}, []string{"source"}),
		LaunchesPersisted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "launches_persisted_total",
			Help:      "Total number of new launch events written to storage",
		}),
		DecodeErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "discovery",
			Name:      "decode_errors_total",
			Help:      "Total number of transactions that failed to decode by kind",
		}, []string{"kind"}),

		QueueSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "queue_size",
			Help:      "Number of scoring tasks waiting for a worker",
		}),
		TasksInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_in_flight",
			Help:      "Number of scoring tasks currently running",
		}),
		TasksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "tasks_total",
			Help:      "Total number of finished scoring tasks by status",
		}, []string{"status"}),
		MintsAdmitted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "enqueue_decisions_total",
			Help:      "Enqueue decisions by outcome",
		}, []string{"outcome"}),
		ScoringDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "scoring_duration_seconds",
			Help:      "Time to compute and persist a risk report",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		ReportsByLabel: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "reports_total",
			Help:      "Total number of risk reports computed by label",
		}, []string{"label"}),

		RPCCallLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed Solana RPC calls by method",
		}, []string{"method"}),
		WSReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "ws_reconnects_total",
			Help:      "Total number of WebSocket reconnect attempts",
		}),

		SinkErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sink",
			Name:      "errors_total",
			Help:      "Total number of failed writes to optional sinks",
		}, []string{"sink"}),
	}
}

// Handler returns the HTTP handler for Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordWebhookRequest increments webhook requests by HTTP status.
func RecordWebhookRequest(status string) {
	DefaultMetrics.WebhookRequests.WithLabelValues(status).Inc()
}

// RecordTransactionsReceived adds n received transactions for a source.
func RecordTransactionsReceived(source string, n int) {
	DefaultMetrics.TransactionsReceived.WithLabelValues(source).Add(float64(n))
}

// RecordCreatesDetected adds n detected create events for a source.
func RecordCreatesDetected(source string, n int) {
	DefaultMetrics.CreatesDetected.WithLabelValues(source).Add(float64(n))
}

// RecordLaunchPersisted increments newly inserted launch events.
func RecordLaunchPersisted() {
	DefaultMetrics.LaunchesPersisted.Inc()
}

// RecordDecodeError increments decode failures.
func RecordDecodeError(kind string) {
	DefaultMetrics.DecodeErrors.WithLabelValues(kind).Inc()
}

// RecordQueueState sets scheduler gauges.
func RecordQueueState(queued, inFlight int) {
	DefaultMetrics.QueueSize.Set(float64(queued))
	DefaultMetrics.TasksInFlight.Set(float64(inFlight))
}

// RecordTask increments finished tasks by status (ok, error, panic).
func RecordTask(status string) {
	DefaultMetrics.TasksTotal.WithLabelValues(status).Inc()
}

// RecordEnqueueDecision increments enqueue outcomes (queued, seen, persisted, error).
func RecordEnqueueDecision(outcome string) {
	DefaultMetrics.MintsAdmitted.WithLabelValues(outcome).Inc()
}

// RecordReport records a computed report and how long it took.
func RecordReport(label string, seconds float64) {
	DefaultMetrics.ReportsByLabel.WithLabelValues(label).Inc()
	DefaultMetrics.ScoringDuration.Observe(seconds)
}

// RecordRPCCall records RPC latency and failure by method.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// RecordWSReconnect increments WebSocket reconnect attempts.
func RecordWSReconnect() {
	DefaultMetrics.WSReconnects.Inc()
}

// RecordSinkError increments failures of an optional sink (clickhouse, kafka).
func RecordSinkError(sink string) {
	DefaultMetrics.SinkErrors.WithLabelValues(sink).Inc()
}
