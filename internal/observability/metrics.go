package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service, plus a
// rolling window of capture stage latencies served by the perf endpoint.
type Metrics struct {
	ActiveSessions     prometheus.Gauge
	SessionEvents      *prometheus.CounterVec
	WSMessages         *prometheus.CounterVec
	WSOutboundQueue    *prometheus.CounterVec
	WSWriteErrors      prometheus.Counter
	CaptureOutcomes    *prometheus.CounterVec
	DeviceErrors       *prometheus.CounterVec
	NotificationEvents *prometheus.CounterVec
	FinalizeLatency    prometheus.Histogram

	captureStages *captureStageWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		captureStages: newCaptureStageWindow(256),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active voice control sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		WSOutboundQueue: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_outbound_queue_total",
			Help:      "Outbound websocket enqueue attempts by type and result.",
		}, []string{"type", "result"}),
		WSWriteErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_write_errors_total",
			Help:      "WebSocket writes that failed.",
		}),
		CaptureOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_outcomes_total",
			Help:      "Completed capture attempts by outcome.",
		}, []string{"outcome"}),
		DeviceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_errors_total",
			Help:      "Capture device errors by code.",
		}, []string{"code"}),
		NotificationEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_events_total",
			Help:      "Push notification queue events by outcome.",
		}, []string{"outcome"}),
		FinalizeLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "finalize_latency_ms",
			Help:      "Latency from stop gesture to transcript in milliseconds.",
			Buckets:   []float64{50, 100, 200, 400, 800, 1500, 3000, 6000},
		}),
	}
}

func (m *Metrics) ObserveFinalizeLatency(d time.Duration) {
	m.FinalizeLatency.Observe(float64(d.Milliseconds()))
}

// ObserveOutboundMessage counts one attempt to enqueue an outbound websocket
// message and whether it was queued or dropped.
func (m *Metrics) ObserveOutboundMessage(msgType, result string) {
	m.WSOutboundQueue.WithLabelValues(msgType, result).Inc()
}

func (m *Metrics) ObserveCaptureStage(stage string, d time.Duration) {
	m.captureStages.Observe(stage, float64(d.Microseconds())/1000.0)
}

func (m *Metrics) ObserveCaptureIndicator(name string) {
	m.captureStages.ObserveIndicator(name)
}

func (m *Metrics) SnapshotCaptureStages() CaptureStageSnapshot {
	return m.captureStages.Snapshot()
}

func (m *Metrics) ResetCaptureStages() {
	m.captureStages.Reset()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
