package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const opsMetricPrefix = "freightport_"

// Result label values
const (
	ResultSuccess   = "success"
	ResultError     = "error"
	ResultDuplicate = "duplicate"
	ResultRejected  = "rejected"
)

// OpsMetrics are the Prometheus counters scraped from /metrics. They cover
// background work that has no HTTP request to hang a span on. All methods are
// safe on a nil receiver.
type OpsMetrics struct {
	registry *prometheus.Registry

	notificationDeliveries *prometheus.CounterVec
	trackingWebhooks       *prometheus.CounterVec
	trackingEvents         prometheus.Counter
	schedulerRuns          *prometheus.CounterVec
	schedulerItems         *prometheus.CounterVec
	schedulerDuration      *prometheus.HistogramVec
}

// NewOpsMetrics creates the metrics on a private registry along with the Go
// runtime and process collectors.
func NewOpsMetrics() *OpsMetrics {
	m := &OpsMetrics{
		registry: prometheus.NewRegistry(),
		notificationDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: opsMetricPrefix + "notification_deliveries_total",
				Help: "Notification delivery attempts by channel and result",
			},
			[]string{"channel", "result"},
		),
		trackingWebhooks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: opsMetricPrefix + "tracking_webhooks_total",
				Help: "Tracking provider webhook deliveries by result",
			},
			[]string{"result"},
		),
		trackingEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: opsMetricPrefix + "tracking_events_ingested_total",
				Help: "New tracking events stored from webhooks",
			},
		),
		schedulerRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: opsMetricPrefix + "scheduler_runs_total",
				Help: "Background job runs by job and result",
			},
			[]string{"job", "result"},
		),
		schedulerItems: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: opsMetricPrefix + "scheduler_items_total",
				Help: "Items processed by background jobs",
			},
			[]string{"job"},
		),
		schedulerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    opsMetricPrefix + "scheduler_run_duration_seconds",
				Help:    "Background job run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.notificationDeliveries,
		m.trackingWebhooks,
		m.trackingEvents,
		m.schedulerRuns,
		m.schedulerItems,
		m.schedulerDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *OpsMetrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry
func (m *OpsMetrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func resultOf(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// NotificationDelivered counts one delivery attempt
func (m *OpsMetrics) NotificationDelivered(channel string, err error) {
	if m == nil {
		return
	}
	m.notificationDeliveries.WithLabelValues(channel, resultOf(err)).Inc()
}

// TrackingWebhook counts a webhook delivery with one of the Result* values
func (m *OpsMetrics) TrackingWebhook(result string) {
	if m == nil {
		return
	}
	m.trackingWebhooks.WithLabelValues(result).Inc()
}

// TrackingEventsIngested counts newly stored tracking events
func (m *OpsMetrics) TrackingEventsIngested(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.trackingEvents.Add(float64(n))
}

// SchedulerRun records one run of a background job
func (m *OpsMetrics) SchedulerRun(job string, d time.Duration, items int, err error) {
	if m == nil {
		return
	}
	m.schedulerRuns.WithLabelValues(job, resultOf(err)).Inc()
	m.schedulerDuration.WithLabelValues(job).Observe(d.Seconds())
	if items > 0 {
		m.schedulerItems.WithLabelValues(job).Add(float64(items))
	}
}
