package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the server. Each instance owns
// its registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	BookingsTotal          *prometheus.CounterVec
	TransitionsTotal       *prometheus.CounterVec
	NotificationsTotal     *prometheus.CounterVec
	NotificationDuration   *prometheus.HistogramVec
	NotificationQueueDepth prometheus.Gauge
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		BookingsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "appointments_bookings_total",
			Help: "Booking requests by outcome",
		}, []string{"outcome"}),

		TransitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "appointments_transitions_total",
			Help: "Status transition attempts by target status and outcome",
		}, []string{"status", "outcome"}),

		NotificationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification events by kind and outcome (sent, failed, dropped)",
		}, []string{"kind", "outcome"}),

		NotificationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_duration_seconds",
			Help:    "Time spent delivering a notification event",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),

		NotificationQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "notification_queue_depth",
			Help: "Events waiting in the notification queue",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
