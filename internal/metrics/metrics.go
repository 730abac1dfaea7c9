package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests can build as many instances as they like.
// All record methods are safe on a nil receiver.
type Metrics struct {
	Registry *prometheus.Registry

	reservations  *prometheus.CounterVec
	releases      prometheus.Counter
	checkouts     *prometheus.CounterVec
	timeouts      *prometheus.CounterVec
	sweptSessions prometheus.Counter
	notifications *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		reservations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_reservations_total",
				Help: "Reservation attempts by result.",
			},
			[]string{"result"},
		),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cart_releases_total",
			Help: "Items released back to inventory.",
		}),
		checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_transitions_total",
				Help: "Order state changes by outcome.",
			},
			[]string{"outcome"},
		),
		timeouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_timeouts_total",
				Help: "Activity timeouts that released inventory, by kind.",
			},
			[]string{"kind"},
		),
		sweptSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_sessions_total",
			Help: "Expired sessions cleaned up by the sweeper.",
		}),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Notification dispatch results by template.",
			},
			[]string{"template", "outcome"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by route and status code.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.reservations,
		m.releases,
		m.checkouts,
		m.timeouts,
		m.sweptSessions,
		m.notifications,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) Reservation(result string) {
	if m == nil {
		return
	}
	m.reservations.WithLabelValues(result).Inc()
}

func (m *Metrics) Release() {
	if m == nil {
		return
	}
	m.releases.Inc()
}

func (m *Metrics) Checkout(outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Timeout(kind string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(kind).Inc()
}

func (m *Metrics) Swept(n int) {
	if m == nil {
		return
	}
	m.sweptSessions.Add(float64(n))
}

func (m *Metrics) Notification(template, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(template, outcome).Inc()
}

func (m *Metrics) HTTPRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
