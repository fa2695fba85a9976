package authzhttp

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the authorization server.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	AuthorizeDecisions *prometheus.CounterVec
	PendingApprovals   prometheus.Gauge
}

// NewMetrics creates and registers all metrics with reg. reg may be nil,
// in which case promauto.With(nil) falls back to prometheus' default
// registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RequestsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "latch",
				Name:      "authz_requests_total",
				Help:      "Total number of authorization server requests processed",
			},
			[]string{"route", "status"},
		),
		RequestDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "latch",
				Name:      "authz_request_duration_seconds",
				Help:      "Authorization server request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		AuthorizeDecisions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "latch",
				Name:      "authorize_decisions_total",
				Help:      "Total authorize decisions by outcome",
			},
			[]string{"decision"},
		),
		PendingApprovals: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Namespace: "latch",
				Name:      "pending_approvals",
				Help:      "Number of approvals currently parked awaiting resolution",
			},
		),
	}
}
