package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
// All record methods are safe to call on a nil *Metrics.
type Metrics struct {
	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Pipeline metrics
	PipelineRuns  *prometheus.CounterVec
	ParseOutcomes *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec

	// Session and export metrics
	ActiveSessions prometheus.Gauge
	Exports        prometheus.Counter

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extrato_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extrato_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		PipelineRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extrato_pipeline_runs_total",
				Help: "Finished pipeline runs by final status and failure reason",
			},
			[]string{"status", "reason"},
		),
		ParseOutcomes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extrato_parse_outcomes_total",
				Help: "Statement parser calls by outcome",
			},
			[]string{"outcome"},
		),
		StageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extrato_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),

		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Name: "extrato_active_sessions",
			Help: "Number of live conversion sessions",
		}),
		Exports: f.NewCounter(prometheus.CounterOpts{
			Name: "extrato_exports_total",
			Help: "Total spreadsheets exported",
		}),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extrato_rate_limit_hits_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) RecordRun(status, reason string) {
	if m == nil {
		return
	}
	m.PipelineRuns.WithLabelValues(status, reason).Inc()
}

func (m *Metrics) RecordParseOutcome(outcome string) {
	if m == nil {
		return
	}
	m.ParseOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}

func (m *Metrics) RecordExport() {
	if m == nil {
		return
	}
	m.Exports.Inc()
}

func (m *Metrics) RecordRateLimitHit(route string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(route).Inc()
}
