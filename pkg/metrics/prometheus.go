package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	runsTotal    *prometheus.CounterVec
	sourceErrors *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastOverall  *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg (prometheus.DefaultRegisterer when nil).
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		runsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_analysis_runs_total",
				Help: "Analysis runs by terminal status",
			},
			[]string{"status"},
		),
		sourceErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_source_errors_total",
				Help: "Secondary sources that degraded to a zero score",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stocksense_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastOverall: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "stocksense_last_overall_score",
				Help: "Overall score of the last completed run per ticker",
			},
			[]string{"ticker"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "stocksense_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRun counts a finished run.
func (r *Recorder) RecordRun(status string) {
	r.runsTotal.WithLabelValues(status).Inc()
}

// RecordSourceError counts a degraded secondary source.
func (r *Recorder) RecordSourceError(source string) {
	r.sourceErrors.WithLabelValues(source).Inc()
}

// RecordOverall records the last overall score for a ticker.
func (r *Recorder) RecordOverall(ticker string, overall int) {
	r.lastOverall.WithLabelValues(ticker).Set(float64(overall))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
