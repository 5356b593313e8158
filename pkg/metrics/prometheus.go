package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	processed    *prometheus.CounterVec
	dropped      *prometheus.CounterVec
	bondFailures *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	lastRun      prometheus.Gauge
}

// New registers the recorder's collectors on reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		processed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bondpanel_records_processed_total",
				Help: "Records emitted by each pipeline stage",
			},
			[]string{"stage"},
		),
		dropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bondpanel_records_dropped_total",
				Help: "Records dropped by each pipeline stage, by reason",
			},
			[]string{"stage", "reason"},
		),
		bondFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bondpanel_bond_failures_total",
				Help: "Bonds skipped after a partition failure",
			},
			[]string{"stage"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bondpanel_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bondpanel_stage_duration_seconds",
				Help:    "Duration of pipeline operations in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
			[]string{"operation"},
		),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "bondpanel_last_run_timestamp",
			Help: "Unix time of the last completed run",
		}),
	}
}

func (r *Recorder) RecordProcessed(stage string, n int) {
	r.processed.WithLabelValues(stage).Add(float64(n))
}

func (r *Recorder) RecordDropped(stage, reason string, n int) {
	r.dropped.WithLabelValues(stage, reason).Add(float64(n))
}

func (r *Recorder) RecordBondFailure(stage string) {
	r.bondFailures.WithLabelValues(stage).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordRunCompleted(at time.Time) {
	r.lastRun.Set(float64(at.Unix()))
}
