package sink

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/driftwatch/driftwatch/internal/drift"
)

// Metrics exports drift results and engine-level signals as Prometheus
// metrics. It implements both drift.Sink and drift.Instrumentation.
type Metrics struct {
	psiScore     *prometheus.GaugeVec
	driftEvents  *prometheus.CounterVec
	recordsTotal prometheus.Counter
	evalDuration prometheus.Histogram
}

// NewMetrics creates and registers the drift metrics. A nil registerer uses
// the default Prometheus registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		psiScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "driftwatch_psi_score",
				Help: "Most recent PSI score per feature",
			},
			[]string{"feature"},
		),
		driftEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftwatch_drift_events_total",
				Help: "Drift evaluation results by feature and status",
			},
			[]string{"feature", "status"},
		),
		recordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "driftwatch_records_ingested_total",
				Help: "Total records ingested into the sliding window",
			},
		),
		evalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "driftwatch_evaluation_duration_seconds",
				Help:    "Time spent running one evaluation cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
	}

	reg.MustRegister(m.psiScore, m.driftEvents, m.recordsTotal, m.evalDuration)
	return m
}

// Name implements drift.Sink.
func (m *Metrics) Name() string { return "metrics" }

// Consume implements drift.Sink.
func (m *Metrics) Consume(result drift.Result) error {
	m.psiScore.WithLabelValues(result.Feature).Set(result.PSI)
	m.driftEvents.WithLabelValues(result.Feature, result.Status.Label()).Inc()
	return nil
}

// RecordIngested implements drift.Instrumentation.
func (m *Metrics) RecordIngested() {
	m.recordsTotal.Inc()
}

// EvaluationFinished implements drift.Instrumentation.
func (m *Metrics) EvaluationFinished(d time.Duration, _ int) {
	m.evalDuration.Observe(d.Seconds())
}
