// Prometheus instrumentation for batch filter application
package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Apply outcomes used as the "outcome" label
const (
	OutcomeCommitted = "committed"
	OutcomeAborted   = "aborted"
	OutcomeFailed    = "failed"
)

// ApplyMetrics records apply runs. A nil *ApplyMetrics is valid and records
// nothing.
type ApplyMetrics struct {
	runs              *prometheus.CounterVec
	targets           *prometheus.CounterVec
	recomputeFailures prometheus.Counter
	recomputeDuration prometheus.Histogram
	inFlight          prometheus.Gauge
}

// NewApplyMetrics registers the collectors with reg (the default registerer
// when nil)
func NewApplyMetrics(reg prometheus.Registerer) *ApplyMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &ApplyMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filter_apply_runs_total",
			Help: "Batch filter apply runs by outcome",
		}, []string{"outcome"}),
		targets: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "filter_apply_targets_total",
			Help: "Images that received a filter chain, by apply mode",
		}, []string{"mode"}),
		recomputeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "filter_recompute_failures_total",
			Help: "Image recomputations that failed after a chain was applied",
		}),
		recomputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "filter_recompute_duration_seconds",
			Help:    "Time taken to recompute one image",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "filter_recompute_in_flight",
			Help: "Image recomputations currently running",
		}),
	}
}

func (m *ApplyMetrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *ApplyMetrics) TargetApplied(mode string) {
	if m == nil {
		return
	}
	m.targets.WithLabelValues(mode).Inc()
}

// RecomputeStarted marks one recompute as running and returns the function
// that records its completion
func (m *ApplyMetrics) RecomputeStarted() func(err error) {
	if m == nil {
		return func(error) {}
	}
	start := time.Now()
	m.inFlight.Inc()
	return func(err error) {
		m.inFlight.Dec()
		m.recomputeDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			m.recomputeFailures.Inc()
		}
	}
}

// Handler serves the collectors of g in the Prometheus text format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Summary flattens the current values gathered from g into log fields,
// one per series. Histograms contribute their _count and _sum.
func Summary(g prometheus.Gatherer) (logrus.Fields, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	fields := logrus.Fields{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if pairs := m.GetLabel(); len(pairs) > 0 {
				labels := make([]string, len(pairs))
				for i, p := range pairs {
					labels[i] = fmt.Sprintf("%s=%q", p.GetName(), p.GetValue())
				}
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				fields[name] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				fields[name] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				fields[name+"_count"] = float64(m.GetHistogram().GetSampleCount())
				fields[name+"_sum"] = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return fields, nil
}
