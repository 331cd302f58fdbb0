// Package metrics exposes Prometheus counters for processing passes.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sigtable"

// Recorder counts comparisons, skipped metrics and publish outcomes. A nil
// Recorder records nothing.
type Recorder struct {
	comparisons  *prometheus.CounterVec
	skipped      *prometheus.CounterVec
	publishes    *prometheus.CounterVec
	passDuration prometheus.Histogram
	lastPass     prometheus.Gauge
}

// NewRecorder registers the recorder's collectors on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		comparisons: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "comparisons_total",
			Help:      "Variant comparisons computed, by significance.",
		}, []string{"significance"}),
		skipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metrics_skipped_total",
			Help:      "Metrics that produced no rows, by reason.",
		}, []string{"reason"}),
		publishes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_total",
			Help:      "Table publish attempts, by outcome.",
		}, []string{"outcome"}),
		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Wall time of a full processing pass.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		lastPass: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time the last processing pass finished.",
		}),
	}
}

func (r *Recorder) Comparison(significance fmt.Stringer) {
	if r == nil {
		return
	}
	r.comparisons.WithLabelValues(significance.String()).Inc()
}

func (r *Recorder) Skipped(reason string) {
	if r == nil {
		return
	}
	r.skipped.WithLabelValues(reason).Inc()
}

func (r *Recorder) Publish(outcome fmt.Stringer) {
	if r == nil {
		return
	}
	r.publishes.WithLabelValues(outcome.String()).Inc()
}

func (r *Recorder) Pass(started time.Time) {
	if r == nil {
		return
	}
	r.passDuration.Observe(time.Since(started).Seconds())
	r.lastPass.SetToCurrentTime()
}

// WriteFile dumps every metric gathered from g in the text exposition
// format, for runs that exit before anything could scrape them.
func WriteFile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
