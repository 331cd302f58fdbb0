package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type label string

func (l label) String() string { return string(l) }

func TestRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.Comparison(label("Negative"))
	r.Comparison(label("Negative"))
	r.Comparison(label("Neutral"))
	r.Skipped("not_ready")
	r.Publish(label("rejected"))
	r.Pass(time.Now().Add(-time.Second))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.comparisons.WithLabelValues("Negative")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.comparisons.WithLabelValues("Neutral")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.skipped.WithLabelValues("not_ready")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.publishes.WithLabelValues("rejected")))
	assert.Greater(t, testutil.ToFloat64(r.lastPass), 0.0)
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.Comparison(label("Positive"))
		r.Skipped("fetch_failed")
		r.Publish(label("published"))
		r.Pass(time.Now())
	})
}

func TestWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)
	r.Skipped("insufficient_data")

	path := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, WriteFile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sigtable_metrics_skipped_total{reason="insufficient_data"} 1`)
}
