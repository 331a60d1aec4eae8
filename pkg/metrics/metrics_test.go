package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNewTimerStartsNow(t *testing.T) {
	timer := NewTimer()
	require.False(t, timer.start.IsZero())
	require.Less(t, time.Since(timer.start), time.Second)
}

func TestTimerDurationIncreasesMonotonically(t *testing.T) {
	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)
	d1 := timer.Duration()
	time.Sleep(20 * time.Millisecond)
	d2 := timer.Duration()
	require.Greater(t, d2, d1)
}

func TestTimerObserveDuration(t *testing.T) {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_observe_duration_seconds",
		Buckets: prometheus.DefBuckets,
	})
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)
	timer.ObserveDuration(h)
	require.Equal(t, uint64(1), testutil.CollectAndCount(h))
}

func TestTimerObserveDurationVec(t *testing.T) {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_observe_duration_vec_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"verb"})
	timer := NewTimer()
	timer.ObserveDurationVec(h, "SET")
	require.Equal(t, uint64(1), testutil.CollectAndCount(h))
}

func TestCommandsTotalLabeled(t *testing.T) {
	before := testutil.ToFloat64(CommandsTotal.WithLabelValues("PING", "ok"))
	CommandsTotal.WithLabelValues("PING", "ok").Inc()
	after := testutil.ToFloat64(CommandsTotal.WithLabelValues("PING", "ok"))
	require.Equal(t, before+1, after)
}
