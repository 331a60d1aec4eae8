package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CommandsTotal counts dispatched commands by normalized verb and
	// outcome ("ok"/"error"), mirroring the teacher's label-by-outcome
	// shape used for APIRequestsTotal.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyd_commands_total",
			Help: "Total number of commands dispatched, by verb and outcome",
		},
		[]string{"verb", "outcome"},
	)

	// CommandDuration records dispatch latency by verb.
	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keyd_command_duration_seconds",
			Help:    "Command dispatch duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"verb"},
	)

	// ConnectedClients is the current number of open connections.
	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keyd_connected_clients",
			Help: "Number of currently connected clients",
		},
	)

	// KeyspaceSize is the last-observed total physical key count, updated
	// by the INFO keyspace section (pkg/monitor).
	KeyspaceSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "keyd_keyspace_keys",
			Help: "Total number of physical keys in the store",
		},
	)

	// SnapshotDuration records how long each RDB-style snapshot took.
	SnapshotDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "keyd_snapshot_duration_seconds",
			Help:    "Time taken to write a full snapshot, in seconds",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30},
		},
	)

	// SnapshotsTotal counts snapshot attempts by outcome.
	SnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyd_snapshots_total",
			Help: "Total number of snapshot attempts by outcome",
		},
		[]string{"outcome"},
	)

	// AOFWritesTotal counts append-log writes by outcome.
	AOFWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keyd_aof_writes_total",
			Help: "Total number of append-log writes by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(CommandDuration)
	prometheus.MustRegister(ConnectedClients)
	prometheus.MustRegister(KeyspaceSize)
	prometheus.MustRegister(SnapshotDuration)
	prometheus.MustRegister(SnapshotsTotal)
	prometheus.MustRegister(AOFWritesTotal)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a small helper for timing operations, used around snapshot
// writes and slow-command detection.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer, starting now.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(t.Duration().Seconds())
}

// ObserveDurationVec records the elapsed duration to a labeled histogram.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(t.Duration().Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
