package persistence

import (
	"bufio"
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/cuemby/keyd/pkg/log"
	"github.com/cuemby/keyd/pkg/metrics"
	"github.com/cuemby/keyd/pkg/store"
)

// Dumper is the subset of *store.BoltStore the snapshotter needs: flush
// to durable state, then iterate every physical (key, value) pair in
// byte order.
type Dumper interface {
	Sync() error
	Each(fn func(key, value []byte) error) error
}

// Snapshotter drives spec.md §4.7's periodic full snapshot: whichever of
// an interval or a mutating-write-count threshold fires first triggers
// do_snapshot. Grounded on the same ticker-plus-trigger-channel shape as
// pkg/ttl.Sweeper, generalized with an explicit early-trigger channel so
// the threshold can fire between ticks.
type Snapshotter struct {
	store     Dumper
	path      string
	interval  time.Duration
	threshold uint64

	writes  uint64
	trigger chan struct{}

	// truncator optionally empties the append log after a durable
	// snapshot (spec.md §4.7's allowed-but-optional truncation). Nil
	// disables it.
	truncator *Log
}

// NewSnapshotter constructs a snapshotter. truncator may be nil to
// disable post-snapshot log truncation.
func NewSnapshotter(st Dumper, path string, interval time.Duration, threshold uint64, truncator *Log) *Snapshotter {
	return &Snapshotter{
		store:     st,
		path:      path,
		interval:  interval,
		threshold: threshold,
		trigger:   make(chan struct{}, 1),
		truncator: truncator,
	}
}

// RecordWrite counts one mutating command toward the snapshot threshold,
// called by the dispatcher after every successful write. If the
// threshold is reached it wakes Run immediately instead of waiting for
// the next interval tick.
func (s *Snapshotter) RecordWrite() {
	if s.threshold == 0 {
		return
	}
	n := atomic.AddUint64(&s.writes, 1)
	if n >= s.threshold {
		select {
		case s.trigger <- struct{}{}:
		default:
		}
	}
}

// Run blocks, triggering a snapshot on every interval tick or early
// threshold trigger, until ctx is cancelled.
func (s *Snapshotter) Run(ctx context.Context) {
	// A non-positive interval disables the ticker; threshold triggers
	// still fire.
	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick:
			s.snapshotOnce()
		case <-s.trigger:
			s.snapshotOnce()
		}
	}
}

// snapshotOnce runs the five-step procedure from spec.md §4.7. Failure
// is logged and never fatal; the next trigger retries (spec.md §4.7
// "Failure to snapshot is logged but never fatal").
func (s *Snapshotter) snapshotOnce() {
	atomic.StoreUint64(&s.writes, 0)
	timer := metrics.NewTimer()
	logger := log.WithComponent("snapshot")

	if err := s.doSnapshot(); err != nil {
		logger.Warn().Err(err).Msg("snapshot failed")
		metrics.SnapshotsTotal.WithLabelValues("error").Inc()
		return
	}

	timer.ObserveDuration(metrics.SnapshotDuration)
	metrics.SnapshotsTotal.WithLabelValues("ok").Inc()
	logger.Info().Dur("took", timer.Duration()).Msg("snapshot written")

	if s.truncator != nil {
		if err := s.truncator.Truncate(); err != nil {
			logger.Warn().Err(err).Msg("append-log truncation after snapshot failed")
		}
	}
}

func (s *Snapshotter) doSnapshot() error {
	if err := s.store.Sync(); err != nil {
		return fmt.Errorf("flush store before snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".keyd-snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed away

	w := bufio.NewWriter(tmp)
	writeErr := s.store.Each(func(key, value []byte) error {
		_, err := fmt.Fprintf(w, "%d %d %s %s\n", len(key), len(value), hex.EncodeToString(key), hex.EncodeToString(value))
		return err
	})
	if writeErr == nil {
		writeErr = w.Flush()
	}
	if writeErr != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot body: %w", writeErr)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("fsync snapshot temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}
	return nil
}

var _ Dumper = (*store.BoltStore)(nil)
