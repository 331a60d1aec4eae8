package persistence

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/keyd/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestSnapshotWritesConsistentDump(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "keyd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	kv := st.Direct(nil)
	require.NoError(t, kv.Insert([]byte("string:foo"), []byte("bar")))
	require.NoError(t, kv.Insert([]byte("string:baz"), []byte("qux")))

	snapPath := filepath.Join(dir, "keyd.rdb")
	snap := NewSnapshotter(st, snapPath, time.Hour, 0, nil)
	snap.snapshotOnce()

	f, err := os.Open(snapPath)
	require.NoError(t, err)
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines++
	}
	require.Equal(t, 2, lines)
}

func TestSnapshotThresholdTriggersEarly(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "keyd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	snapPath := filepath.Join(dir, "keyd.rdb")
	snap := NewSnapshotter(st, snapPath, time.Hour, 2, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		snap.Run(ctx)
		close(done)
	}()

	snap.RecordWrite()
	snap.RecordWrite()

	require.Eventually(t, func() bool {
		_, err := os.Stat(snapPath)
		return err == nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestSnapshotTruncatesLogWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "keyd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	logPath := filepath.Join(dir, "keyd.aof")
	l, err := OpenLog(logPath)
	require.NoError(t, err)
	require.NoError(t, l.Append([]string{"SET", "a", "1"}))

	snapPath := filepath.Join(dir, "keyd.rdb")
	snap := NewSnapshotter(st, snapPath, time.Hour, 0, l)
	snap.snapshotOnce()

	info, err := os.Stat(logPath)
	require.NoError(t, err)
	require.Equal(t, int64(0), info.Size())
}
