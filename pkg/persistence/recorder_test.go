package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/cuemby/keyd/pkg/store"
	"github.com/stretchr/testify/require"
)

func TestRecorderAppendsAndCountsTowardSnapshot(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "keyd.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	l, err := OpenLog(filepath.Join(dir, "keyd.aof"))
	require.NoError(t, err)
	snap := NewSnapshotter(st, filepath.Join(dir, "keyd.rdb"), time.Hour, 1, nil)

	r := &Recorder{Log: l, Snap: snap}
	require.NoError(t, r.Append([]string{"SET", "k", "v"}))
	require.Equal(t, uint64(1), snap.writes)
}

func TestRecorderToleratesNilCollaborators(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Append([]string{"SET", "k", "v"}))
}
