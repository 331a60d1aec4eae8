package persistence_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cuemby/keyd/pkg/command"
	"github.com/cuemby/keyd/pkg/monitor"
	"github.com/cuemby/keyd/pkg/persistence"
	"github.com/cuemby/keyd/pkg/session"
	"github.com/cuemby/keyd/pkg/store"
	"github.com/cuemby/keyd/pkg/watch"
	"github.com/stretchr/testify/require"
)

// This test reproduces the exact startup sequence cmd/keyd runs: the
// append log is opened once, in append mode, and stays open for the
// process lifetime while Replay scans the same file from the start.
// Replay must go through a dispatcher that is NOT wired to that live
// log; otherwise every replayed line re-enters the same growing file
// the scanner is still reading, turning a bounded one-time replay into
// unbounded self-reingestion.
func TestReplayAgainstLiveAppenderDoesNotReingestItsOwnOutput(t *testing.T) {
	dir := t.TempDir()
	aofPath := filepath.Join(dir, "keyd.aof")

	seed, err := persistence.OpenLog(aofPath)
	require.NoError(t, err)
	require.NoError(t, seed.Append([]string{"SET", "a", "1"}))
	require.NoError(t, seed.Append([]string{"SET", "b", "2"}))
	require.NoError(t, seed.Close())

	st, err := store.Open(filepath.Join(dir, "keyd.db"))
	require.NoError(t, err)
	defer st.Close()

	wm := watch.NewManager()
	clients := monitor.NewClientRegistry()
	stats := monitor.NewStats()
	info := monitor.NewProvider("test", clients, stats, func() (int, error) { return 0, nil }, true, false)
	slowlog := monitor.NewSlowLog(time.Hour)

	// The live append log is opened before replay runs, exactly as
	// cmd/keyd's buildRecorder does.
	liveLog, err := persistence.OpenLog(aofPath)
	require.NoError(t, err)
	defer liveLog.Close()

	replayDisp := command.NewDispatcher(st, wm, info, clients, slowlog, stats, nil)
	n, err := persistence.Replay(aofPath, replayDisp)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	statAfterReplay, err := os.Stat(aofPath)
	require.NoError(t, err)
	sizeAfterReplay := statAfterReplay.Size()

	linesAfterReplay := nonEmptyLines(t, aofPath)
	require.Equal(t, []string{"SET a 1", "SET b 2"}, linesAfterReplay,
		"replay must not have re-appended the seeded lines to the live log")

	// Now build the dispatcher that actually serves connections, with the
	// real (live) appender wired in, and issue one new write.
	liveDisp := command.NewDispatcher(st, wm, info, clients, slowlog, stats, liveLog)
	reply, closeConn := liveDisp.Execute(session.New(), []string{"SET", "c", "3"})
	require.Equal(t, "OK", reply)
	require.False(t, closeConn)

	statAfterWrite, err := os.Stat(aofPath)
	require.NoError(t, err)
	require.Greater(t, statAfterWrite.Size(), sizeAfterReplay,
		"the new SET should append exactly one more line")

	require.Equal(t, []string{"SET a 1", "SET b 2", "SET c 3"}, nonEmptyLines(t, aofPath))
}

func nonEmptyLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var lines []string
	for _, l := range strings.Split(string(data), "\n") {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
