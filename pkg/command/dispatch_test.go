package command

import (
	"testing"
	"time"

	"github.com/cuemby/keyd/pkg/monitor"
	"github.com/cuemby/keyd/pkg/session"
	"github.com/cuemby/keyd/pkg/store"
	"github.com/cuemby/keyd/pkg/watch"
	"github.com/stretchr/testify/require"
)

type fakeAOF struct {
	lines [][]string
}

func (f *fakeAOF) Append(tokens []string) error {
	f.lines = append(f.lines, tokens)
	return nil
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *fakeAOF) {
	t.Helper()
	st, err := store.Open(t.TempDir() + "/keyd.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	wm := watch.NewManager()
	clients := monitor.NewClientRegistry()
	stats := monitor.NewStats()
	info := monitor.NewProvider("test", clients, stats, func() (int, error) { return 0, nil }, true, true)
	slowlog := monitor.NewSlowLog(time.Hour)
	aof := &fakeAOF{}
	return NewDispatcher(st, wm, info, clients, slowlog, stats, aof), aof
}

func run(d *Dispatcher, sess *session.Session, fields ...string) string {
	reply, _ := d.Execute(sess, fields)
	return reply
}

// Scenario 1 from spec.md §8.
func TestScenarioScalarLifecycle(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()

	require.Equal(t, "PONG", run(d, sess, "PING"))
	require.Equal(t, "OK", run(d, sess, "SET", "foo", "bar"))
	require.Equal(t, "bar", run(d, sess, "GET", "foo"))
	require.Equal(t, "OK", run(d, sess, "DEL", "foo"))
	require.Equal(t, "ERR key not found", run(d, sess, "GET", "foo"))
}

// Scenario 2 from spec.md §8.
func TestScenarioHash(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()

	require.Equal(t, "1", run(d, sess, "HSET", "h", "f1", "v1"))
	require.Equal(t, "0", run(d, sess, "HSET", "h", "f1", "v2"))
	require.Equal(t, "v2", run(d, sess, "HGET", "h", "f1"))
	require.Equal(t, "1", run(d, sess, "HDEL", "h", "f1"))
	require.Equal(t, "nil", run(d, sess, "HGET", "h", "f1"))
}

// Scenario 3 from spec.md §8.
func TestScenarioList(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()

	require.Equal(t, "1", run(d, sess, "LPUSH", "L", "a"))
	require.Equal(t, "2", run(d, sess, "LPUSH", "L", "b"))
	require.Equal(t, "3", run(d, sess, "RPUSH", "L", "c"))
	require.Equal(t, "b,a,c", run(d, sess, "LRANGE", "L", "0", "2"))
	require.Equal(t, "b", run(d, sess, "LPOP", "L"))
	require.Equal(t, "c", run(d, sess, "RPOP", "L"))
	require.Equal(t, "a", run(d, sess, "LRANGE", "L", "0", "-1"))
}

// Scenario 4 from spec.md §8.
func TestScenarioExpiry(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()

	require.Equal(t, "OK", run(d, sess, "SET", "k", "v"))
	require.Equal(t, "1", run(d, sess, "EXPIRE", "k", "0"))
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, "ERR key not found", run(d, sess, "GET", "k"))
	require.Equal(t, "-2", run(d, sess, "TTL", "k"))
}

func TestTTLReportsRemainingSeconds(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()

	require.Equal(t, "OK", run(d, sess, "SET", "k", "v"))
	require.Equal(t, "-1", run(d, sess, "TTL", "k"))
	require.Equal(t, "1", run(d, sess, "EXPIRE", "k", "100"))
	require.Equal(t, "100", run(d, sess, "TTL", "k"))
	require.Equal(t, "1", run(d, sess, "PERSIST", "k"))
	require.Equal(t, "-1", run(d, sess, "TTL", "k"))
}

// Scenario 5 from spec.md §8.
func TestScenarioMultiExec(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()

	require.Equal(t, "OK", run(d, sess, "MULTI"))
	require.Equal(t, "QUEUED", run(d, sess, "SET", "tx", "v"))
	require.Equal(t, "OK", run(d, sess, "EXEC"))
	require.Equal(t, "v", run(d, sess, "GET", "tx"))

	require.Equal(t, "OK", run(d, sess, "MULTI"))
	require.Equal(t, "ERR MULTI calls cannot be nested", run(d, sess, "MULTI"))
}

// Scenario 6 from spec.md §8: WATCH dirtied by another session aborts EXEC.
func TestScenarioWatchAbort(t *testing.T) {
	d, _ := newTestDispatcher(t)
	a := session.New()
	b := session.New()

	require.Equal(t, "OK", run(d, a, "SET", "k", "x"))
	require.Equal(t, "OK", run(d, a, "WATCH", "k"))
	require.Equal(t, "OK", run(d, b, "SET", "k", "x"))

	require.Equal(t, "OK", run(d, a, "MULTI"))
	require.Equal(t, "QUEUED", run(d, a, "SET", "k", "y"))
	require.Equal(t, "nil", run(d, a, "EXEC"))
	require.Equal(t, "x", run(d, a, "GET", "k"))
}

func TestExecWithoutMultiIsError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()
	require.Equal(t, "ERR EXEC without MULTI", run(d, sess, "EXEC"))
	require.Equal(t, "ERR DISCARD without MULTI", run(d, sess, "DISCARD"))
}

func TestExecAbortsWholeBatchOnInnerError(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()

	run(d, sess, "SET", "n", "abc")
	run(d, sess, "MULTI")
	run(d, sess, "SET", "ok-key", "1")
	run(d, sess, "INCR", "n") // non-integer -> aborts whole batch
	reply := run(d, sess, "EXEC")
	require.Contains(t, reply, "ERR")
	require.Equal(t, "ERR key not found", run(d, sess, "GET", "ok-key"))
}

func TestUnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()
	require.Equal(t, "ERR unknown command 'BOGUS'", run(d, sess, "BOGUS", "x"))
}

func TestWrongArity(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()
	require.Equal(t, "ERR wrong number of arguments for 'SET'", run(d, sess, "SET", "onlykey"))
}

func TestSetCommandAppendsToAOF(t *testing.T) {
	d, aof := newTestDispatcher(t)
	sess := session.New()
	run(d, sess, "SET", "k", "v")
	require.Len(t, aof.lines, 1)
	require.Equal(t, []string{"SET", "k", "v"}, aof.lines[0])

	run(d, sess, "GET", "k")
	require.Len(t, aof.lines, 1) // reads never enter the log
}

func TestQuitClosesConnection(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()
	reply, closeConn := d.Execute(sess, []string{"QUIT"})
	require.Equal(t, "OK", reply)
	require.True(t, closeConn)
}

func TestSetMembershipAndInfoSection(t *testing.T) {
	d, _ := newTestDispatcher(t)
	sess := session.New()
	require.Equal(t, "1", run(d, sess, "SADD", "s", "m1"))
	require.Equal(t, "1", run(d, sess, "SISMEMBER", "s", "m1"))
	require.Equal(t, "0", run(d, sess, "SADD", "s", "m1"))

	info := run(d, sess, "INFO", "server")
	require.Contains(t, info, "version:test")
}
