package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/cuemby/keyd/pkg/command"
	"github.com/cuemby/keyd/pkg/monitor"
	"github.com/cuemby/keyd/pkg/store"
	"github.com/cuemby/keyd/pkg/watch"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, context.CancelFunc) {
	t.Helper()
	st, err := store.Open(t.TempDir() + "/keyd.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	wm := watch.NewManager()
	clients := monitor.NewClientRegistry()
	stats := monitor.NewStats()
	info := monitor.NewProvider("test", clients, stats, func() (int, error) { return 0, nil }, false, false)
	slowlog := monitor.NewSlowLog(time.Hour)
	disp := command.NewDispatcher(st, wm, info, clients, slowlog, stats, nil)

	srv := New("127.0.0.1:0", disp, clients)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)

	t.Cleanup(func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(time.Second):
			t.Fatal("server did not shut down in time")
		}
	})
	return srv, cancel
}

func TestServerRoundTrip(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("SET foo bar\r\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "+OK\r\n", line)

	_, err = conn.Write([]byte("GET foo\r\n"))
	require.NoError(t, err)
	line, err = r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "+bar\r\n", line)
}

func TestServerClientRegistryTracksConnections(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(srv.clients.Lines()) == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return len(srv.clients.Lines()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestServerQuitClosesConnection(t *testing.T) {
	srv, _ := newTestServer(t)

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("QUIT\r\n"))
	require.NoError(t, err)

	r := bufio.NewReader(conn)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "+OK\r\n", line)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = r.Read(buf)
	require.Error(t, err) // connection closed by the server after QUIT
}
