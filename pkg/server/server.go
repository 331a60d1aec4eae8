// Package server implements the connection loop spec.md §1 and §5 treat
// as the external boundary: accept, frame, dispatch, reply, repeat.
// Grounded on warren/pkg/api/health.go's http.Server construction
// (Read/Write/IdleTimeout fields, graceful Shutdown on a cancelled
// context), adapted from an http.Server onto a raw net.Listener loop
// since spec.md's protocol is not HTTP: one goroutine per net.Conn
// instead of the net/http package's own connection handling.
package server

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"github.com/cuemby/keyd/pkg/command"
	"github.com/cuemby/keyd/pkg/log"
	"github.com/cuemby/keyd/pkg/metrics"
	"github.com/cuemby/keyd/pkg/monitor"
	"github.com/cuemby/keyd/pkg/protocol"
	"github.com/cuemby/keyd/pkg/session"
	"github.com/google/uuid"
)

// Server owns the listener and every open connection's goroutine.
type Server struct {
	addr       string
	dispatcher *command.Dispatcher
	clients    *monitor.ClientRegistry

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup
}

// New constructs a server that will listen on addr once Serve runs.
func New(addr string, dispatcher *command.Dispatcher, clients *monitor.ClientRegistry) *Server {
	return &Server{addr: addr, dispatcher: dispatcher, clients: clients}
}

// Serve listens on s.addr and accepts connections until ctx is
// cancelled, at which point it closes the listener, waits for every
// in-flight connection goroutine to drain, and returns. It never
// returns a non-nil error for the expected "listener closed by
// shutdown" case.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logger := log.WithComponent("server")
	logger.Info().Str("addr", s.addr).Msg("listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

// handleConn runs one connection's read-dispatch-reply loop
// sequentially to completion (spec.md §5: "reads within that task are
// serialized").
func (s *Server) handleConn(conn net.Conn) {
	id := uuid.NewString()
	addr := conn.RemoteAddr().String()
	logger := log.WithConn(id)

	s.clients.Add(id, addr)
	metrics.ConnectedClients.Inc()
	sess := session.New()
	defer func() {
		s.clients.Remove(id)
		metrics.ConnectedClients.Dec()
		s.dispatcher.ReleaseSession(sess.ID)
		_ = conn.Close()
	}()
	reader := bufio.NewReader(conn)

	for {
		tokens, err := protocol.ParseCommand(reader)
		if err != nil {
			if err != io.EOF {
				logger.Debug().Err(err).Msg("connection read failed")
			}
			return
		}
		if len(tokens) == 0 {
			continue
		}

		reply, closeConn := s.dispatcher.Execute(sess, tokens)
		if err := protocol.WriteReply(conn, reply); err != nil {
			logger.Debug().Err(err).Msg("connection write failed")
			return
		}
		if closeConn {
			return
		}
	}
}

// Addr returns the address the listener is actually bound to, once
// Serve has started (useful when addr is "host:0").
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}
