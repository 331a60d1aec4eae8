// Package session implements the per-connection transaction state
// machine of spec.md §4.4: MULTI queues commands until EXEC or DISCARD,
// and WATCH arms optimistic invalidation through pkg/watch. The Session/
// queue split is grounded on the GoRedis Transaction/TransactionManager
// shape in the retrieval pack, adapted to spec.md's explicit state table.
package session

import "github.com/google/uuid"

// Session holds the per-connection state for one client. It exists for
// the lifetime of one connection; its watches are released on disconnect
// (spec.md §3 "Lifecycle").
type Session struct {
	ID      string
	InMulti bool
	Queue   [][]string
	Watched map[string]struct{}
}

// New creates a session with a fresh, process-unique id.
func New() *Session {
	return &Session{
		ID:      uuid.NewString(),
		Watched: make(map[string]struct{}),
	}
}

// Begin starts MULTI: subsequent commands queue instead of executing
// directly. Nesting is rejected by the caller (pkg/command) before Begin
// is reached; Begin itself just clears any stale queue.
func (s *Session) Begin() {
	s.InMulti = true
	s.Queue = nil
}

// Enqueue appends one token vector to the pending transaction.
func (s *Session) Enqueue(tokens []string) {
	s.Queue = append(s.Queue, tokens)
}

// Discard ends MULTI without executing the queue.
func (s *Session) Discard() {
	s.InMulti = false
	s.Queue = nil
}

// TakeQueue ends MULTI and returns the queued commands for EXEC to run.
func (s *Session) TakeQueue() [][]string {
	queue := s.Queue
	s.InMulti = false
	s.Queue = nil
	return queue
}

// Watching returns the set of keys this session currently watches, for
// use against pkg/watch.Manager.
func (s *Session) Watching() []string {
	keys := make([]string, 0, len(s.Watched))
	for k := range s.Watched {
		keys = append(keys, k)
	}
	return keys
}

// AddWatched records that this session now watches the given keys.
func (s *Session) AddWatched(keys []string) {
	for _, k := range keys {
		s.Watched[k] = struct{}{}
	}
}

// ClearWatched drops every watched key, used by UNWATCH and after EXEC.
func (s *Session) ClearWatched() {
	s.Watched = make(map[string]struct{})
}
