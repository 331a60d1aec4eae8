package monitor

import "sync"

// Stats accumulates the process-wide command counters the INFO stats
// section reports. A plain mutex-guarded struct, grounded on the
// teacher's HealthChecker (also a mutex + map updated by many callers,
// read by one reporting handler).
type Stats struct {
	mu                sync.Mutex
	commandsProcessed uint64
	writesProcessed   uint64
}

// NewStats constructs an empty counter set.
func NewStats() *Stats {
	return &Stats{}
}

// Record tallies one dispatched command.
func (s *Stats) Record(isWrite bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commandsProcessed++
	if isWrite {
		s.writesProcessed++
	}
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() (commandsProcessed, writesProcessed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commandsProcessed, s.writesProcessed
}
