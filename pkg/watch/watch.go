// Package watch implements the process-wide optimistic-WATCH index
// (spec.md §4.5): a bidirectional map between watched keys and the
// sessions watching them, with one-shot invalidation on write. The shape
// is grounded on warren/pkg/events's broker-behind-one-mutex design,
// narrowed from a general pub/sub bus to the single key->sessions
// relationship WATCH/EXEC needs.
package watch

import "sync"

// Manager is safe for concurrent use by many connection goroutines.
type Manager struct {
	mu             sync.Mutex
	watchedKeys    map[string]map[string]struct{} // key -> watching session ids
	sessionWatches map[string]map[string]struct{} // session id -> watched keys
}

// NewManager constructs an empty watch manager.
func NewManager() *Manager {
	return &Manager{
		watchedKeys:    make(map[string]map[string]struct{}),
		sessionWatches: make(map[string]map[string]struct{}),
	}
}

// Watch registers sid as watching every key in keys.
func (m *Manager) Watch(sid string, keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sw, ok := m.sessionWatches[sid]
	if !ok {
		sw = make(map[string]struct{})
		m.sessionWatches[sid] = sw
	}
	for _, k := range keys {
		sw[k] = struct{}{}

		wk, ok := m.watchedKeys[k]
		if !ok {
			wk = make(map[string]struct{})
			m.watchedKeys[k] = wk
		}
		wk[sid] = struct{}{}
	}
}

// Unwatch releases every key sid is watching, used by UNWATCH and by a
// successful or discarded EXEC.
func (m *Manager) Unwatch(sid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unwatchLocked(sid)
}

func (m *Manager) unwatchLocked(sid string) {
	for k := range m.sessionWatches[sid] {
		if watchers, ok := m.watchedKeys[k]; ok {
			delete(watchers, sid)
			if len(watchers) == 0 {
				delete(m.watchedKeys, k)
			}
		}
	}
	delete(m.sessionWatches, sid)
}

// ClearSession releases sid's watches on disconnect. Equivalent to
// Unwatch; kept as a distinct name for call-site clarity.
func (m *Manager) ClearSession(sid string) {
	m.Unwatch(sid)
}

// NotifyKeyChange is a one-shot invalidation: it clears K's watcher set.
// It returns nothing; the sessions that were watching K are not reported
// to the caller, and find out through IsDirty at their next EXEC.
// Only the forward index (key -> watchers) is cleared here; a
// session's own watch set (sessionWatches[sid]) is left untouched on
// purpose, so that IsDirty can detect "sid used to be a watcher of k but
// no longer is" by comparing the two maps (spec.md's is_dirty
// definition). The dangling entry is cleaned up wholesale when the
// session next calls Unwatch/ClearSession.
func (m *Manager) NotifyKeyChange(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watchedKeys, key)
}

// IsDirty reports whether any key sid is watching has been invalidated:
// true iff some key in sid's watch set no longer lists sid as a watcher.
func (m *Manager) IsDirty(sid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.sessionWatches[sid] {
		watchers, ok := m.watchedKeys[k]
		if !ok {
			return true
		}
		if _, stillWatching := watchers[sid]; !stillWatching {
			return true
		}
	}
	return false
}
