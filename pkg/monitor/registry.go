package monitor

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// ClientInfo describes one connected client, the CLIENT LIST row shape.
type ClientInfo struct {
	ID          string
	Addr        string
	ConnectedAt time.Time
}

// ClientRegistry tracks currently connected clients, updated by
// pkg/server on accept/close.
type ClientRegistry struct {
	mu      sync.Mutex
	clients map[string]ClientInfo
}

// NewClientRegistry constructs an empty registry.
func NewClientRegistry() *ClientRegistry {
	return &ClientRegistry{clients: make(map[string]ClientInfo)}
}

// Add registers a newly accepted connection.
func (r *ClientRegistry) Add(id, addr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[id] = ClientInfo{ID: id, Addr: addr, ConnectedAt: time.Now()}
}

// Remove drops a client on disconnect.
func (r *ClientRegistry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, id)
}

// Count returns the number of currently connected clients.
func (r *ClientRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// List returns every connected client, ordered by id for a stable reply.
func (r *ClientRegistry) List() []ClientInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ClientInfo, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Lines renders CLIENT LIST's reply rows, one "id=.. addr=.. age=.."
// entry per client, comma-joined by the caller per spec.md §6.
func (r *ClientRegistry) Lines() []string {
	clients := r.List()
	lines := make([]string, 0, len(clients))
	for _, c := range clients {
		age := time.Since(c.ConnectedAt).Round(time.Second)
		lines = append(lines, fmt.Sprintf("id=%s addr=%s age=%s", c.ID, c.Addr, age))
	}
	return lines
}
