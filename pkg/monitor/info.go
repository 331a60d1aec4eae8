package monitor

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/cuemby/keyd/pkg/metrics"
)

// Provider answers INFO [section] queries. Its dbSize callback is
// supplied by cmd/keyd's wiring (store.BoltStore.Each, counting keys)
// so this package never has to import pkg/store.
type Provider struct {
	startTime  time.Time
	version    string
	clients    *ClientRegistry
	stats      *Stats
	dbSize     func() (int, error)
	aofEnabled bool
	rdbEnabled bool
}

// NewProvider constructs an INFO provider.
func NewProvider(version string, clients *ClientRegistry, stats *Stats, dbSize func() (int, error), aofEnabled, rdbEnabled bool) *Provider {
	return &Provider{
		startTime:  time.Now(),
		version:    version,
		clients:    clients,
		stats:      stats,
		dbSize:     dbSize,
		aofEnabled: aofEnabled,
		rdbEnabled: rdbEnabled,
	}
}

// Info renders the requested section (case-insensitive), or every
// section if section is empty. Unknown sections are a reported error.
func (p *Provider) Info(section string) (string, error) {
	section = strings.ToLower(strings.TrimSpace(section))

	sections := map[string]func() []string{
		"server":      p.serverLines,
		"clients":     p.clientsLines,
		"memory":      p.memoryLines,
		"persistence": p.persistenceLines,
		"stats":       p.statsLines,
		"keyspace":    p.keyspaceLines,
	}

	if section == "" {
		var all []string
		for _, name := range []string{"server", "clients", "memory", "persistence", "stats", "keyspace"} {
			all = append(all, sections[name]()...)
		}
		return strings.Join(all, ","), nil
	}

	fn, ok := sections[section]
	if !ok {
		return "", fmt.Errorf("unknown INFO section '%s'", section)
	}
	return strings.Join(fn(), ","), nil
}

func (p *Provider) serverLines() []string {
	return []string{
		fmt.Sprintf("version:%s", p.version),
		fmt.Sprintf("uptime_seconds:%d", int64(time.Since(p.startTime).Seconds())),
		fmt.Sprintf("go_version:%s", runtime.Version()),
	}
}

func (p *Provider) clientsLines() []string {
	return []string{fmt.Sprintf("connected_clients:%d", p.clients.Count())}
}

func (p *Provider) memoryLines() []string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return []string{
		fmt.Sprintf("used_memory_bytes:%d", m.Alloc),
		fmt.Sprintf("sys_memory_bytes:%d", m.Sys),
	}
}

func (p *Provider) persistenceLines() []string {
	return []string{
		fmt.Sprintf("aof_enabled:%t", p.aofEnabled),
		fmt.Sprintf("rdb_enabled:%t", p.rdbEnabled),
	}
}

func (p *Provider) statsLines() []string {
	processed, writes := p.stats.Snapshot()
	return []string{
		fmt.Sprintf("total_commands_processed:%d", processed),
		fmt.Sprintf("total_writes_processed:%d", writes),
	}
}

func (p *Provider) keyspaceLines() []string {
	n, err := p.dbSize()
	if err != nil {
		return []string{"db0:keys=unknown"}
	}
	metrics.KeyspaceSize.Set(float64(n))
	return []string{fmt.Sprintf("db0:keys=%d", n)}
}
