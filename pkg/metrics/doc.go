// Package metrics exposes keyd's Prometheus counters, gauges and
// histograms via promhttp.Handler, trimmed from the teacher's cluster
// metrics catalog down to the single-node command surface: verb
// throughput and outcome, connected clients, and snapshot duration.
// Metrics registration happens once at package init, same as the
// teacher; the Timer helper is kept verbatim for the same reason the
// teacher uses it (timing a snapshot or a slow command without
// threading a time.Time through every call site).
package metrics
