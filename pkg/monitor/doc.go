// Package monitor implements the client-visible observability surface
// spec.md §1 calls out as "client-visible monitoring": INFO, CLIENT
// LIST and SLOWLOG. None of it is in the core five components spec.md
// names, but SPEC_FULL.md's domain-stack expansion gives it a home
// because the command surface in spec.md §6 lists all three verbs.
// The client registry and slowlog ring buffer are grounded on the
// teacher's HealthChecker shape (pkg/metrics/health.go in the
// retrieval pack): a small mutex-guarded map updated by the owning
// component, read on demand by a reporting command.
package monitor
