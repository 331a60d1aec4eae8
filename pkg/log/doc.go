// Package log provides structured logging for keyd using zerolog.
//
// Init configures a package-global logger from the CLI's --log-level and
// --log-json flags (console output by default, JSON with --log-json).
// Callers that want to tag their lines use WithComponent for a subsystem
// name ("dispatcher", "snapshot", "ttl-sweeper", ...) or WithConn for a
// per-connection logger keyed by the connection id pkg/server assigns on
// accept.
package log
