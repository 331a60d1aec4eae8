// Package persistence implements the two durability mechanisms spec.md
// §4.7 describes: an append-only command log replayed on startup, and a
// periodic full snapshot written via temp-file-then-atomic-rename. It is
// grounded on the background rewrite/save goroutines in
// other_examples/.../GoRedis__internal-handler-aof_handlers.go (log and
// snapshot triggered off the live command processor, failures logged
// rather than propagated) and on warren/pkg/storage/boltdb.go's
// fsync-before-ack discipline, carried here to fsync-on-append and
// fsync-before-rename.
package persistence
