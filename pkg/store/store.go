package store

import "errors"

// ErrKeyNotFound is returned by Get when the physical key has no value.
var ErrKeyNotFound = errors.New("key not found")

// ScanFunc is invoked once per (key, value) pair found by ScanPrefix, in
// byte-lexicographic key order. Returning an error aborts the scan and
// propagates out of ScanPrefix.
type ScanFunc func(key, value []byte) error

// KV is the capability every command handler in pkg/command is written
// against. It is intentionally minimal: get/insert/remove a physical key,
// and scan a prefix family. Two realizations exist - DirectKV (outside
// MULTI/EXEC, one bbolt transaction per call) and TxKV (inside one
// store-level transaction) - so the same handler runs correctly in both.
type KV interface {
	// Get returns the value stored at key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)

	// Insert creates or overwrites key with value.
	Insert(key, value []byte) error

	// Remove deletes key. It is not an error for key to be absent.
	Remove(key []byte) error

	// ScanPrefix invokes fn for every physical key with the given prefix,
	// in byte order. The TxKV realization always yields zero results (see
	// package doc): only DirectKV performs real prefix scans.
	ScanPrefix(prefix []byte, fn ScanFunc) error
}

// TxOpener is an optional capability: open an inner store-level
// transaction and run fn against a KV backed by it. Only DirectKV
// implements this; TxKV does not, since any multi-key group of writes it
// performs already runs inside the outer MULTI/EXEC transaction.
type TxOpener interface {
	OpenTx(fn func(KV) error) error
}

// Notifier is an optional capability: tell the watch manager that a
// logical key changed. Only DirectKV implements this. The dispatcher
// calls it with the logical key (not the physical key) right after a
// successful direct-path mutation; inside MULTI/EXEC the KV is a TxKV,
// which carries no Notifier, so the dispatcher notifies once per
// queued write directly through the watch manager instead.
type Notifier interface {
	NotifyKeyChange(logicalKey string)
}
