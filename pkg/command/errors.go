package command

import "errors"

// Sentinel errors for the per-operation failures spec.md §7 enumerates.
// The dispatcher turns any non-nil error into a reply line prefixed
// "ERR ", never closes the connection over it (spec.md §7 "User-visible
// behavior").
var (
	ErrNotFound     = errors.New("key not found")
	ErrNotInteger   = errors.New("value is not an integer or out of range")
	ErrOverflow     = errors.New("increment or decrement would overflow")
	ErrBadRange     = errors.New("start/stop must be integers")
	ErrWrongType    = errors.New("operation against a key holding the wrong kind of value")
	ErrQueued       = errors.New("QUEUED")
	ErrNestedMulti  = errors.New("MULTI calls cannot be nested")
	ErrExecNoMulti  = errors.New("EXEC without MULTI")
	ErrDiscNoMulti  = errors.New("DISCARD without MULTI")
	ErrUnknownVerb  = errors.New("unknown command")
	ErrTxnAborted   = errors.New("transaction aborted")
	ErrEmptyCommand = errors.New("empty command")
)
