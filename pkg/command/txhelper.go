package command

import "github.com/cuemby/keyd/pkg/store"

// withOptionalTx runs fn against kv directly if kv has no TxOpener
// capability (it is already inside one transaction - the MULTI/EXEC
// case), or opens an inner transaction first (the direct, non-MULTI
// case). Either way fn's logical result (reply, error) is returned
// uninterpreted: fn never returns a non-nil error to the transaction
// itself, since a reported command error (overflow, wrong type, ...)
// must not roll back writes already captured in reply/err - there are
// none, since fn only mutates after every check has passed. A non-nil
// error from OpenTx itself means the underlying store failed to commit,
// which is reported the same way a logical error is.
func withOptionalTx(kv store.KV, fn func(store.KV) (string, error)) (string, error) {
	opener, ok := kv.(store.TxOpener)
	if !ok {
		return fn(kv)
	}

	var reply string
	var logicalErr error
	if txErr := opener.OpenTx(func(inner store.KV) error {
		reply, logicalErr = fn(inner)
		return nil
	}); txErr != nil {
		return "", txErr
	}
	return reply, logicalErr
}
