// purgeLogicalKey is the pkg/ttl.Purger implementation: it knows every
// physical prefix family a logical key can occupy (spec.md §3) and
// removes all of them plus the expire: entry itself. It satisfies
// ttl.Purger structurally, so pkg/ttl never imports pkg/command.
package command

import "github.com/cuemby/keyd/pkg/store"

// PurgeLogicalKey exposes purgeLogicalKey as a ttl.Purger for the
// process-wide active sweeper (spec.md §4.3's optional background task),
// which runs outside the dispatcher and so needs its own purge handle.
func PurgeLogicalKey(kv store.KV, key string) error {
	return purgeLogicalKey(kv, key)
}

func purgeLogicalKey(kv store.KV, key string) error {
	// Collect against kv directly: on the direct view this is a real
	// prefix scan; on the transactional view (inside MULTI/EXEC)
	// ScanPrefix always yields nothing, so hash/list/set members simply
	// aren't discovered there (spec.md §4.1's documented restriction) -
	// the fixed-name keys (string, expire, list meta) are still purged.
	toDelete := [][]byte{
		store.StringKey(key),
		store.ExpireKey(key),
		store.ListHeadKey(key),
		store.ListTailKey(key),
	}

	collect := func(prefix []byte) error {
		return kv.ScanPrefix(prefix, func(k, v []byte) error {
			toDelete = append(toDelete, append([]byte(nil), k...))
			return nil
		})
	}
	if err := collect(store.HashPrefix(key)); err != nil {
		return err
	}
	if err := collect(store.ListDataPrefix(key)); err != nil {
		return err
	}
	if err := collect(store.SetPrefix(key)); err != nil {
		return err
	}

	remove := func(kv store.KV) error {
		for _, k := range toDelete {
			if err := kv.Remove(k); err != nil {
				return err
			}
		}
		return nil
	}
	if opener, ok := kv.(store.TxOpener); ok {
		return opener.OpenTx(remove)
	}
	return remove(kv)
}
