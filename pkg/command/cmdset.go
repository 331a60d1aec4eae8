// Set command handlers (spec.md §4.2.4): membership is key presence under
// set:K:member, so every operation is a point op or a prefix scan.
package command

import (
	"strings"

	"github.com/cuemby/keyd/pkg/store"
)

// DoSAdd implements SADD(K,M): "1" if the member was newly added, "0" if
// it was already present (idempotent).
func DoSAdd(kv store.KV, key, member string) (string, error) {
	mk := store.SetMember(key, member)
	_, err := kv.Get(mk)
	if err == nil {
		return "0", nil
	}
	if err != store.ErrKeyNotFound {
		return "", err
	}
	if err := kv.Insert(mk, []byte{}); err != nil {
		return "", err
	}
	return "1", nil
}

// DoSRem implements SREM(K,M): "1" if the member was present and removed,
// else "0".
func DoSRem(kv store.KV, key, member string) (string, error) {
	mk := store.SetMember(key, member)
	_, err := kv.Get(mk)
	if err == store.ErrKeyNotFound {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	if err := kv.Remove(mk); err != nil {
		return "", err
	}
	return "1", nil
}

// DoSIsMember implements SISMEMBER(K,M): "1"/"0".
func DoSIsMember(kv store.KV, key, member string) (string, error) {
	_, err := kv.Get(store.SetMember(key, member))
	if err == store.ErrKeyNotFound {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	return "1", nil
}

// DoSMembers implements SMEMBERS(K): comma-joined members in scan order.
func DoSMembers(kv store.KV, key string) (string, error) {
	prefix := store.SetPrefix(key)
	var members []string
	err := kv.ScanPrefix(prefix, func(k, v []byte) error {
		members = append(members, string(k[len(prefix):]))
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(members, ","), nil
}
