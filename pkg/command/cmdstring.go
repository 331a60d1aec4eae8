// Scalar/integer command handlers (spec.md §4.2.1), grounded on the same
// read-modify-write-under-inner-transaction shape as cmdlist.go's push/pop:
// when kv is the direct view INCR/DECR open their own inner transaction;
// when kv is already the transactional view (MULTI/EXEC) they just use it.
package command

import (
	"strconv"

	"github.com/cuemby/keyd/pkg/store"
)

// DoSet implements SET(K,V): overwrite string:K unconditionally.
func DoSet(kv store.KV, key, value string) (string, error) {
	if err := kv.Insert(store.StringKey(key), []byte(value)); err != nil {
		return "", err
	}
	return "OK", nil
}

// DoGet implements GET(K): the value, or ErrNotFound.
func DoGet(kv store.KV, key string) (string, error) {
	v, err := kv.Get(store.StringKey(key))
	if err == store.ErrKeyNotFound {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// DoDel implements DEL(K): reply "OK" on removal, "not found" if absent.
// Scoped to the scalar family per its placement in spec.md §4.2.1.
func DoDel(kv store.KV, key string) (string, error) {
	_, err := kv.Get(store.StringKey(key))
	if err == store.ErrKeyNotFound {
		return "not found", nil
	}
	if err != nil {
		return "", err
	}
	if err := kv.Remove(store.StringKey(key)); err != nil {
		return "", err
	}
	return "OK", nil
}

// DoIncr implements INCR(K): string:K += 1.
func DoIncr(kv store.KV, key string) (string, error) {
	return incrBy(kv, key, 1)
}

// DoDecr implements DECR(K): string:K -= 1.
func DoDecr(kv store.KV, key string) (string, error) {
	return incrBy(kv, key, -1)
}

func incrBy(kv store.KV, key string, delta int64) (string, error) {
	return withOptionalTx(kv, func(tx store.KV) (string, error) {
		cur, err := readInt(tx, key)
		if err != nil {
			return "", err
		}
		next, ok := addOverflow(cur, delta)
		if !ok {
			return "", ErrOverflow
		}
		encoded := strconv.FormatInt(next, 10)
		if err := tx.Insert(store.StringKey(key), []byte(encoded)); err != nil {
			return "", err
		}
		return encoded, nil
	})
}

// readInt parses string:K as a signed 64-bit decimal, treating absence as
// zero (spec.md §3 "absence is treated as zero").
func readInt(kv store.KV, key string) (int64, error) {
	v, err := kv.Get(store.StringKey(key))
	if err == store.ErrKeyNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(v), 10, 64)
	if err != nil {
		return 0, ErrNotInteger
	}
	return n, nil
}

func addOverflow(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}
