// Hash command handlers (spec.md §4.2.2): each field lives at its own
// physical key hash:K:field, so field presence is a plain point op and
// HKEYS/HVALS/HGETALL are prefix scans over hash:K:.
package command

import (
	"strings"

	"github.com/cuemby/keyd/pkg/store"
)

// DoHSet implements HSET(K,F,V): "1" on create, "0" on overwrite.
func DoHSet(kv store.KV, key, field, value string) (string, error) {
	fk := store.HashField(key, field)
	_, err := kv.Get(fk)
	existed := err == nil
	if err != nil && err != store.ErrKeyNotFound {
		return "", err
	}
	if err := kv.Insert(fk, []byte(value)); err != nil {
		return "", err
	}
	if existed {
		return "0", nil
	}
	return "1", nil
}

// DoHGet implements HGET(K,F): the field's value, or the literal "nil".
func DoHGet(kv store.KV, key, field string) (string, error) {
	v, err := kv.Get(store.HashField(key, field))
	if err == store.ErrKeyNotFound {
		return "nil", nil
	}
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// DoHDel implements HDEL(K,F): "1" if the field existed, else "0".
func DoHDel(kv store.KV, key, field string) (string, error) {
	fk := store.HashField(key, field)
	_, err := kv.Get(fk)
	if err == store.ErrKeyNotFound {
		return "0", nil
	}
	if err != nil {
		return "", err
	}
	if err := kv.Remove(fk); err != nil {
		return "", err
	}
	return "1", nil
}

// DoHKeys implements HKEYS(K): comma-joined field names in scan order.
func DoHKeys(kv store.KV, key string) (string, error) {
	prefix := store.HashPrefix(key)
	var fields []string
	err := kv.ScanPrefix(prefix, func(k, v []byte) error {
		fields = append(fields, string(k[len(prefix):]))
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(fields, ","), nil
}

// DoHVals implements HVALS(K): comma-joined field values in scan order.
func DoHVals(kv store.KV, key string) (string, error) {
	prefix := store.HashPrefix(key)
	var vals []string
	err := kv.ScanPrefix(prefix, func(k, v []byte) error {
		vals = append(vals, string(v))
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(vals, ","), nil
}

// DoHGetAll implements HGETALL(K): field,value pairs interleaved in scan
// order, comma-joined.
func DoHGetAll(kv store.KV, key string) (string, error) {
	prefix := store.HashPrefix(key)
	var out []string
	err := kv.ScanPrefix(prefix, func(k, v []byte) error {
		out = append(out, string(k[len(prefix):]), string(v))
		return nil
	})
	if err != nil {
		return "", err
	}
	return strings.Join(out, ","), nil
}
