// List command handlers (spec.md §4.2.3). A list is bracketed by two meta
// keys (head, tail) holding plain big-endian sequence bounds, and one
// data key per element whose sequence is encoded so that byte order
// matches numeric order across zero (store.EncodeSeq). LRANGE resolves
// indices to sequences directly (head+i) rather than scanning, so it
// works unchanged against the transactional view's empty-scan
// restriction (spec.md §4.1).
package command

import (
	"strconv"
	"strings"

	"github.com/cuemby/keyd/pkg/store"
)

// DoLPush implements LPUSH(K,V): push on the head, return new length.
func DoLPush(kv store.KV, key, value string) (string, error) {
	return doPush(kv, key, value, true)
}

// DoRPush implements RPUSH(K,V): push on the tail, return new length.
func DoRPush(kv store.KV, key, value string) (string, error) {
	return doPush(kv, key, value, false)
}

func doPush(kv store.KV, key, value string, left bool) (string, error) {
	return withOptionalTx(kv, func(tx store.KV) (string, error) {
		head, tail, empty, err := readBounds(tx, key)
		if err != nil {
			return "", err
		}

		var seq int64
		switch {
		case empty:
			seq = 0
		case left:
			seq = head - 1
		default:
			seq = tail + 1
		}

		if err := tx.Insert(store.ListDataKey(key, seq), []byte(value)); err != nil {
			return "", err
		}

		switch {
		case empty:
			head, tail = seq, seq
			if err := tx.Insert(store.ListHeadKey(key), store.EncodeBound(head)); err != nil {
				return "", err
			}
			if err := tx.Insert(store.ListTailKey(key), store.EncodeBound(tail)); err != nil {
				return "", err
			}
		case left:
			head = seq
			if err := tx.Insert(store.ListHeadKey(key), store.EncodeBound(head)); err != nil {
				return "", err
			}
		default:
			tail = seq
			if err := tx.Insert(store.ListTailKey(key), store.EncodeBound(tail)); err != nil {
				return "", err
			}
		}

		return strconv.FormatInt(tail-head+1, 10), nil
	})
}

// DoLPop implements LPOP(K): pop the head element, or "nil" if empty.
func DoLPop(kv store.KV, key string) (string, error) {
	return doPop(kv, key, true)
}

// DoRPop implements RPOP(K): pop the tail element, or "nil" if empty.
func DoRPop(kv store.KV, key string) (string, error) {
	return doPop(kv, key, false)
}

func doPop(kv store.KV, key string, left bool) (string, error) {
	return withOptionalTx(kv, func(tx store.KV) (string, error) {
		head, tail, empty, err := readBounds(tx, key)
		if err != nil {
			return "", err
		}
		if empty {
			return "nil", nil
		}

		var seq int64
		if left {
			seq = head
		} else {
			seq = tail
		}

		dataKey := store.ListDataKey(key, seq)
		v, err := tx.Get(dataKey)
		if err != nil {
			return "", err
		}
		if err := tx.Remove(dataKey); err != nil {
			return "", err
		}

		if head == tail {
			// Last element: drop both meta keys atomically with it.
			if err := tx.Remove(store.ListHeadKey(key)); err != nil {
				return "", err
			}
			if err := tx.Remove(store.ListTailKey(key)); err != nil {
				return "", err
			}
		} else if left {
			if err := tx.Insert(store.ListHeadKey(key), store.EncodeBound(head+1)); err != nil {
				return "", err
			}
		} else {
			if err := tx.Insert(store.ListTailKey(key), store.EncodeBound(tail-1)); err != nil {
				return "", err
			}
		}

		return string(v), nil
	})
}

// DoLRange implements LRANGE(K, start, stop): comma-joined elements,
// indices normalized (negative counts from the tail) and clamped to
// [0, length-1]; normalized start > stop yields an empty reply.
func DoLRange(kv store.KV, key string, start, stop int64) (string, error) {
	head, tail, empty, err := readBounds(kv, key)
	if err != nil {
		return "", err
	}
	if empty {
		return "", nil
	}
	length := tail - head + 1

	start = normalizeIndex(start, length)
	stop = normalizeIndex(stop, length)
	if start < 0 {
		start = 0
	}
	if stop > length-1 {
		stop = length - 1
	}
	if start > stop {
		return "", nil
	}

	var values []string
	for seq := head + start; seq <= head+stop; seq++ {
		v, err := kv.Get(store.ListDataKey(key, seq))
		if err != nil {
			return "", err
		}
		values = append(values, string(v))
	}
	return strings.Join(values, ","), nil
}

func normalizeIndex(idx, length int64) int64 {
	if idx < 0 {
		idx += length
	}
	return idx
}

// readBounds reads the head/tail meta keys. empty is true iff the list
// has no elements (no meta keys present).
func readBounds(kv store.KV, key string) (head, tail int64, empty bool, err error) {
	headB, errH := kv.Get(store.ListHeadKey(key))
	if errH == store.ErrKeyNotFound {
		return 0, 0, true, nil
	}
	if errH != nil {
		return 0, 0, false, errH
	}
	tailB, errT := kv.Get(store.ListTailKey(key))
	if errT != nil {
		return 0, 0, false, errT
	}
	return store.DecodeBound(headB), store.DecodeBound(tailB), false, nil
}
