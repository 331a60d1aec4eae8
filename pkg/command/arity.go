package command

import "fmt"

// arityBounds returns the inclusive [min,max] argument count for verb
// (max -1 means unbounded), and whether verb is known at all. The
// canonical error message format is spec.md §4.6's
// "wrong number of arguments for '<VERB>'".
func arityBounds(verb string) (min, max int, known bool) {
	switch verb {
	case "PING", "QUIT", "MULTI", "EXEC", "DISCARD", "UNWATCH", "SLOWLOG":
		return 0, 0, true
	case "GET", "DEL", "INCR", "DECR", "HKEYS", "HVALS", "HGETALL", "LPOP", "RPOP", "SMEMBERS", "TTL", "PERSIST":
		return 1, 1, true
	case "SET", "HGET", "HDEL", "LPUSH", "RPUSH", "SADD", "SREM", "SISMEMBER", "EXPIRE":
		return 2, 2, true
	case "HSET", "LRANGE":
		return 3, 3, true
	case "WATCH":
		return 1, -1, true
	case "INFO":
		return 0, 1, true
	case "CLIENT":
		return 1, 1, true
	default:
		return 0, 0, false
	}
}

func checkArity(verb string, args []string) error {
	min, max, known := arityBounds(verb)
	if !known {
		return fmt.Errorf("unknown command '%s'", verb)
	}
	if len(args) < min || (max >= 0 && len(args) > max) {
		return fmt.Errorf("wrong number of arguments for '%s'", verb)
	}
	return nil
}

// isWriteVerb reports whether verb mutates the store, per spec.md §4.6's
// write-flag classification. The dispatcher does not call it: execVerb
// returns the write flag for each verb itself, and that flag gates AOF
// logging, watch notification and the INFO write counter.
func isWriteVerb(verb string) bool {
	switch verb {
	case "SET", "DEL", "INCR", "DECR", "HSET", "HDEL", "LPUSH", "RPUSH", "LPOP", "RPOP", "SADD", "SREM", "EXPIRE", "PERSIST":
		return true
	default:
		return false
	}
}

// exemptFromLazyPurge is the "pure control/txn commands" spec.md §4.3
// excludes from the first-argument lazy expiry check.
func exemptFromLazyPurge(verb string) bool {
	switch verb {
	case "PING", "QUIT", "MULTI", "EXEC", "DISCARD", "UNWATCH", "INFO", "CLIENT", "SLOWLOG":
		return true
	default:
		return false
	}
}
