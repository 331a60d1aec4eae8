// Package command is the command execution spine spec.md §4.6 describes:
// verb normalization, arity checking, lazy-expiry purge, routing to the
// right type module, and choosing direct vs transactional execution for
// MULTI/EXEC. It is grounded on the GoRedis
// internal/handler/transaction.go dispatch loop in the retrieval pack
// (TransactionManager.Execute's queue-vs-direct branch), adapted onto
// the store.KV capability interface instead of a concrete map store.
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/keyd/pkg/log"
	"github.com/cuemby/keyd/pkg/metrics"
	"github.com/cuemby/keyd/pkg/monitor"
	"github.com/cuemby/keyd/pkg/session"
	"github.com/cuemby/keyd/pkg/store"
	"github.com/cuemby/keyd/pkg/ttl"
	"github.com/cuemby/keyd/pkg/watch"
)

// AOFAppender persists one dispatched write command. Defined here (the
// consumer) rather than imported from pkg/persistence, so the two
// packages never depend on each other: pkg/persistence's *Log satisfies
// this interface structurally.
type AOFAppender interface {
	Append(tokens []string) error
}

// Dispatcher owns every collaborator a request needs: the store, the
// watch manager, and the monitoring/metrics surface spec.md treats as
// external collaborators but SPEC_FULL.md wires through the same verb
// routing.
type Dispatcher struct {
	store    *store.BoltStore
	watchMgr *watch.Manager
	info     *monitor.Provider
	clients  *monitor.ClientRegistry
	slowlog  *monitor.SlowLog
	stats    *monitor.Stats
	aof      AOFAppender
}

// NewDispatcher wires one dispatcher. aof may be nil (persistence
// disabled via config).
func NewDispatcher(st *store.BoltStore, wm *watch.Manager, info *monitor.Provider, clients *monitor.ClientRegistry, slowlog *monitor.SlowLog, stats *monitor.Stats, aof AOFAppender) *Dispatcher {
	return &Dispatcher{
		store:    st,
		watchMgr: wm,
		info:     info,
		clients:  clients,
		slowlog:  slowlog,
		stats:    stats,
		aof:      aof,
	}
}

// Execute runs one client request to completion and returns its reply
// line plus whether the connection should now close (QUIT).
func (d *Dispatcher) Execute(sess *session.Session, tokens []string) (reply string, closeConn bool) {
	if len(tokens) == 0 {
		return "ERR " + ErrEmptyCommand.Error(), false
	}
	verb := strings.ToUpper(tokens[0])
	args := tokens[1:]

	timer := metrics.NewTimer()
	outcome := "ok"
	defer func() {
		dur := timer.Duration()
		metrics.CommandsTotal.WithLabelValues(verb, outcome).Inc()
		metrics.CommandDuration.WithLabelValues(verb).Observe(dur.Seconds())
		d.slowlog.Record(tokens, dur)
	}()

	switch verb {
	case "MULTI":
		if sess.InMulti {
			outcome = "error"
			return "ERR " + ErrNestedMulti.Error(), false
		}
		sess.Begin()
		return "OK", false

	case "DISCARD":
		if !sess.InMulti {
			outcome = "error"
			return "ERR " + ErrDiscNoMulti.Error(), false
		}
		sess.Discard()
		d.watchMgr.Unwatch(sess.ID)
		sess.ClearWatched()
		return "OK", false

	case "EXEC":
		if !sess.InMulti {
			outcome = "error"
			return "ERR " + ErrExecNoMulti.Error(), false
		}
		reply = d.execTransaction(sess)
		if strings.HasPrefix(reply, "ERR ") {
			outcome = "error"
		}
		return reply, false
	}

	if sess.InMulti {
		if err := checkArity(verb, args); err != nil {
			outcome = "error"
			return "ERR " + err.Error(), false
		}
		sess.Enqueue(tokens)
		return "QUEUED", false
	}

	if err := checkArity(verb, args); err != nil {
		outcome = "error"
		return "ERR " + err.Error(), false
	}

	kv := d.store.Direct(d.watchMgr.NotifyKeyChange)
	d.purgeIfNeeded(kv, verb, args)

	reply, isWrite, err := d.execVerb(kv, sess, verb, args)
	if err != nil {
		outcome = "error"
		reply = "ERR " + err.Error()
	}

	d.stats.Record(isWrite && err == nil)
	if err == nil && isWrite {
		kv.NotifyKeyChange(args[0])
		d.appendAOF(tokens)
	}
	if verb == "QUIT" && err == nil {
		closeConn = true
	}
	return reply, closeConn
}

// ReleaseSession drops every watch a disconnecting session held (spec.md
// §5 "When a connection closes ... the server releases the session's
// watches"). Safe to call even if the session watched nothing.
func (d *Dispatcher) ReleaseSession(sid string) {
	d.watchMgr.Unwatch(sid)
}

// purgeIfNeeded applies spec.md §4.3's remove_if_expired ahead of every
// keyed command other than the exempt pure control/txn verbs.
func (d *Dispatcher) purgeIfNeeded(kv store.KV, verb string, args []string) {
	if exemptFromLazyPurge(verb) {
		return
	}
	if verb == "WATCH" {
		for _, k := range args {
			ttl.RemoveIfExpired(kv, k, purgeLogicalKey)
		}
		return
	}
	if len(args) == 0 {
		return
	}
	ttl.RemoveIfExpired(kv, args[0], purgeLogicalKey)
}

func (d *Dispatcher) appendAOF(tokens []string) {
	if d.aof == nil {
		return
	}
	if err := d.aof.Append(tokens); err != nil {
		log.WithComponent("dispatcher").Warn().Err(err).Strs("tokens", tokens).Msg("append-log write failed")
		metrics.AOFWritesTotal.WithLabelValues("error").Inc()
		return
	}
	metrics.AOFWritesTotal.WithLabelValues("ok").Inc()
}

type queuedResult struct {
	tokens  []string
	reply   string
	isWrite bool
}

// execTransaction implements EXEC (spec.md §4.4): if the session is
// dirty, abort without running anything; otherwise run every queued
// command against one store-level transaction, aborting the whole
// batch if any queued command's own reply is an error.
func (d *Dispatcher) execTransaction(sess *session.Session) string {
	dirty := d.watchMgr.IsDirty(sess.ID)
	queue := sess.TakeQueue()
	d.watchMgr.Unwatch(sess.ID)
	sess.ClearWatched()

	if dirty {
		return "nil"
	}

	var results []queuedResult
	var abortReply string

	txErr := d.store.WithTx(func(tx store.KV) error {
		for _, qtokens := range queue {
			if len(qtokens) == 0 {
				continue
			}
			verb := strings.ToUpper(qtokens[0])
			args := qtokens[1:]

			if err := checkArity(verb, args); err != nil {
				abortReply = "ERR " + err.Error()
				return errors.New(abortReply)
			}

			d.purgeIfNeeded(tx, verb, args)
			reply, isWrite, err := d.execVerb(tx, sess, verb, args)
			if err != nil {
				abortReply = "ERR " + err.Error()
				return errors.New(abortReply)
			}
			results = append(results, queuedResult{qtokens, reply, isWrite})
		}
		return nil
	})

	if txErr != nil {
		return abortReply
	}

	replies := make([]string, 0, len(results))
	for _, r := range results {
		replies = append(replies, r.reply)
		d.stats.Record(r.isWrite)
		if r.isWrite {
			d.watchMgr.NotifyKeyChange(r.tokens[1])
			d.appendAOF(r.tokens)
		}
	}
	return strings.Join(replies, ",")
}

// execVerb routes one already arity-checked, already lazy-purged
// command to its type module. It runs unchanged against either the
// direct view or a transactional view, per spec.md §4.1.
func (d *Dispatcher) execVerb(kv store.KV, sess *session.Session, verb string, args []string) (string, bool, error) {
	switch verb {
	case "PING":
		return "PONG", false, nil
	case "QUIT":
		return "OK", false, nil

	case "WATCH":
		d.watchMgr.Watch(sess.ID, args)
		sess.AddWatched(args)
		return "OK", false, nil
	case "UNWATCH":
		d.watchMgr.Unwatch(sess.ID)
		sess.ClearWatched()
		return "OK", false, nil

	case "SET":
		reply, err := DoSet(kv, args[0], args[1])
		return reply, true, err
	case "GET":
		reply, err := DoGet(kv, args[0])
		return reply, false, err
	case "DEL":
		reply, err := DoDel(kv, args[0])
		return reply, true, err
	case "INCR":
		reply, err := DoIncr(kv, args[0])
		return reply, true, err
	case "DECR":
		reply, err := DoDecr(kv, args[0])
		return reply, true, err

	case "HSET":
		reply, err := DoHSet(kv, args[0], args[1], args[2])
		return reply, true, err
	case "HGET":
		reply, err := DoHGet(kv, args[0], args[1])
		return reply, false, err
	case "HDEL":
		reply, err := DoHDel(kv, args[0], args[1])
		return reply, true, err
	case "HKEYS":
		reply, err := DoHKeys(kv, args[0])
		return reply, false, err
	case "HVALS":
		reply, err := DoHVals(kv, args[0])
		return reply, false, err
	case "HGETALL":
		reply, err := DoHGetAll(kv, args[0])
		return reply, false, err

	case "LPUSH":
		reply, err := DoLPush(kv, args[0], args[1])
		return reply, true, err
	case "RPUSH":
		reply, err := DoRPush(kv, args[0], args[1])
		return reply, true, err
	case "LPOP":
		reply, err := DoLPop(kv, args[0])
		return reply, true, err
	case "RPOP":
		reply, err := DoRPop(kv, args[0])
		return reply, true, err
	case "LRANGE":
		start, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return "", false, ErrBadRange
		}
		stop, err := strconv.ParseInt(args[2], 10, 64)
		if err != nil {
			return "", false, ErrBadRange
		}
		reply, err := DoLRange(kv, args[0], start, stop)
		return reply, false, err

	case "SADD":
		reply, err := DoSAdd(kv, args[0], args[1])
		return reply, true, err
	case "SREM":
		reply, err := DoSRem(kv, args[0], args[1])
		return reply, true, err
	case "SISMEMBER":
		reply, err := DoSIsMember(kv, args[0], args[1])
		return reply, false, err
	case "SMEMBERS":
		reply, err := DoSMembers(kv, args[0])
		return reply, false, err

	case "EXPIRE":
		seconds, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return "", false, ErrNotInteger
		}
		created, err := ttl.Expire(kv, args[0], seconds)
		if err != nil {
			return "", false, err
		}
		if created {
			return "1", true, nil
		}
		return "0", true, nil
	case "TTL":
		result, err := ttl.TTL(kv, args[0], purgeLogicalKey)
		if err != nil {
			return "", false, err
		}
		return strconv.FormatInt(int64(result), 10), false, nil
	case "PERSIST":
		removed, err := ttl.Persist(kv, args[0])
		if err != nil {
			return "", false, err
		}
		if removed {
			return "1", true, nil
		}
		return "0", true, nil

	case "INFO":
		section := ""
		if len(args) == 1 {
			section = args[0]
		}
		reply, err := d.info.Info(section)
		return reply, false, err
	case "CLIENT":
		if strings.ToUpper(args[0]) != "LIST" {
			return "", false, fmt.Errorf("unknown CLIENT subcommand '%s'", args[0])
		}
		return strings.Join(d.clients.Lines(), ","), false, nil
	case "SLOWLOG":
		return strings.Join(d.slowlog.Lines(), ","), false, nil

	default:
		return "", false, fmt.Errorf("unknown command '%s'", verb)
	}
}
