// Package ttl implements per-key expiry: lazy purge on access plus an
// optional active sweeper, grounded on the ticker-driven background loop
// in warren's metrics collector (there it polled cluster state on an
// interval; here it polls the expire: key family instead).
package ttl

import (
	"context"
	"math"
	"time"

	"github.com/cuemby/keyd/pkg/log"
	"github.com/cuemby/keyd/pkg/store"
)

// nowMillis returns the current time as unix milliseconds.
var nowMillis = func() uint64 {
	return uint64(time.Now().UnixMilli())
}

// Purger removes every physical family belonging to a logical key. It is
// implemented in pkg/command, which knows the full set of physical
// prefixes (string/hash/list/set) a logical key can occupy; ttl only
// knows about the expire: family itself.
type Purger func(kv store.KV, key string) error

// Expire writes expire:K = now_ms + seconds*1000 (saturating), reporting
// whether an expiry already existed so the dispatcher can reply "1" on
// create / "0" on overwrite.
func Expire(kv store.KV, key string, seconds int64) (created bool, err error) {
	_, err = kv.Get(store.ExpireKey(key))
	existed := err == nil
	if err != nil && err != store.ErrKeyNotFound {
		return false, err
	}

	var deltaMillis uint64
	if seconds > 0 {
		deltaMillis = saturatingMul1000(seconds)
	}
	target := saturatingAdd(nowMillis(), deltaMillis)

	if err := kv.Insert(store.ExpireKey(key), store.EncodeExpiry(target)); err != nil {
		return false, err
	}
	return !existed, nil
}

func saturatingMul1000(seconds int64) uint64 {
	const max = math.MaxUint64
	s := uint64(seconds)
	if s != 0 && s > max/1000 {
		return max
	}
	return s * 1000
}

func saturatingAdd(a, b uint64) uint64 {
	sum := a + b
	if sum < a { // overflow
		return math.MaxUint64
	}
	return sum
}

// TTLResult is the outcome of a TTL query.
type TTLResult int64

const (
	// NoExpiry means the key carries no expire: entry.
	NoExpiry TTLResult = -1
	// Expired means the key had an expiry that has already elapsed; the
	// caller purged it.
	Expired TTLResult = -2
)

// TTL reads expire:K. It purges the key via purge and returns Expired if
// the expiry has elapsed, NoExpiry if absent, or the ceiling of the
// remaining seconds otherwise.
func TTL(kv store.KV, key string, purge Purger) (TTLResult, error) {
	v, err := kv.Get(store.ExpireKey(key))
	if err == store.ErrKeyNotFound {
		return NoExpiry, nil
	}
	if err != nil {
		return 0, err
	}

	target := store.DecodeExpiry(v)
	now := nowMillis()
	if target <= now {
		if err := purge(kv, key); err != nil {
			log.WithComponent("ttl").Warn().Err(err).Str("key", key).Msg("purge on read failed")
		}
		return Expired, nil
	}

	remainingMillis := target - now
	remainingSecs := (remainingMillis + 999) / 1000 // ceil
	return TTLResult(remainingSecs), nil
}

// Persist removes expire:K, reporting whether it was present.
func Persist(kv store.KV, key string) (removed bool, err error) {
	_, err = kv.Get(store.ExpireKey(key))
	if err == store.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := kv.Remove(store.ExpireKey(key)); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveIfExpired purges key via purge iff it carries an expiry that has
// already elapsed. Called by the dispatcher before every keyed command
// other than the pure control/txn verbs (spec.md §4.3). Expiry-purge
// failures are swallowed (availability over strictness; an immediate
// retry would not help) and only logged.
func RemoveIfExpired(kv store.KV, key string, purge Purger) {
	v, err := kv.Get(store.ExpireKey(key))
	if err != nil {
		return
	}
	if store.DecodeExpiry(v) > nowMillis() {
		return
	}
	if err := purge(kv, key); err != nil {
		log.WithComponent("ttl").Warn().Err(err).Str("key", key).Msg("lazy purge failed")
	}
}

// Sweeper periodically scans the expire: range and purges anything whose
// deadline has passed. It is an availability optimization only: lazy
// purge via RemoveIfExpired already guarantees the correctness invariant
// in spec.md §3 ("any read ... must return not found"); the sweeper just
// reclaims space for keys nobody reads again. Purge is idempotent, so
// sweeper races with lazy purge on the same key are harmless.
type Sweeper struct {
	direct   store.KV
	purge    Purger
	interval time.Duration
}

// NewSweeper constructs a sweeper that scans on the given interval.
func NewSweeper(direct store.KV, purge Purger, interval time.Duration) *Sweeper {
	return &Sweeper{direct: direct, purge: purge, interval: interval}
}

// Run blocks, sweeping on each tick, until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	logger := log.WithComponent("ttl-sweeper")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.sweepOnce(); n > 0 {
				logger.Debug().Int("purged", n).Msg("swept expired keys")
			}
		}
	}
}

func (s *Sweeper) sweepOnce() int {
	now := nowMillis()
	var expired []string
	_ = s.direct.ScanPrefix(store.ExpireScanPrefix(), func(k, v []byte) error {
		if store.DecodeExpiry(v) <= now {
			key := string(k[len(store.ExpireScanPrefix()):])
			expired = append(expired, key)
		}
		return nil
	})

	logger := log.WithComponent("ttl-sweeper")
	purged := 0
	for _, key := range expired {
		if err := s.purge(s.direct, key); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("sweep purge failed")
			continue
		}
		purged++
	}
	return purged
}
