package store

import (
	"bytes"
	"fmt"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("kv")

// BoltStore is the ordered byte store: a single bbolt bucket holding every
// physical key described in doc.go, opened with bbolt's own ACID
// transactions providing the "sorted map with point ops, prefix scan, and
// a multi-key atomic transaction primitive" spec.md asks of the backing
// store.
type BoltStore struct {
	db *bolt.DB
}

// Open opens (creating if absent) the bbolt database at path and ensures
// the kv bucket exists.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open store at %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Sync fsyncs the underlying database file. Used for the snapshot
// procedure's "flush the ordered store to its own durable state" step.
func (s *BoltStore) Sync() error {
	return s.db.Sync()
}

// Direct returns the direct KV view over the store. watcher may be nil,
// in which case the Notifier capability is simply absent.
func (s *BoltStore) Direct(watcher NotifierFunc) *DirectKV {
	return &DirectKV{db: s.db, watcher: watcher}
}

// Each iterates every physical key in the store in byte order, used by
// the snapshot writer (pkg/persistence) to dump a consistent key set.
func (s *BoltStore) Each(fn func(key, value []byte) error) error {
	return s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(k, v []byte) error {
			return fn(k, v)
		})
	})
}

// WithTx runs fn inside one writable bbolt transaction against a TxKV, the
// realization used for MULTI/EXEC: every command in the queue runs against
// the same KV, so either all of their writes land or none do.
func (s *BoltStore) WithTx(fn func(KV) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(&TxKV{tx: tx})
	})
}

// NotifierFunc lets DirectKV notify the watch manager without importing
// pkg/watch (which would create an import cycle: pkg/watch has no reason
// to depend on pkg/store, but pkg/command depends on both).
type NotifierFunc func(logicalKey string)

// DirectKV is the KV realization used outside MULTI/EXEC. Every call opens
// its own bbolt transaction, so handlers that must group several physical
// writes atomically use OpenTx instead of making several direct calls.
type DirectKV struct {
	db      *bolt.DB
	watcher NotifierFunc
}

func (d *DirectKV) Get(key []byte) ([]byte, error) {
	var out []byte
	err := d.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (d *DirectKV) Insert(key, value []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

func (d *DirectKV) Remove(key []byte) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
}

func (d *DirectKV) ScanPrefix(prefix []byte, fn ScanFunc) error {
	return d.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			if err := fn(k, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// OpenTx implements store.TxOpener: run fn against a TxKV backed by one
// inner writable transaction.
func (d *DirectKV) OpenTx(fn func(KV) error) error {
	return d.db.Update(func(tx *bolt.Tx) error {
		return fn(&TxKV{tx: tx})
	})
}

// NotifyKeyChange implements store.Notifier.
func (d *DirectKV) NotifyKeyChange(logicalKey string) {
	if d.watcher == nil {
		return
	}
	d.watcher(logicalKey)
}

// TxKV is the KV realization backed by one already-open bbolt
// transaction - used both for MULTI/EXEC (the outer transaction spans the
// whole queued batch) and for a direct handler's inner OpenTx group (the
// transaction spans just that handler's writes).
type TxKV struct {
	tx *bolt.Tx
}

func (t *TxKV) Get(key []byte) ([]byte, error) {
	v := t.tx.Bucket(bucketName).Get(key)
	if v == nil {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (t *TxKV) Insert(key, value []byte) error {
	return t.tx.Bucket(bucketName).Put(key, value)
}

func (t *TxKV) Remove(key []byte) error {
	return t.tx.Bucket(bucketName).Delete(key)
}

// ScanPrefix always yields zero results on TxKV (spec.md §4.1: "the
// transactional view ... restricts scan_prefix to an empty sequence").
func (t *TxKV) ScanPrefix(prefix []byte, fn ScanFunc) error {
	return nil
}
