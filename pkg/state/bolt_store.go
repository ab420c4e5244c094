package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var rootBucket = []byte("component_state")

// BoltStore persists component state in a bbolt file: one nested bucket per
// scoped state key, one JSON-encoded entry per field. Values round-trip
// through JSON, so numbers come back as float64 regardless of how they were
// written; that matches what expressions and hydrated attributes expect.
type BoltStore struct {
	db    *bolt.DB
	owned bool
}

// Open opens (creating if needed) a state file at path and returns a store
// that owns the handle; Close releases it.
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("state: open %s: %w", path, err)
	}
	store, err := NewBoltStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.owned = true
	return store, nil
}

// NewBoltStore wraps an already-open database. The caller keeps ownership
// of db; Close is a no-op.
func NewBoltStore(db *bolt.DB) (*BoltStore, error) {
	if db == nil {
		return nil, fmt.Errorf("state: bolt database is required")
	}
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("state: create root bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the database when this store opened it.
func (s *BoltStore) Close() error {
	if s.db == nil {
		return ErrClosed
	}
	db := s.db
	s.db = nil
	if !s.owned {
		return nil
	}
	return db.Close()
}

func (s *BoltStore) Get(_ context.Context, key, field string) (any, bool, error) {
	if s.db == nil {
		return nil, false, ErrClosed
	}
	var raw []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(rootBucket).Bucket([]byte(key))
		if bucket == nil {
			return nil
		}
		if data := bucket.Get([]byte(field)); data != nil {
			raw = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("state: get %s.%s: %w", key, field, err)
	}
	if raw == nil {
		return nil, false, nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, false, fmt.Errorf("state: decode %s.%s: %w", key, field, err)
	}
	return value, true, nil
}

func (s *BoltStore) Set(_ context.Context, key, field string, value any) error {
	if s.db == nil {
		return ErrClosed
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode %s.%s: %w", key, field, err)
	}
	err = s.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.Bucket(rootBucket).CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(field), raw)
	})
	if err != nil {
		return fmt.Errorf("state: set %s.%s: %w", key, field, err)
	}
	return nil
}

func (s *BoltStore) Snapshot(_ context.Context, key string) (map[string]any, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	fields := map[string]any{}
	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(rootBucket).Bucket([]byte(key))
		if bucket == nil {
			return nil
		}
		return decodeBucket(bucket, fields)
	})
	if err != nil {
		return nil, fmt.Errorf("state: snapshot %s: %w", key, err)
	}
	return fields, nil
}

func (s *BoltStore) SnapshotScope(_ context.Context, scope string) (map[string]map[string]any, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	out := make(map[string]map[string]any)
	err := s.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(rootBucket)
		return root.ForEachBucket(func(name []byte) error {
			rest, ok := relativeKey(scope, string(name))
			if !ok {
				return nil
			}
			fields := map[string]any{}
			if err := decodeBucket(root.Bucket(name), fields); err != nil {
				return err
			}
			out[rest] = fields
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("state: snapshot scope %q: %w", scope, err)
	}
	return out, nil
}

func decodeBucket(bucket *bolt.Bucket, into map[string]any) error {
	return bucket.ForEach(func(field, raw []byte) error {
		if raw == nil {
			// Nested bucket entry, not a field.
			return nil
		}
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return fmt.Errorf("decode field %s: %w", field, err)
		}
		into[string(field)] = value
		return nil
	})
}
