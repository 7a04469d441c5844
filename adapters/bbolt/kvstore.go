// Package bbolt provides a bbolt-backed implementation of ports.KVStore for
// single-file embedded deployments.
package bbolt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/artpar/maintforms/ports"
)

var (
	bucketName = []byte("kv")
	auditName  = []byte("audit")
)

// ErrBucketNotFound is returned when the database was not initialized by Open.
var ErrBucketNotFound = errors.New("bucket not found")

// KVStore stores values in a single bbolt bucket.
type KVStore struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database file at path.
func Open(path string) (*KVStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketName, auditName} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	return &KVStore{db: db}, nil
}

// Get retrieves the value stored under key.
func (s *KVStore) Get(ctx context.Context, key string) (value string, found bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return ErrBucketNotFound
		}
		// bbolt values are only valid inside the transaction; copy out.
		if v := b.Get([]byte(key)); v != nil {
			value = string(v)
			found = true
		}
		return nil
	})
	return value, found, err
}

// Set stores value under key.
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return ErrBucketNotFound
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// Close closes the database file.
func (s *KVStore) Close() error {
	return s.db.Close()
}

// Ensure interface compliance.
var _ ports.KVStore = (*KVStore)(nil)
