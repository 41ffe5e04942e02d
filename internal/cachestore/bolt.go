package cachestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const cacheBucket = "cache"

// Bolt stores cache entries in a single bbolt file.
type Bolt struct {
	db *bolt.DB
}

var _ Backend = (*Bolt)(nil)

// OpenBolt opens (or creates) the bbolt file at path.
func OpenBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt cache path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bbolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(cacheBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &Bolt{db: db}, nil
}

// Get implements Backend.
func (b *Bolt) Get(_ context.Context, key string) ([]byte, bool, error) {
	if b.db == nil {
		return nil, false, ErrClosed
	}

	var (
		value []byte
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(cacheBucket)).Get([]byte(key))
		if v != nil {
			// bbolt values are only valid inside the transaction.
			value = append([]byte{}, v...)
			found = true
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}
	return value, found, nil
}

// Set implements Backend.
func (b *Bolt) Set(_ context.Context, key string, value []byte) error {
	if b.db == nil {
		return ErrClosed
	}

	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket([]byte(cacheBucket)).Put([]byte(key), value); err != nil {
			return fmt.Errorf("failed to write cache entry %s: %w", key, err)
		}
		return nil
	})
}

// Keys implements Backend.
func (b *Bolt) Keys(_ context.Context) ([]string, error) {
	if b.db == nil {
		return nil, ErrClosed
	}

	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(cacheBucket)).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list cache keys: %w", err)
	}
	return keys, nil
}

// Close closes the bbolt file.
func (b *Bolt) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}
