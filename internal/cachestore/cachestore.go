// Package cachestore provides durable key-value persistence for service state.
//
// Values are JSON encoded under string keys. The contract is deliberately
// small: last write wins, no transactions across keys, and a missing or
// undecodable entry reads as the type's default. Three backends implement it:
//
//   - SQLite (default): embedded database in WAL mode
//   - Bolt: single bbolt file
//   - Memory: process-local map, used by tests
package cachestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrClosed is returned by backends used after Close.
	ErrClosed = errors.New("cache store closed")

	// ErrCorrupt wraps decode failures of stored values.
	ErrCorrupt = errors.New("corrupt cache entry")
)

// Backend is the raw byte-level store.
type Backend interface {
	// Get returns the value stored under key. ok is false when absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Keys lists all stored keys in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases the underlying resources.
	Close() error
}

// Load decodes the value stored under key into a T.
//
// A missing key yields the zero T with found=false and a nil error. A value
// that cannot be decoded yields the zero T and an error wrapping ErrCorrupt,
// so callers can log it and carry on with the default.
func Load[T any](ctx context.Context, b Backend, key string) (value T, found bool, err error) {
	raw, ok, err := b.Get(ctx, key)
	if err != nil {
		return value, false, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return value, false, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		var zero T
		return zero, false, fmt.Errorf("%w %s: %v", ErrCorrupt, key, err)
	}
	return value, true, nil
}

// Store encodes v as JSON and writes it under key.
func Store[T any](ctx context.Context, b Backend, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := b.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Open creates a backend by name. path is ignored for "memory".
func Open(kind, path string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "sqlite":
		return OpenSQLite(path)
	case "bolt", "bbolt":
		return OpenBolt(path)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", kind)
	}
}
