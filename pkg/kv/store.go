// Package kv is the array-valued key-value store behind every entity
// collection. Values are opaque JSON documents addressed by collection name.
package kv

import (
	"context"
	"errors"
)

// ErrConcurrentUpdate is returned when an optimistic update kept losing races.
var ErrConcurrentUpdate = errors.New("kv: concurrent update retries exhausted")

// UpdateFunc receives the current value (nil when the key is absent) and
// returns the value to store. Returning an error aborts the update and nothing
// is written.
type UpdateFunc func(current []byte) ([]byte, error)

// Store persists one JSON document per key.
type Store interface {
	// Load returns the stored value or nil when the key is absent.
	Load(ctx context.Context, key string) ([]byte, error)

	// Update atomically replaces the value for key with fn's result.
	// fn may be called more than once on backends with optimistic locking.
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Close releases backend resources.
	Close() error
}
