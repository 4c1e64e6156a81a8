// Package store is the durable local persistence used for snapshot caching
// and the offline operation log.
package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound  = errors.New("key not found")
	ErrInvalidID = errors.New("invalid entry id")
	ErrEmptyKey  = errors.New("key cannot be empty")
)

// KV is a durable key-value store.
type KV interface {
	Persist(ctx context.Context, key string, value []byte) error
	// Load returns ErrNotFound when the key is absent.
	Load(ctx context.Context, key string) ([]byte, error)
	Remove(ctx context.Context, key string) error
}

// Entry is one record of an append-only log.
type Entry struct {
	ID   string
	Data []byte
}

// Log is an append-only sequence per stream with stable FIFO ordering.
// Appends never rewrite existing entries, so an append racing a Delete of
// older entries cannot lose either change.
type Log interface {
	Append(ctx context.Context, stream string, data []byte) (string, error)
	// List returns every entry of stream, oldest first.
	List(ctx context.Context, stream string) ([]Entry, error)
	Delete(ctx context.Context, stream string, ids ...string) error
	Truncate(ctx context.Context, stream string) error
	Len(ctx context.Context, stream string) (int, error)
}

// Store bundles both persistence shapes behind one backend.
type Store interface {
	KV
	Log
}

// Key joins a namespace prefix and parts with ':'.
func Key(prefix string, parts ...string) string {
	k := prefix
	for _, p := range parts {
		if k == "" {
			k = p
			continue
		}
		k += ":" + p
	}
	return k
}
