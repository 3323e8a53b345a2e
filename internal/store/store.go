// Package store defines the persistence interface for indexed entities.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no entity exists under the key.
	ErrNotFound = errors.New("store: entity not found")

	// ErrMissingEntity marks a required entity that handler ordering
	// guarantees must exist. It is a fatal precondition violation.
	ErrMissingEntity = errors.New("store: required entity missing")

	// ErrNotListable is returned by wrappers whose backing store cannot
	// enumerate ids.
	ErrNotListable = errors.New("store: listing not supported")
)

// Store is the load/save interface supplied by the host. Entities are
// addressed by kind and id and stored as opaque JSON documents.
type Store interface {
	// Get returns the encoded entity or ErrNotFound.
	Get(ctx context.Context, kind, id string) ([]byte, error)

	// Put inserts or overwrites the encoded entity.
	Put(ctx context.Context, kind, id string, data []byte) error
}

// Lister is implemented by stores that can enumerate the ids of a kind.
type Lister interface {
	List(ctx context.Context, kind string, limit int) ([]string, error)
}
