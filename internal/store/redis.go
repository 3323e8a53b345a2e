package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache. Writes go to the primary store and refresh the cache; reads
// check Redis first then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

func (s *CachedStore) Get(ctx context.Context, kind, id string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, entityKey(kind, id)).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		// Cache unavailable; the primary is authoritative.
		return s.primary.Get(ctx, kind, id)
	}

	data, err = s.primary.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	s.rdb.Set(ctx, entityKey(kind, id), data, s.ttl)
	return data, nil
}

func (s *CachedStore) Put(ctx context.Context, kind, id string, data []byte) error {
	if err := s.primary.Put(ctx, kind, id, data); err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, entityKey(kind, id), data, s.ttl).Err(); err != nil {
		// A stale entry would shadow the write; drop it instead.
		s.rdb.Del(ctx, entityKey(kind, id))
	}
	return nil
}

// PutBatch writes through to the primary, then refreshes the cache.
func (s *CachedStore) PutBatch(ctx context.Context, writes []Write) error {
	if err := PutAll(ctx, s.primary, writes); err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	for _, w := range writes {
		pipe.Set(ctx, entityKey(w.Kind, w.ID), w.Data, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		for _, w := range writes {
			s.rdb.Del(ctx, entityKey(w.Kind, w.ID))
		}
	}
	return nil
}

// List delegates to the primary store. Listings are not cached.
func (s *CachedStore) List(ctx context.Context, kind string, limit int) ([]string, error) {
	l, ok := s.primary.(Lister)
	if !ok {
		return nil, ErrNotListable
	}
	return l.List(ctx, kind, limit)
}

func entityKey(kind, id string) string { return fmt.Sprintf("entity:%s:%s", kind, id) }
