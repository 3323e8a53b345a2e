package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Entity is a persisted model type.
type Entity interface {
	EntityKind() string
	EntityID() string
}

// Load reads an entity. It returns nil without error when the entity does
// not exist.
func Load[T any, P interface {
	*T
	Entity
}](ctx context.Context, s Store, id string) (P, error) {
	var zero T
	kind := P(&zero).EntityKind()

	data, err := s.Get(ctx, kind, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s %s: %w", kind, id, err)
	}

	e := P(new(T))
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", kind, id, err)
	}
	return e, nil
}

// MustLoad reads an entity that must already exist. A missing entity is
// reported as ErrMissingEntity.
func MustLoad[T any, P interface {
	*T
	Entity
}](ctx context.Context, s Store, id string) (P, error) {
	e, err := Load[T, P](ctx, s, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		var zero T
		return nil, fmt.Errorf("%w: %s %s", ErrMissingEntity, P(&zero).EntityKind(), id)
	}
	return e, nil
}

// Exists reports whether an entity of the given kind is stored under id.
func Exists(ctx context.Context, s Store, kind, id string) (bool, error) {
	_, err := s.Get(ctx, kind, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Save encodes and writes an entity.
func Save(ctx context.Context, s Store, e Entity) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	if err := s.Put(ctx, e.EntityKind(), e.EntityID(), data); err != nil {
		return fmt.Errorf("save %s %s: %w", e.EntityKind(), e.EntityID(), err)
	}
	return nil
}

// SaveAll writes entities in order and stops at the first failure.
func SaveAll(ctx context.Context, s Store, entities ...Entity) error {
	for _, e := range entities {
		if err := Save(ctx, s, e); err != nil {
			return err
		}
	}
	return nil
}
