package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// Entities are stored as JSONB documents keyed by (kind, id). Monetary
// fields inside the documents are decimal strings, so precision survives
// the round trip.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the entity table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS entities (
			kind       TEXT        NOT NULL,
			id         TEXT        NOT NULL,
			data       JSONB       NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (kind, id)
		)`)
	if err != nil {
		return fmt.Errorf("migrate entities: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, kind, id string) ([]byte, error) {
	var data string
	err := s.pool.QueryRow(ctx,
		`SELECT data::TEXT FROM entities WHERE kind = $1 AND id = $2`, kind, id).
		Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return []byte(data), nil
}

const upsertEntity = `INSERT INTO entities (kind, id, data, updated_at)
	VALUES ($1, $2, $3::JSONB, now())
	ON CONFLICT (kind, id) DO UPDATE
	SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`

func (s *PostgresStore) Put(ctx context.Context, kind, id string, data []byte) error {
	_, err := s.pool.Exec(ctx, upsertEntity, kind, id, string(data))
	if err != nil {
		return fmt.Errorf("put %s %s: %w", kind, id, err)
	}
	return nil
}

// PutBatch upserts writes in one transaction.
func (s *PostgresStore) PutBatch(ctx context.Context, writes []Write) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, w := range writes {
			batch.Queue(upsertEntity, w.Kind, w.ID, string(w.Data))
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("put batch of %d: %w", len(writes), err)
		}
		return nil
	})
}

// List returns the ids of a kind, most recently updated first.
func (s *PostgresStore) List(ctx context.Context, kind string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM entities WHERE kind = $1 ORDER BY updated_at DESC LIMIT $2`,
		kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
