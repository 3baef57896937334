package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps collections as JSONB rows in kv_collections.
// Updates lock the row with SELECT ... FOR UPDATE.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pool. The kv_collections migration must be applied.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM kv_collections WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query kv_collections %s: %w", key, err)
	}
	return value, nil
}

func (s *PostgresStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Make sure the row exists so FOR UPDATE has something to lock.
	if _, err := tx.Exec(ctx,
		`INSERT INTO kv_collections (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`, key); err != nil {
		return fmt.Errorf("ensure kv_collections %s: %w", key, err)
	}

	var (
		current []byte
		version int64
	)
	if err := tx.QueryRow(ctx,
		`SELECT value, version FROM kv_collections WHERE key = $1 FOR UPDATE`, key).Scan(&current, &version); err != nil {
		return fmt.Errorf("lock kv_collections %s: %w", key, err)
	}
	if version == 0 {
		// Freshly inserted placeholder row.
		current = nil
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE kv_collections SET value = $2::jsonb, version = version + 1, updated_at = now() WHERE key = $1`,
		key, string(next)); err != nil {
		return fmt.Errorf("update kv_collections %s: %w", key, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit kv_collections %s: %w", key, err)
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *PostgresStore) Close() error { return nil }

var _ Store = (*PostgresStore)(nil)
