// Package postgres stores keys in a Postgres table, for server-side apps that
// already run a database.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/stitch/pkg/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultTable = "stitch_kv"

type Store struct {
	pool  *pgxpool.Pool
	table string
	owned bool
}

// Connect opens a pool for connString and creates the kv table if needed.
func Connect(ctx context.Context, connString string) (*Store, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	s, err := New(ctx, pool, defaultTable)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New uses an existing pool. table must be a trusted identifier; it is quoted
// but not otherwise validated.
func New(ctx context.Context, pool *pgxpool.Pool, table string) (*Store, error) {
	s := &Store{pool: pool, table: pgx.Identifier{table}.Sanitize()}

	_, err := pool.Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, s.table))
	if err != nil {
		return nil, fmt.Errorf("postgres: create table: %w", err)
	}
	return s, nil
}

// Close closes the pool if Connect opened it.
func (s *Store) Close() {
	if s.owned {
		s.pool.Close()
	}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, s.table), key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("postgres: get %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, s.table),
		key, value,
	)
	if err != nil {
		return fmt.Errorf("postgres: set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, s.table), key); err != nil {
		return fmt.Errorf("postgres: remove %q: %w", key, err)
	}
	return nil
}
