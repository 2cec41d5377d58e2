package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores each document as one versioned row. Update commits
// with a compare-and-swap on the version column, which gives the
// atomic read-modify-write the engine's transactions need.
type Postgres struct {
	*notifier
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{
		notifier: newNotifier(),
		pool:     pool,
	}, nil
}

// EnsureSchema creates the documents table if it is missing.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			path       TEXT PRIMARY KEY,
			data       JSONB NOT NULL,
			version    BIGINT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure documents table: %w", err)
	}
	return nil
}

func (s *Postgres) Close() {
	s.pool.Close()
}

// Health reports whether the database is reachable.
func (s *Postgres) Health(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Postgres) Read(ctx context.Context, path string) ([]byte, int64, error) {
	var data []byte
	var version int64

	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM documents WHERE path = $1`, path,
	).Scan(&data, &version)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read document %s: %w", path, err)
	}

	return data, version, nil
}

func (s *Postgres) Write(ctx context.Context, path string, value []byte) error {
	var version int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO documents (path, data, version)
		VALUES ($1, $2, 1)
		ON CONFLICT (path) DO UPDATE
		SET data = EXCLUDED.data, version = documents.version + 1, updated_at = now()
		RETURNING version
	`, path, value).Scan(&version)

	if err != nil {
		return fmt.Errorf("failed to write document %s: %w", path, err)
	}

	s.publish(path, value, true)
	return nil
}

func (s *Postgres) Update(ctx context.Context, path string, fn UpdateFunc) error {
	current, version, err := s.Read(ctx, path)
	if err != nil {
		return err
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents
		SET data = $1, version = version + 1, updated_at = now()
		WHERE path = $2 AND version = $3
	`, next, path, version)

	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", path, err)
	}
	if tag.RowsAffected() == 0 {
		// Row changed (or vanished) since the read.
		return ErrConflict
	}

	s.publish(path, next, true)
	return nil
}

func (s *Postgres) Delete(ctx context.Context, path string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE path = $1`, path)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", path, err)
	}

	if tag.RowsAffected() > 0 {
		s.publish(path, nil, false)
	}
	return nil
}
