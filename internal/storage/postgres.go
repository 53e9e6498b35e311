package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgStore implementa Store sobre Postgres. Una sola tabla kv con
// expiración lazy: las filas vencidas se filtran en lectura y se
// limpian de forma oportunista en escritura.
type pgStore struct {
	pool   *pgxpool.Pool
	prefix string
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS handshake_sessions (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	expires_at TIMESTAMPTZ
)`

// NewPostgres crea el store y asegura el schema.
func NewPostgres(ctx context.Context, cfg Config) (Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: postgres connect: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: postgres schema: %w", err)
	}
	return &pgStore{pool: pool, prefix: cfg.Prefix}, nil
}

func (s *pgStore) key(k string) string {
	if s.prefix == "" {
		return k
	}
	return s.prefix + ":" + k
}

func (s *pgStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM handshake_sessions
		 WHERE key = $1 AND (expires_at IS NULL OR expires_at > now())`,
		s.key(key)).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (s *pgStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expires *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expires = &t
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO handshake_sessions (key, value, expires_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET value = $2, expires_at = $3`,
		s.key(key), value, expires)
	if err != nil {
		return err
	}

	// limpieza oportunista
	_, _ = s.pool.Exec(ctx,
		`DELETE FROM handshake_sessions WHERE expires_at IS NOT NULL AND expires_at < now()`)
	return nil
}

func (s *pgStore) Delete(ctx context.Context, key string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM handshake_sessions WHERE key = $1`, s.key(key))
	return err
}

func (s *pgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *pgStore) Close() error {
	s.pool.Close()
	return nil
}
