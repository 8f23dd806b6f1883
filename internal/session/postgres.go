package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"appointment-client/internal/model"
)

const createTable = `CREATE TABLE IF NOT EXISTS session_kv (
	key        TEXT PRIMARY KEY,
	value      BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps the session in a two-row key/value table, created on
// first access.
type PostgresStore struct {
	pool *pgxpool.Pool

	mu    sync.Mutex
	ready bool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("session: create table: %w", err)
	}
	s.ready = true
	return nil
}

func (s *PostgresStore) get(ctx context.Context, key string) ([]byte, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	var b []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM session_kv WHERE key = $1`, key).Scan(&b)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: select %s: %w", key, err)
	}
	return b, nil
}

func (s *PostgresStore) put(ctx context.Context, key string, val []byte) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO session_kv (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		key, val,
	)
	if err != nil {
		return fmt.Errorf("session: upsert %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Token(ctx context.Context) (string, error) {
	b, err := s.get(ctx, KeyToken)
	return string(b), err
}

func (s *PostgresStore) SetToken(ctx context.Context, token string) error {
	return s.put(ctx, KeyToken, []byte(token))
}

func (s *PostgresStore) User(ctx context.Context) (*model.User, error) {
	b, err := s.get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	return decodeUser(b)
}

func (s *PostgresStore) SetUser(ctx context.Context, u *model.User) error {
	b, err := encodeUser(u)
	if err != nil {
		return err
	}
	return s.put(ctx, KeyUser, b)
}

// Clear is a single DELETE, so both rows go together.
func (s *PostgresStore) Clear(ctx context.Context) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM session_kv WHERE key = ANY($1)`, []string{KeyToken, KeyUser})
	if err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
