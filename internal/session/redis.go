package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"appointment-client/internal/model"
)

// RedisStore shares one session across machines under a key prefix.
type RedisStore struct {
	client *redis.Client
	prefix string

	mu    sync.Mutex
	ready bool
}

func NewRedis(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "appointment-client"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(k string) string { return s.prefix + ":" + k }

// init checks connectivity once so the first failure is a clear one.
func (s *RedisStore) init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("session: redis ping: %w", err)
	}
	s.ready = true
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string) ([]byte, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	b, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: redis get %s: %w", key, err)
	}
	return b, nil
}

func (s *RedisStore) set(ctx context.Context, key string, val []byte) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(key), val, 0).Err(); err != nil {
		return fmt.Errorf("session: redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Token(ctx context.Context) (string, error) {
	b, err := s.get(ctx, KeyToken)
	return string(b), err
}

func (s *RedisStore) SetToken(ctx context.Context, token string) error {
	return s.set(ctx, KeyToken, []byte(token))
}

func (s *RedisStore) User(ctx context.Context) (*model.User, error) {
	b, err := s.get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	return decodeUser(b)
}

func (s *RedisStore) SetUser(ctx context.Context, u *model.User) error {
	b, err := encodeUser(u)
	if err != nil {
		return err
	}
	return s.set(ctx, KeyUser, b)
}

// Clear removes both keys with a single DEL.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(KeyToken), s.key(KeyUser)).Err(); err != nil {
		return fmt.Errorf("session: redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
