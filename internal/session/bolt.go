package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"appointment-client/internal/model"
)

var bucket = []byte("session")

// BoltStore keeps the session in a bbolt file, opened lazily.
type BoltStore struct {
	path string

	mu sync.Mutex
	db *bolt.DB
}

func NewBolt(path string) *BoltStore {
	return &BoltStore{path: path}
}

// open creates the file and bucket on first access.
func (s *BoltStore) open() (*bolt.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db, nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("session: mkdir: %w", err)
		}
	}
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("session: open %s: %w", s.path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("session: init bucket: %w", err)
	}
	s.db = db
	return db, nil
}

func (s *BoltStore) get(key string) ([]byte, error) {
	db, err := s.open()
	if err != nil {
		return nil, err
	}
	var out []byte
	err = db.View(func(tx *bolt.Tx) error {
		// value is only valid inside the tx
		if v := tx.Bucket(bucket).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) put(key string, val []byte) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), val)
	})
}

func (s *BoltStore) Token(_ context.Context) (string, error) {
	b, err := s.get(KeyToken)
	return string(b), err
}

func (s *BoltStore) SetToken(_ context.Context, token string) error {
	return s.put(KeyToken, []byte(token))
}

func (s *BoltStore) User(_ context.Context) (*model.User, error) {
	b, err := s.get(KeyUser)
	if err != nil {
		return nil, err
	}
	return decodeUser(b)
}

func (s *BoltStore) SetUser(_ context.Context, u *model.User) error {
	b, err := encodeUser(u)
	if err != nil {
		return err
	}
	return s.put(KeyUser, b)
}

// Clear deletes both keys in one transaction.
func (s *BoltStore) Clear(_ context.Context) error {
	db, err := s.open()
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if err := b.Delete([]byte(KeyToken)); err != nil {
			return err
		}
		return b.Delete([]byte(KeyUser))
	})
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
