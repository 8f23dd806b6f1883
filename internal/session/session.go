// Package session persists the bearer token and the current user. It is the
// single identity source for the process; construct one Store and inject it.
package session

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"appointment-client/internal/model"
)

const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Store is safe to call before any explicit setup: backends open their
// persistent area on first use. Clear drops token and user together.
type Store interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	User(ctx context.Context) (*model.User, error)
	SetUser(ctx context.Context, u *model.User) error
	Clear(ctx context.Context) error
	Close() error
}

func encodeUser(u *model.User) ([]byte, error) {
	if u == nil {
		return nil, fmt.Errorf("session: nil user")
	}
	b, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("session: encode user: %w", err)
	}
	return b, nil
}

func decodeUser(b []byte) (*model.User, error) {
	if len(b) == 0 {
		return nil, nil
	}
	u := &model.User{}
	if err := json.Unmarshal(b, u); err != nil {
		return nil, fmt.Errorf("session: decode user: %w", err)
	}
	return u, nil
}
