package remote

import (
	"context"
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"appointment-client/internal/apperr"
	"appointment-client/internal/model"
	"appointment-client/internal/session"
)

const (
	msgLoginFailed      = "login failed"
	msgRegisterFailed   = "registration failed"
	msgRegistered       = "user registered successfully"
	msgProfileFailed    = "failed to load profile"
	msgNotAuthenticated = "not authenticated"
)

// AuthClient logs users in against the auth service and owns writes of the
// session identity.
type AuthClient struct {
	t *transport
}

func NewAuthClient(baseURL string, sessions session.Store, opts ...Option) *AuthClient {
	return &AuthClient{t: newTransport(baseURL, sessions, opts)}
}

// Login returns only after both token and user are in the session.
func (c *AuthClient) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	req := model.LoginRequest{Email: email, Password: password}
	if err := model.Validate(req); err != nil {
		return nil, apperr.Auth(err.Error(), err)
	}

	r, err := c.t.do(ctx, http.MethodPost, "/login", req, msgLoginFailed)
	if err != nil {
		return nil, err
	}
	if !r.ok() {
		e := responseError(r, msgLoginFailed)
		if r.status < http.StatusInternalServerError {
			e.Kind = apperr.KindAuth
		}
		c.t.log.Info("login rejected", zap.String("email", email), zap.String("reason", e.Diagnostic()))
		return nil, e
	}

	var out model.LoginResponse
	if err := json.Unmarshal(r.body, &out); err != nil {
		c.t.log.Error("decode login response", zap.Error(err))
		return nil, apperr.Remote(msgLoginFailed, r.status, err)
	}
	if out.AccessToken == "" || out.User == nil {
		err := errors.New("login response missing token or user")
		c.t.log.Error("incomplete login response", zap.Error(err))
		return nil, apperr.Remote(msgLoginFailed, r.status, err)
	}

	if err := c.establish(ctx, out.AccessToken, out.User); err != nil {
		return nil, err
	}
	c.t.log.Info("login succeeded", zap.Int64("user_id", out.User.ID), zap.Stringer("role", out.User.Role))
	return &out, nil
}

// establish writes token then user; on any failure the session is cleared
// so no half-written identity is left behind.
func (c *AuthClient) establish(ctx context.Context, token string, u *model.User) error {
	err := c.t.sessions.SetToken(ctx, token)
	if err == nil {
		err = c.t.sessions.SetUser(ctx, u)
	}
	if err == nil {
		return nil
	}
	c.t.log.Error("write session", zap.Error(err))
	if cerr := c.t.sessions.Clear(ctx); cerr != nil {
		c.t.log.Error("clear partial session", zap.Error(cerr))
	}
	return apperr.Auth(msgLoginFailed, err)
}

// Register never touches the session. Every failure, local validation
// included, is reported through the result rather than as an error.
func (c *AuthClient) Register(ctx context.Context, req model.RegisterRequest) model.RegisterResult {
	if err := model.Validate(req); err != nil {
		return model.RegisterResult{Message: err.Error()}
	}

	r, err := c.t.do(ctx, http.MethodPost, "/register", req, msgRegisterFailed)
	if err != nil {
		return model.RegisterResult{Message: apperr.Message(err)}
	}
	if !r.ok() {
		e := responseError(r, msgRegisterFailed)
		c.t.log.Info("registration rejected", zap.String("email", req.Email), zap.String("reason", e.Diagnostic()))
		return model.RegisterResult{Message: e.Message}
	}

	u := &model.User{}
	if err := json.Unmarshal(r.body, u); err != nil {
		// the account exists even if we cannot read it back
		c.t.log.Warn("decode registered user", zap.Error(err))
		u = nil
	}
	return model.RegisterResult{Success: true, Message: msgRegistered, User: u}
}

// Me refreshes the current user from the server and overwrites the session copy.
func (c *AuthClient) Me(ctx context.Context) (*model.User, error) {
	tok, err := c.t.sessions.Token(ctx)
	if err != nil {
		return nil, apperr.Auth(msgNotAuthenticated, err)
	}
	if tok == "" {
		return nil, apperr.Auth(msgNotAuthenticated, nil)
	}

	r, err := c.t.do(ctx, http.MethodGet, "/users/me", nil, msgProfileFailed)
	if err != nil {
		return nil, err
	}
	if !r.ok() {
		return nil, responseError(r, msgProfileFailed)
	}

	u := &model.User{}
	if err := json.Unmarshal(r.body, u); err != nil {
		c.t.log.Error("decode profile", zap.Error(err))
		return nil, apperr.Remote(msgProfileFailed, r.status, err)
	}
	if err := c.t.sessions.SetUser(ctx, u); err != nil {
		return nil, apperr.Remote(msgProfileFailed, 0, err)
	}
	return u, nil
}

func (c *AuthClient) Logout(ctx context.Context) error {
	if err := c.t.sessions.Clear(ctx); err != nil {
		c.t.log.Error("clear session", zap.Error(err))
		return apperr.Auth("logout failed", err)
	}
	return nil
}

func (c *AuthClient) Health(ctx context.Context) error {
	return c.t.health(ctx)
}
