// Package remote talks to the auth and appointments services over JSON/HTTP.
package remote

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"appointment-client/internal/apperr"
	"appointment-client/internal/session"
)

const (
	HeaderRequestID = "X-Request-ID"
	defaultTimeout  = 15 * time.Second
)

type options struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	log         *zap.Logger
	strictLists bool
}

type Option func(*options)

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithRateLimit throttles outbound calls; rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps <= 0 {
			o.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		o.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithStrictLists turns a non-array list payload into an error instead of an
// empty result.
func WithStrictLists() Option {
	return func(o *options) { o.strictLists = true }
}

func buildOptions(opts []Option) options {
	o := options{
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        zap.NewNop(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

type transport struct {
	base     string
	sessions session.Store
	options
}

// newTransport falls back to a process-local store when sessions is nil.
func newTransport(baseURL string, sessions session.Store, opts []Option) *transport {
	if sessions == nil {
		sessions = session.NewMemory()
	}
	return &transport{
		base:     strings.TrimRight(baseURL, "/"),
		sessions: sessions,
		options:  buildOptions(opts),
	}
}

type response struct {
	status int
	body   []byte
}

func (r *response) ok() bool { return r.status >= 200 && r.status < 300 }

// do sends one request. The bearer token is attached when the session has
// one; otherwise the request goes out unauthenticated. A non-nil error here
// is always a transport failure, already wrapped as a RemoteError.
func (t *transport) do(ctx context.Context, method, path string, in any, fallback string) (*response, error) {
	reqID := uuid.New().String()
	log := t.log.With(
		zap.String("request_id", reqID),
		zap.String("method", method),
		zap.String("path", path),
	)

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			log.Error("encode request body", zap.Error(err))
			return nil, apperr.Remote(fallback, 0, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.base+path, body)
	if err != nil {
		log.Error("create request", zap.Error(err))
		return nil, apperr.Remote(fallback, 0, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderRequestID, reqID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	tok, err := t.sessions.Token(ctx)
	if err != nil {
		log.Warn("read session token", zap.Error(err))
	} else if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			log.Warn("rate limiter wait", zap.Error(err))
			return nil, apperr.Remote(fallback, 0, err)
		}
	}

	start := time.Now()
	resp, err := t.httpClient.Do(req)
	if err != nil {
		log.Error("send request", zap.Error(err))
		return nil, apperr.Remote(fallback, 0, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error("read response body", zap.Int("status", resp.StatusCode), zap.Error(err))
		return nil, apperr.Remote(fallback, resp.StatusCode, err)
	}

	log.Debug("request done",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &response{status: resp.StatusCode, body: b}, nil
}

// health reports whether the service answers GET /health with a 2xx.
func (t *transport) health(ctx context.Context) error {
	r, err := t.do(ctx, http.MethodGet, "/health", nil, "service unavailable")
	if err != nil {
		return err
	}
	if !r.ok() {
		return responseError(r, "service unavailable")
	}
	return nil
}
