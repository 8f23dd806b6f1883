package remote

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"

	"appointment-client/internal/apperr"
)

// ErrNotSequence is the cause attached when a list endpoint returns
// something other than a JSON array in strict mode.
var ErrNotSequence = errors.New("list response is not an array")

// detail pulls the human reason out of an error body. The API sends either
// {"detail": "..."} or a validation list {"detail": [{"msg": "..."}]}.
func detail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(payload.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
		return items[0].Msg
	}
	return ""
}

func statusError(r *response) error {
	return fmt.Errorf("unexpected status %d: %s", r.status, truncate(r.body, 256))
}

// responseError maps a non-2xx response. 401 means the session is missing
// or no longer valid and becomes an AuthError.
func responseError(r *response, fallback string) *apperr.Error {
	msg := detail(r.body)
	if msg == "" {
		msg = fallback
	}
	if r.status == http.StatusUnauthorized {
		e := apperr.Auth(msg, statusError(r))
		e.Status = r.status
		return e
	}
	return apperr.Remote(msg, r.status, statusError(r))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
