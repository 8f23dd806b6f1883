package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"appointment-client/internal/apperr"
	"appointment-client/internal/model"
	"appointment-client/internal/session"
)

const (
	msgListFailed       = "failed to load appointments"
	msgDoctorListFailed = "failed to load doctor appointments"
	msgGetFailed        = "failed to load appointment"
	msgCreateFailed     = "failed to create appointment"
	msgUpdateFailed     = "failed to update appointment"
	msgDeleteFailed     = "failed to delete appointment"
)

// AppointmentClient is a thin CRUD client; it makes no authorization
// decisions of its own.
type AppointmentClient struct {
	t *transport
}

func NewAppointmentClient(baseURL string, sessions session.Store, opts ...Option) *AppointmentClient {
	return &AppointmentClient{t: newTransport(baseURL, sessions, opts)}
}

// List returns the caller's appointments (patient-scoped on the server).
func (c *AppointmentClient) List(ctx context.Context) ([]model.Appointment, error) {
	return c.list(ctx, "/appointments", msgListFailed)
}

func (c *AppointmentClient) ListForDoctor(ctx context.Context, doctorID int64) ([]model.Appointment, error) {
	return c.list(ctx, fmt.Sprintf("/appointments/doctor/%d", doctorID), msgDoctorListFailed)
}

func (c *AppointmentClient) list(ctx context.Context, path, fallback string) ([]model.Appointment, error) {
	r, err := c.t.do(ctx, http.MethodGet, path, nil, fallback)
	if err != nil {
		return nil, err
	}
	if !r.ok() {
		return nil, responseError(r, fallback)
	}

	body := bytes.TrimSpace(r.body)
	if len(body) == 0 || body[0] != '[' {
		c.t.log.Warn("list response is not an array",
			zap.String("path", path),
			zap.Int("status", r.status),
			zap.String("body", truncate(body, 256)),
		)
		if c.t.strictLists {
			return nil, apperr.Remote(fallback, r.status, ErrNotSequence)
		}
		return []model.Appointment{}, nil
	}

	out := []model.Appointment{}
	if err := json.Unmarshal(body, &out); err != nil {
		c.t.log.Error("decode appointment list", zap.String("path", path), zap.Error(err))
		return nil, apperr.Remote(fallback, r.status, err)
	}
	c.t.log.Debug("appointments listed", zap.String("path", path), zap.Int("count", len(out)))
	return out, nil
}

func (c *AppointmentClient) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	return c.one(ctx, http.MethodGet, fmt.Sprintf("/appointments/%d", id), nil, msgGetFailed)
}

func (c *AppointmentClient) Create(ctx context.Context, data model.CreateAppointment) (*model.Appointment, error) {
	return c.one(ctx, http.MethodPost, "/appointments", data, msgCreateFailed)
}

func (c *AppointmentClient) Update(ctx context.Context, id int64, data model.UpdateAppointment) (*model.Appointment, error) {
	return c.one(ctx, http.MethodPut, fmt.Sprintf("/appointments/%d", id), data, msgUpdateFailed)
}

func (c *AppointmentClient) Delete(ctx context.Context, id int64) error {
	r, err := c.t.do(ctx, http.MethodDelete, fmt.Sprintf("/appointments/%d", id), nil, msgDeleteFailed)
	if err != nil {
		return err
	}
	if !r.ok() {
		return responseError(r, msgDeleteFailed)
	}
	return nil
}

func (c *AppointmentClient) one(ctx context.Context, method, path string, in any, fallback string) (*model.Appointment, error) {
	r, err := c.t.do(ctx, method, path, in, fallback)
	if err != nil {
		return nil, err
	}
	if !r.ok() {
		return nil, responseError(r, fallback)
	}
	a := &model.Appointment{}
	if err := json.Unmarshal(r.body, a); err != nil {
		c.t.log.Error("decode appointment", zap.String("path", path), zap.Error(err))
		return nil, apperr.Remote(fallback, r.status, err)
	}
	return a, nil
}

func (c *AppointmentClient) Health(ctx context.Context) error {
	return c.t.health(ctx)
}
