// Package booking ties the session, the local rules and the appointments API
// together. Every local check runs before a request is sent.
package booking

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"appointment-client/internal/access"
	"appointment-client/internal/apperr"
	"appointment-client/internal/auth"
	"appointment-client/internal/model"
	"appointment-client/internal/scheduling"
	"appointment-client/internal/session"
)

const DashboardSize = 3

var (
	ErrNotAuthenticated = apperr.Auth("not authenticated", nil)
	ErrSessionExpired   = apperr.Auth("session expired", nil)
	ErrInvalidSession   = apperr.Auth("invalid session", nil)
	ErrNothingToUpdate  = apperr.Validation(errors.New("nothing to update"))
)

// AppointmentAPI is the subset of remote.AppointmentClient the service uses.
type AppointmentAPI interface {
	List(ctx context.Context) ([]model.Appointment, error)
	ListForDoctor(ctx context.Context, doctorID int64) ([]model.Appointment, error)
	Get(ctx context.Context, id int64) (*model.Appointment, error)
	Create(ctx context.Context, data model.CreateAppointment) (*model.Appointment, error)
	Update(ctx context.Context, id int64, data model.UpdateAppointment) (*model.Appointment, error)
	Delete(ctx context.Context, id int64) error
}

type Option func(*Service)

// WithClock replaces time.Now for every rule evaluation.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithTokenSecret turns on signature verification of the stored token.
func WithTokenSecret(secret string) Option {
	return func(s *Service) { s.secret = secret }
}

type Service struct {
	api      AppointmentAPI
	sessions session.Store
	secret   string
	log      *zap.Logger
	now      func() time.Time
}

func New(api AppointmentAPI, sessions session.Store, opts ...Option) *Service {
	s := &Service{
		api:      api,
		sessions: sessions,
		log:      zap.NewNop(),
		now:      time.Now,
	}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

// CurrentUser returns the session user once the stored token has been
// checked for expiry. An expired session is cleared.
func (s *Service) CurrentUser(ctx context.Context) (*model.User, error) {
	tok, err := s.sessions.Token(ctx)
	if err != nil {
		s.log.Error("read session token", zap.Error(err))
		return nil, apperr.Auth(ErrNotAuthenticated.Message, err)
	}
	if tok == "" {
		return nil, ErrNotAuthenticated
	}

	if _, err := auth.ParseToken(tok, s.secret, s.now()); err != nil {
		switch {
		case errors.Is(err, auth.ErrExpired):
			s.log.Info("session expired, clearing")
			if cerr := s.sessions.Clear(ctx); cerr != nil {
				s.log.Error("clear expired session", zap.Error(cerr))
			}
			return nil, ErrSessionExpired
		case s.secret != "":
			s.log.Warn("stored token failed verification", zap.Error(err))
			return nil, ErrInvalidSession
		default:
			// without a secret an opaque token is left for the server to judge
			s.log.Debug("stored token is not a readable jwt", zap.Error(err))
		}
	}

	u, err := s.sessions.User(ctx)
	if err != nil {
		s.log.Error("read session user", zap.Error(err))
		return nil, apperr.Auth(ErrNotAuthenticated.Message, err)
	}
	if u == nil {
		return nil, ErrNotAuthenticated
	}
	return u, nil
}

// Appointments returns the caller's list: a patient's own bookings or a
// doctor's schedule.
func (s *Service) Appointments(ctx context.Context) ([]model.Appointment, error) {
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.appointmentsFor(ctx, u)
}

func (s *Service) appointmentsFor(ctx context.Context, u *model.User) ([]model.Appointment, error) {
	if u.Role == model.RoleDoctor {
		return s.api.ListForDoctor(ctx, u.ID)
	}
	return s.api.List(ctx)
}

func (s *Service) Segment(ctx context.Context, seg scheduling.Segment) ([]model.Appointment, error) {
	list, err := s.Appointments(ctx)
	if err != nil {
		return nil, err
	}
	return scheduling.Filter(list, seg, s.now()), nil
}

type Dashboard struct {
	User     model.User
	Next     []model.Appointment
	Upcoming int
	Past     int
}

// Dashboard shows a patient the next appointments and a doctor what is left
// of today.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	list, err := s.appointmentsFor(ctx, u)
	if err != nil {
		return nil, err
	}

	now := s.now()
	upcoming, past := scheduling.Partition(list, now)
	d := &Dashboard{User: *u, Upcoming: len(upcoming), Past: len(past)}
	if u.Role == model.RoleDoctor {
		d.Next = scheduling.TodayRemaining(list, now)
		if len(d.Next) > DashboardSize {
			d.Next = d.Next[:DashboardSize]
		}
	} else {
		d.Next = scheduling.Next(list, now, DashboardSize)
	}
	return d, nil
}

func (s *Service) Status(a model.Appointment) scheduling.Status {
	return scheduling.StatusOf(a, s.now())
}

func (s *Service) Soon(a model.Appointment) bool {
	return scheduling.Soon(a, s.now())
}

// Get fetches one appointment and refuses it when it is not the caller's.
func (s *Service) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.api.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := access.Authorize(*u, access.ActionView, a, s.now()); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) Book(ctx context.Context, data model.CreateAppointment) (*model.Appointment, error) {
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := access.Authorize(*u, access.ActionCreate, nil, now); err != nil {
		s.log.Info("booking refused", zap.Int64("user_id", u.ID), zap.Error(err))
		return nil, err
	}

	if data.DurationMinutes == 0 {
		data.DurationMinutes = model.DefaultDurationMinutes
	}
	if err := model.Validate(data); err != nil {
		return nil, apperr.Validation(err)
	}
	if err := scheduling.ValidateLeadTime(data.At, now); err != nil {
		return nil, err
	}
	if err := scheduling.ValidateHorizon(data.At, now); err != nil {
		return nil, err
	}

	a, err := s.api.Create(ctx, data)
	if err != nil {
		s.log.Warn("create appointment", zap.String("reason", apperr.Diagnostic(err)))
		return nil, err
	}
	s.log.Info("appointment booked", zap.Int64("appointment_id", a.ID), zap.Time("at", a.At))
	return a, nil
}

// Edit applies a partial update. A new start time must satisfy the same lead
// time and horizon as a fresh booking.
func (s *Service) Edit(ctx context.Context, appt model.Appointment, upd model.UpdateAppointment) (*model.Appointment, error) {
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := access.Authorize(*u, access.ActionEdit, &appt, now); err != nil {
		s.log.Info("edit refused", zap.Int64("appointment_id", appt.ID), zap.Error(err))
		return nil, err
	}

	if upd.Empty() {
		return nil, ErrNothingToUpdate
	}
	if err := model.Validate(upd); err != nil {
		return nil, apperr.Validation(err)
	}
	if upd.At != nil && !upd.At.Equal(appt.At) {
		if err := scheduling.ValidateLeadTime(*upd.At, now); err != nil {
			return nil, err
		}
		if err := scheduling.ValidateHorizon(*upd.At, now); err != nil {
			return nil, err
		}
	}

	a, err := s.api.Update(ctx, appt.ID, upd)
	if err != nil {
		s.log.Warn("update appointment", zap.Int64("appointment_id", appt.ID), zap.String("reason", apperr.Diagnostic(err)))
		return nil, err
	}
	return a, nil
}

func (s *Service) Cancel(ctx context.Context, appt model.Appointment) error {
	u, err := s.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if err := access.Authorize(*u, access.ActionCancel, &appt, s.now()); err != nil {
		s.log.Info("cancel refused", zap.Int64("appointment_id", appt.ID), zap.Error(err))
		return err
	}
	if err := s.api.Delete(ctx, appt.ID); err != nil {
		s.log.Warn("delete appointment", zap.Int64("appointment_id", appt.ID), zap.String("reason", apperr.Diagnostic(err)))
		return err
	}
	s.log.Info("appointment cancelled", zap.Int64("appointment_id", appt.ID))
	return nil
}
