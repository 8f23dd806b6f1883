package booking_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"appointment-client/internal/apperr"
	"appointment-client/internal/booking"
	"appointment-client/internal/model"
	"appointment-client/internal/scheduling"
	"appointment-client/internal/session"
)

var now = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

var (
	patient = &model.User{ID: 1, Email: "p@example.com", FirstName: "Pat", LastName: "Lee", Role: model.RolePatient}
	other   = &model.User{ID: 3, Email: "o@example.com", FirstName: "Oli", LastName: "Kim", Role: model.RolePatient}
	doctor  = &model.User{ID: 2, Email: "d@example.com", FirstName: "Dana", LastName: "Roe", Role: model.RoleDoctor}
)

// fakeAPI counts every call so tests can assert nothing was sent.
type fakeAPI struct {
	list        []model.Appointment
	calls       map[string]int
	lastCreate  model.CreateAppointment
	lastUpdate  model.UpdateAppointment
	lastDoctor  int64
	createError error
}

func newFakeAPI(list ...model.Appointment) *fakeAPI {
	return &fakeAPI{list: list, calls: map[string]int{}}
}

func (f *fakeAPI) total() int {
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeAPI) List(context.Context) ([]model.Appointment, error) {
	f.calls["list"]++
	return f.list, nil
}

func (f *fakeAPI) ListForDoctor(_ context.Context, id int64) ([]model.Appointment, error) {
	f.calls["listForDoctor"]++
	f.lastDoctor = id
	return f.list, nil
}

func (f *fakeAPI) Get(_ context.Context, id int64) (*model.Appointment, error) {
	f.calls["get"]++
	for _, a := range f.list {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, apperr.Remote("Not Found", 404, nil)
}

func (f *fakeAPI) Create(_ context.Context, data model.CreateAppointment) (*model.Appointment, error) {
	f.calls["create"]++
	f.lastCreate = data
	if f.createError != nil {
		return nil, f.createError
	}
	return &model.Appointment{ID: 99, PatientID: 1, DoctorID: data.DoctorID, Title: data.Title, At: data.At, DurationMinutes: data.DurationMinutes}, nil
}

func (f *fakeAPI) Update(_ context.Context, id int64, data model.UpdateAppointment) (*model.Appointment, error) {
	f.calls["update"]++
	f.lastUpdate = data
	return &model.Appointment{ID: id}, nil
}

func (f *fakeAPI) Delete(context.Context, int64) error {
	f.calls["delete"]++
	return nil
}

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "p@example.com",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("server-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func loggedIn(t *testing.T, u *model.User) session.Store {
	t.Helper()
	st := session.NewMemory()
	ctx := context.Background()
	if err := st.SetToken(ctx, token(t, now.Add(time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := st.SetUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	return st
}

func newService(api booking.AppointmentAPI, st session.Store, opts ...booking.Option) *booking.Service {
	opts = append([]booking.Option{booking.WithClock(func() time.Time { return now })}, opts...)
	return booking.New(api, st, opts...)
}

func appt(id, patientID, doctorID int64, at time.Time) model.Appointment {
	return model.Appointment{ID: id, PatientID: patientID, DoctorID: doctorID, Title: "visit", At: at, DurationMinutes: 30}
}

func TestCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		svc := newService(newFakeAPI(), session.NewMemory())
		if _, err := svc.CurrentUser(ctx); !errors.Is(err, booking.ErrNotAuthenticated) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("valid", func(t *testing.T) {
		svc := newService(newFakeAPI(), loggedIn(t, patient))
		u, err := svc.CurrentUser(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if u.ID != patient.ID || u.Role != model.RolePatient {
			t.Errorf("user: %+v", u)
		}
	})

	t.Run("expired clears session", func(t *testing.T) {
		st := session.NewMemory()
		st.SetToken(ctx, token(t, now.Add(-time.Minute)))
		st.SetUser(ctx, patient)
		svc := newService(newFakeAPI(), st)

		_, err := svc.CurrentUser(ctx)
		if !errors.Is(err, booking.ErrSessionExpired) {
			t.Fatalf("got %v", err)
		}
		if !errors.Is(err, apperr.ErrAuth) {
			t.Errorf("expected auth kind")
		}
		if tok, _ := st.Token(ctx); tok != "" {
			t.Error("expired token kept")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		svc := newService(newFakeAPI(), loggedIn(t, patient), booking.WithTokenSecret("another"))
		if _, err := svc.CurrentUser(ctx); !errors.Is(err, booking.ErrInvalidSession) {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("matching secret", func(t *testing.T) {
		svc := newService(newFakeAPI(), loggedIn(t, patient), booking.WithTokenSecret("server-secret"))
		if _, err := svc.CurrentUser(ctx); err != nil {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("opaque token without secret", func(t *testing.T) {
		st := session.NewMemory()
		st.SetToken(ctx, "opaque")
		st.SetUser(ctx, patient)
		svc := newService(newFakeAPI(), st)
		if _, err := svc.CurrentUser(ctx); err != nil {
			t.Fatalf("got %v", err)
		}
	})

	t.Run("token without user", func(t *testing.T) {
		st := session.NewMemory()
		st.SetToken(ctx, token(t, now.Add(time.Hour)))
		svc := newService(newFakeAPI(), st)
		if _, err := svc.CurrentUser(ctx); !errors.Is(err, booking.ErrNotAuthenticated) {
			t.Fatalf("got %v", err)
		}
	})
}

func TestAppointmentsByRole(t *testing.T) {
	ctx := context.Background()

	api := newFakeAPI()
	if _, err := newService(api, loggedIn(t, patient)).Appointments(ctx); err != nil {
		t.Fatal(err)
	}
	if api.calls["list"] != 1 || api.calls["listForDoctor"] != 0 {
		t.Errorf("patient calls: %v", api.calls)
	}

	api = newFakeAPI()
	if _, err := newService(api, loggedIn(t, doctor)).Appointments(ctx); err != nil {
		t.Fatal(err)
	}
	if api.calls["listForDoctor"] != 1 || api.lastDoctor != doctor.ID {
		t.Errorf("doctor calls: %v, id %d", api.calls, api.lastDoctor)
	}
}

func TestSegment(t *testing.T) {
	api := newFakeAPI(
		appt(1, 1, 2, now.Add(-48*time.Hour)),
		appt(2, 1, 2, now.Add(24*time.Hour)),
		appt(3, 1, 2, now.Add(2*time.Hour)),
		appt(4, 1, 2, now.Add(-time.Hour)),
	)
	svc := newService(api, loggedIn(t, patient))

	up, err := svc.Segment(context.Background(), scheduling.SegmentUpcoming)
	if err != nil {
		t.Fatal(err)
	}
	if len(up) != 2 || up[0].ID != 3 || up[1].ID != 2 {
		t.Errorf("upcoming: %v", ids(up))
	}

	past, err := svc.Segment(context.Background(), scheduling.SegmentPast)
	if err != nil {
		t.Fatal(err)
	}
	if len(past) != 2 || past[0].ID != 4 || past[1].ID != 1 {
		t.Errorf("past: %v", ids(past))
	}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	list := []model.Appointment{
		appt(1, 1, 2, now.Add(-time.Hour)),
		appt(2, 1, 2, now.Add(time.Hour)),
		appt(3, 1, 2, now.Add(3*time.Hour)),
		appt(4, 1, 2, now.Add(5*time.Hour)),
		appt(5, 1, 2, now.Add(7*time.Hour)),
		appt(6, 1, 2, now.Add(30*time.Hour)),
	}

	t.Run("patient sees next three", func(t *testing.T) {
		d, err := newService(newFakeAPI(list...), loggedIn(t, patient)).Dashboard(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got := ids(d.Next); len(got) != 3 || got[0] != 2 || got[2] != 4 {
			t.Errorf("next: %v", got)
		}
		if d.Upcoming != 5 || d.Past != 1 {
			t.Errorf("counts: %d upcoming, %d past", d.Upcoming, d.Past)
		}
	})

	t.Run("doctor sees today only", func(t *testing.T) {
		todayOnly := []model.Appointment{list[0], list[1], list[5]}
		d, err := newService(newFakeAPI(todayOnly...), loggedIn(t, doctor)).Dashboard(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if got := ids(d.Next); len(got) != 1 || got[0] != 2 {
			t.Errorf("today: %v", got)
		}
	})

	t.Run("doctor capped at three", func(t *testing.T) {
		d, err := newService(newFakeAPI(list...), loggedIn(t, doctor)).Dashboard(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if len(d.Next) != booking.DashboardSize {
			t.Errorf("today: %v", ids(d.Next))
		}
	})
}

func TestStatus(t *testing.T) {
	svc := newService(newFakeAPI(), session.NewMemory())
	tests := []struct {
		at   time.Time
		want scheduling.Status
	}{
		{now.Add(-time.Minute), scheduling.StatusCompleted},
		{now.Add(30 * time.Minute), scheduling.StatusImminent},
		{now.Add(2 * time.Hour), scheduling.StatusScheduled},
	}
	for _, tt := range tests {
		if got := svc.Status(appt(1, 1, 2, tt.at)); got != tt.want {
			t.Errorf("status at %v: got %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestBook(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		user      *model.User
		at        time.Time
		title     string
		wantKind  *apperr.Error
		wantCalls int
	}{
		{"ok at 61 minutes", patient, now.Add(61 * time.Minute), "checkup", nil, 1},
		{"59 minutes", patient, now.Add(59 * time.Minute), "checkup", apperr.ErrScheduling, 0},
		{"exactly 60 minutes", patient, now.Add(60 * time.Minute), "checkup", apperr.ErrScheduling, 0},
		{"beyond horizon", patient, now.Add(scheduling.BookingHorizon + time.Hour), "checkup", apperr.ErrScheduling, 0},
		{"missing title", patient, now.Add(2 * time.Hour), "", apperr.ErrValidation, 0},
		{"doctor cannot book", doctor, now.Add(2 * time.Hour), "checkup", apperr.ErrAuthorization, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			svc := newService(api, loggedIn(t, tt.user))

			_, err := svc.Book(ctx, model.CreateAppointment{DoctorID: 2, Title: tt.title, At: tt.at})
			if tt.wantKind == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantKind != nil && !errors.Is(err, tt.wantKind) {
				t.Fatalf("got %v (%v), want kind %v", err, apperr.KindOf(err), tt.wantKind.Kind)
			}
			if api.total() != tt.wantCalls {
				t.Errorf("api calls: %v", api.calls)
			}
		})
	}
}

func TestBookDefaultsDuration(t *testing.T) {
	api := newFakeAPI()
	svc := newService(api, loggedIn(t, patient))
	if _, err := svc.Book(context.Background(), model.CreateAppointment{DoctorID: 2, Title: "x", At: now.Add(2 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if api.lastCreate.DurationMinutes != model.DefaultDurationMinutes {
		t.Errorf("duration: %d", api.lastCreate.DurationMinutes)
	}
}

func TestBookInsufficientLeadTimeMessage(t *testing.T) {
	svc := newService(newFakeAPI(), loggedIn(t, patient))
	_, err := svc.Book(context.Background(), model.CreateAppointment{DoctorID: 2, Title: "x", At: now.Add(59 * time.Minute)})
	if !errors.Is(err, scheduling.ErrInsufficientLeadTime) || err.Error() != "insufficient lead time" {
		t.Fatalf("got %v", err)
	}
}

func TestBookRemoteFailurePassesThrough(t *testing.T) {
	api := newFakeAPI()
	api.createError = apperr.Remote("El médico no existe", 404, nil)
	svc := newService(api, loggedIn(t, patient))

	_, err := svc.Book(context.Background(), model.CreateAppointment{DoctorID: 2, Title: "x", At: now.Add(2 * time.Hour)})
	if !errors.Is(err, apperr.ErrRemote) || err.Error() != "El médico no existe" {
		t.Fatalf("got %v", err)
	}
}

func TestEdit(t *testing.T) {
	ctx := context.Background()
	future := appt(7, patient.ID, 2, now.Add(24*time.Hour))
	past := appt(8, patient.ID, 2, now.Add(-24*time.Hour))
	foreign := appt(9, other.ID, 2, now.Add(24*time.Hour))

	title := "follow-up"
	soon := now.Add(30 * time.Minute)
	later := now.Add(48 * time.Hour)
	zero := 0

	tests := []struct {
		name      string
		user      *model.User
		appt      model.Appointment
		upd       model.UpdateAppointment
		wantKind  *apperr.Error
		wantCalls int
	}{
		{"title only", patient, future, model.UpdateAppointment{Title: &title}, nil, 1},
		{"reschedule later", patient, future, model.UpdateAppointment{At: &later}, nil, 1},
		{"reschedule too soon", patient, future, model.UpdateAppointment{At: &soon}, apperr.ErrScheduling, 0},
		{"past appointment", patient, past, model.UpdateAppointment{Title: &title}, apperr.ErrAuthorization, 0},
		{"another patient's", patient, foreign, model.UpdateAppointment{Title: &title}, apperr.ErrAuthorization, 0},
		{"doctor", doctor, future, model.UpdateAppointment{Title: &title}, apperr.ErrAuthorization, 0},
		{"empty update", patient, future, model.UpdateAppointment{}, apperr.ErrValidation, 0},
		{"zero duration", patient, future, model.UpdateAppointment{DurationMinutes: &zero}, apperr.ErrValidation, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			svc := newService(api, loggedIn(t, tt.user))

			_, err := svc.Edit(ctx, tt.appt, tt.upd)
			if tt.wantKind == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantKind != nil && !errors.Is(err, tt.wantKind) {
				t.Fatalf("got %v (%v), want kind %v", err, apperr.KindOf(err), tt.wantKind.Kind)
			}
			if api.calls["update"] != tt.wantCalls {
				t.Errorf("update calls: %d", api.calls["update"])
			}
		})
	}
}

func TestEditPastIsAlsoSchedulingError(t *testing.T) {
	svc := newService(newFakeAPI(), loggedIn(t, patient))
	title := "x"
	_, err := svc.Edit(context.Background(), appt(8, patient.ID, 2, now.Add(-time.Hour)), model.UpdateAppointment{Title: &title})
	if !errors.Is(err, scheduling.ErrNotEligible) {
		t.Fatalf("got %v", err)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		user      *model.User
		appt      model.Appointment
		wantErr   bool
		wantCalls int
	}{
		{"own future", patient, appt(1, patient.ID, 2, now.Add(time.Hour)), false, 1},
		{"own, starting now", patient, appt(1, patient.ID, 2, now), true, 0},
		{"own past", patient, appt(1, patient.ID, 2, now.Add(-time.Hour)), true, 0},
		{"another patient's", patient, appt(1, other.ID, 2, now.Add(time.Hour)), true, 0},
		{"doctor's own schedule", doctor, appt(1, patient.ID, doctor.ID, now.Add(time.Hour)), true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeAPI()
			err := newService(api, loggedIn(t, tt.user)).Cancel(ctx, tt.appt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, apperr.ErrAuthorization) {
				t.Errorf("expected authorization error, got %v", err)
			}
			if api.calls["delete"] != tt.wantCalls {
				t.Errorf("delete calls: %d", api.calls["delete"])
			}
		})
	}
}

func TestCancelWithoutSession(t *testing.T) {
	api := newFakeAPI()
	err := newService(api, session.NewMemory()).Cancel(context.Background(), appt(1, 1, 2, now.Add(time.Hour)))
	if !errors.Is(err, apperr.ErrAuth) {
		t.Fatalf("got %v", err)
	}
	if api.total() != 0 {
		t.Errorf("api calls: %v", api.calls)
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	api := newFakeAPI(appt(1, patient.ID, 2, now.Add(time.Hour)), appt(2, other.ID, 2, now.Add(time.Hour)))
	svc := newService(api, loggedIn(t, patient))

	if _, err := svc.Get(ctx, 1); err != nil {
		t.Fatalf("own: %v", err)
	}
	if _, err := svc.Get(ctx, 2); !errors.Is(err, apperr.ErrAuthorization) {
		t.Fatalf("foreign: %v", err)
	}
	if _, err := svc.Get(ctx, 42); !errors.Is(err, apperr.ErrRemote) {
		t.Fatalf("missing: %v", err)
	}
}

func ids(list []model.Appointment) []int64 {
	out := make([]int64, len(list))
	for i, a := range list {
		out[i] = a.ID
	}
	return out
}

func TestSoonUsesClock(t *testing.T) {
	svc := newService(newFakeAPI(), session.NewMemory())
	if !svc.Soon(appt(1, 1, 2, now.Add(5*time.Hour))) {
		t.Error("later today should be soon")
	}
	if svc.Soon(appt(1, 1, 2, now.Add(48*time.Hour))) {
		t.Error("two days out should not be soon")
	}
}
