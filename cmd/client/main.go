package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"appointment-client/internal/apperr"
	"appointment-client/internal/booking"
	"appointment-client/internal/config"
	"appointment-client/internal/logger"
	"appointment-client/internal/model"
	"appointment-client/internal/remote"
	"appointment-client/internal/scheduling"
	"appointment-client/internal/session"
)

const usage = `usage: client <command> [flags]

commands:
  health                      check both services
  register                    create an account
  login                       start a session
  me                          refresh and show the current user
  dashboard                   next appointments at a glance
  list [upcoming|past]        list your appointments
  show -id N                  show one appointment
  book                        book an appointment (patients)
  edit -id N                  change an appointment (patients)
  cancel -id N                cancel an appointment (patients)
  logout                      end the session
`

type app struct {
	cfg      *config.Config
	log      *zap.Logger
	sessions session.Store
	auth     *remote.AuthClient
	appts    *remote.AppointmentClient
	svc      *booking.Service
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg := config.Load()
	zl, err := logger.New(cfg.LogLevel, cfg.Env, cfg.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zl.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions, err := openSessions(ctx, cfg)
	if err != nil {
		log.Fatalf("session: %v", err)
	}
	defer sessions.Close()

	opts := []remote.Option{
		remote.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
		remote.WithRateLimit(cfg.RequestsPerSecond, cfg.RequestBurst),
		remote.WithLogger(zl),
	}
	if cfg.StrictLists {
		opts = append(opts, remote.WithStrictLists())
	}

	a := &app{
		cfg:      cfg,
		log:      zl,
		sessions: sessions,
		auth:     remote.NewAuthClient(cfg.AuthURL, sessions, opts...),
		appts:    remote.NewAppointmentClient(cfg.AppointmentsURL, sessions, opts...),
	}
	a.svc = booking.New(a.appts, sessions,
		booking.WithLogger(zl),
		booking.WithTokenSecret(cfg.JWTSecret),
	)

	if err := a.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		zl.Debug("command failed", zap.String("command", os.Args[1]), zap.String("error", apperr.Diagnostic(err)))
		color.Red("%s", apperr.Message(err))
		sessions.Close()
		zl.Sync()
		os.Exit(1)
	}
}

func openSessions(ctx context.Context, cfg *config.Config) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendBolt:
		return session.NewBolt(cfg.SessionPath), nil
	case config.BackendMemory:
		return session.NewMemory(), nil
	case config.BackendRedis:
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		return session.NewRedis(rdb, cfg.RedisPrefix), nil
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return session.NewPostgres(pool), nil
	}
	return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "health":
		return a.health(ctx)
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "me":
		return a.me(ctx)
	case "dashboard":
		return a.dashboard(ctx)
	case "list":
		return a.list(ctx, args)
	case "show":
		return a.show(ctx, args)
	case "book":
		return a.book(ctx, args)
	case "edit":
		return a.edit(ctx, args)
	case "cancel":
		return a.cancel(ctx, args)
	case "logout":
		if err := a.auth.Logout(ctx); err != nil {
			return err
		}
		color.Green("Logged out.")
		return nil
	case "help", "-h", "--help":
		fmt.Print(usage)
		return nil
	}
	fmt.Fprint(os.Stderr, usage)
	return apperr.Validation(fmt.Errorf("unknown command %q", cmd))
}

type serviceCheck struct {
	name  string
	check func(context.Context) error
}

// services lists the remote services in the order health reports them.
func (a *app) services() []serviceCheck {
	return []serviceCheck{
		{"auth", a.auth.Health},
		{"appointments", a.appts.Health},
	}
}

func (a *app) health(ctx context.Context) error {
	failed := false
	for _, s := range a.services() {
		if err := s.check(ctx); err != nil {
			failed = true
			color.Red("%-13s down: %s", s.name, apperr.Message(err))
			continue
		}
		color.Green("%-13s up", s.name)
	}
	if failed {
		return apperr.Remote("one or more services are unavailable", 0, nil)
	}
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (min 6 characters)")
	first := fs.String("first", "", "first name")
	last := fs.String("last", "", "last name")
	role := fs.String("role", "patient", "patient or doctor")
	phone := fs.String("phone", "", "phone number")
	address := fs.String("address", "", "address")
	nationalID := fs.String("id-number", "", "identity document number")
	birth := fs.String("birth-date", "", "birth date (YYYY-MM-DD)")
	specialty := fs.String("specialty", "", "specialty (doctors)")
	license := fs.String("license", "", "license number (doctors)")
	if err := fs.Parse(args); err != nil {
		return apperr.Validation(err)
	}

	r, err := model.ParseRole(*role)
	if err != nil {
		return apperr.Validation(errors.New("role must be patient or doctor"))
	}

	res := a.auth.Register(ctx, model.RegisterRequest{
		Email:         *email,
		Password:      *password,
		FirstName:     *first,
		LastName:      *last,
		Role:          r,
		GivenNames:    *first,
		Surnames:      *last,
		Phone:         *phone,
		Address:       *address,
		NationalID:    *nationalID,
		BirthDate:     *birth,
		Specialty:     *specialty,
		LicenseNumber: *license,
	})
	if !res.Success {
		color.Red("%s", res.Message)
		return nil
	}
	color.Green("%s. You can now log in.", capitalize(res.Message))
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return apperr.Validation(err)
	}

	resp, err := a.auth.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	color.Green("Welcome, %s (%s).", resp.User.FullName(), resp.User.Role)
	return nil
}

func (a *app) me(ctx context.Context) error {
	if _, err := a.svc.CurrentUser(ctx); err != nil {
		return err
	}
	u, err := a.auth.Me(ctx)
	if err != nil {
		return err
	}
	color.Cyan("%s\n", u.FullName())
	fmt.Printf("  email:  %s\n  role:   %s\n", u.Email, u.Role)
	if u.Role == model.RoleDoctor && u.Specialty != "" {
		fmt.Printf("  specialty: %s\n", u.Specialty)
	}
	if !u.CreatedAt.IsZero() {
		fmt.Printf("  member since: %s\n", u.CreatedAt.Format("2006-01-02"))
	}
	return nil
}

func (a *app) dashboard(ctx context.Context) error {
	d, err := a.svc.Dashboard(ctx)
	if err != nil {
		return err
	}
	color.Cyan("Hello, %s\n", d.User.FullName())
	fmt.Printf("%d upcoming, %d past\n\n", d.Upcoming, d.Past)
	if d.User.Role == model.RoleDoctor {
		color.Yellow("Remaining today:")
	} else {
		color.Yellow("Next appointments:")
	}
	if len(d.Next) == 0 {
		fmt.Println("  nothing scheduled")
		return nil
	}
	for _, ap := range d.Next {
		a.printRow(ap, d.User.Role)
	}
	return nil
}

func (a *app) list(ctx context.Context, args []string) error {
	seg := scheduling.SegmentUpcoming
	if len(args) > 0 {
		var ok bool
		if seg, ok = scheduling.ParseSegment(args[0]); !ok {
			return apperr.Validation(fmt.Errorf("unknown segment %q, use upcoming or past", args[0]))
		}
	}
	u, err := a.svc.CurrentUser(ctx)
	if err != nil {
		return err
	}
	list, err := a.svc.Segment(ctx, seg)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Printf("No %s appointments.\n", seg)
		return nil
	}
	for _, ap := range list {
		a.printRow(ap, u.Role)
	}
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	id := fs.Int64("id", 0, "appointment id")
	if err := fs.Parse(args); err != nil {
		return apperr.Validation(err)
	}
	ap, err := a.svc.Get(ctx, *id)
	if err != nil {
		return err
	}
	color.Cyan("#%d %s\n", ap.ID, ap.Title)
	fmt.Printf("  when:     %s (%d min)\n", ap.At.Local().Format("Mon 02 Jan 2006 15:04"), ap.DurationMinutes)
	fmt.Printf("  status:   %s\n", a.svc.Status(*ap))
	fmt.Printf("  patient:  %s\n", ap.PatientInfo.DisplayName())
	fmt.Printf("  doctor:   %s\n", ap.DoctorInfo.DisplayName())
	if ap.Description != "" {
		fmt.Printf("  notes:    %s\n", ap.Description)
	}
	return nil
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ContinueOnError)
	doctor := fs.Int64("doctor", 0, "doctor id")
	title := fs.String("title", "", "reason for the visit")
	desc := fs.String("desc", "", "notes")
	at := fs.String("at", "", "start time, RFC 3339 or \"YYYY-MM-DD HH:MM\" local")
	dur := fs.Int("duration", model.DefaultDurationMinutes, "duration in minutes")
	if err := fs.Parse(args); err != nil {
		return apperr.Validation(err)
	}
	when, err := parseWhen(*at)
	if err != nil {
		return err
	}

	ap, err := a.svc.Book(ctx, model.CreateAppointment{
		DoctorID:        *doctor,
		Title:           *title,
		Description:     *desc,
		At:              when,
		DurationMinutes: *dur,
	})
	if err != nil {
		return err
	}
	color.Green("Booked #%d on %s.", ap.ID, ap.At.Local().Format("Mon 02 Jan 15:04"))
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	id := fs.Int64("id", 0, "appointment id")
	doctor := fs.Int64("doctor", 0, "new doctor id")
	title := fs.String("title", "", "new title")
	desc := fs.String("desc", "", "new notes")
	at := fs.String("at", "", "new start time")
	dur := fs.Int("duration", 0, "new duration in minutes")
	if err := fs.Parse(args); err != nil {
		return apperr.Validation(err)
	}

	var upd model.UpdateAppointment
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "doctor":
			upd.DoctorID = doctor
		case "title":
			upd.Title = title
		case "desc":
			upd.Description = desc
		case "duration":
			upd.DurationMinutes = dur
		}
	})
	if *at != "" {
		when, err := parseWhen(*at)
		if err != nil {
			return err
		}
		upd.At = &when
	}

	current, err := a.svc.Get(ctx, *id)
	if err != nil {
		return err
	}
	if _, err := a.svc.Edit(ctx, *current, upd); err != nil {
		return err
	}
	color.Green("Appointment #%d updated.", *id)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ContinueOnError)
	id := fs.Int64("id", 0, "appointment id")
	if err := fs.Parse(args); err != nil {
		return apperr.Validation(err)
	}
	current, err := a.svc.Get(ctx, *id)
	if err != nil {
		return err
	}
	if err := a.svc.Cancel(ctx, *current); err != nil {
		return err
	}
	color.Green("Appointment #%d cancelled.", *id)
	return nil
}

func (a *app) printRow(ap model.Appointment, role model.Role) {
	who := ap.DoctorInfo.DisplayName()
	if role == model.RoleDoctor {
		who = ap.PatientInfo.DisplayName()
	}
	line := fmt.Sprintf("  #%-5d %s  %-28s %s", ap.ID, ap.At.Local().Format("Mon 02 Jan 15:04"), ap.Title, who)
	switch {
	case a.svc.Status(ap) == scheduling.StatusCompleted:
		color.HiBlack("%s", line)
	case a.svc.Status(ap) == scheduling.StatusImminent:
		color.Red("%s  (within the hour)", line)
	case a.svc.Soon(ap):
		color.Yellow("%s  (today)", line)
	default:
		fmt.Println(line)
	}
}

func parseWhen(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, apperr.Validation(errors.New("appointment date is required"))
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local)
	if err != nil {
		return time.Time{}, apperr.Validation(fmt.Errorf("cannot read date %q", s))
	}
	return t, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
