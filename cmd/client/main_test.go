package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"appointment-client/internal/apperr"
	"appointment-client/internal/remote"
)

func healthServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHealthChecksInFixedOrder(t *testing.T) {
	authSrv := healthServer(t, http.StatusOK)
	apptSrv := healthServer(t, http.StatusServiceUnavailable)
	a := &app{
		auth:  remote.NewAuthClient(authSrv.URL, nil),
		appts: remote.NewAppointmentClient(apptSrv.URL, nil),
	}

	for i := 0; i < 5; i++ {
		got := a.services()
		if len(got) != 2 || got[0].name != "auth" || got[1].name != "appointments" {
			t.Fatalf("order: %+v", got)
		}
	}

	if err := a.services()[0].check(context.Background()); err != nil {
		t.Errorf("auth check: %v", err)
	}
	if err := a.health(context.Background()); !errors.Is(err, apperr.ErrRemote) {
		t.Errorf("health with one service down: %v", err)
	}
}
