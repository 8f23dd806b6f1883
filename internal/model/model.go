package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

var (
	ErrUnknownRole     = errors.New("unknown role")
	ErrMissingDatetime = errors.New("appointment_datetime is required")
)

// Role is fixed at registration and drives every authorization decision.
type Role uint8

const (
	RoleUnknown Role = iota
	RolePatient
	RoleDoctor
)

// wire values stored by the remote API
const (
	wirePatient = "paciente"
	wireDoctor  = "médico"
)

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case wirePatient, "patient":
		return RolePatient, nil
	case wireDoctor, "medico", "doctor":
		return RoleDoctor, nil
	}
	return RoleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

func (r Role) String() string {
	switch r {
	case RolePatient:
		return "patient"
	case RoleDoctor:
		return "doctor"
	}
	return "unknown"
}

func (r Role) Wire() string {
	switch r {
	case RolePatient:
		return wirePatient
	case RoleDoctor:
		return wireDoctor
	}
	return ""
}

func (r Role) MarshalJSON() ([]byte, error) {
	if r == RoleUnknown {
		return nil, ErrUnknownRole
	}
	return json.Marshal(r.Wire())
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// patient profile
	GivenNames string `json:"nombres,omitempty"`
	Surnames   string `json:"apellidos,omitempty"`
	Phone      string `json:"telefono,omitempty"`
	Address    string `json:"direccion,omitempty"`
	NationalID string `json:"documento_identidad,omitempty"`
	BirthDate  string `json:"fecha_nacimiento,omitempty"`

	// doctor profile
	Specialty     string `json:"especialidad,omitempty"`
	LicenseNumber string `json:"numero_licencia,omitempty"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u *User) UnmarshalJSON(b []byte) error {
	type Alias User
	aux := struct {
		*Alias
		CreatedAt string `json:"created_at"`
	}{Alias: (*Alias)(u)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	t, err := ParseTimestamp(aux.CreatedAt)
	if err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	u.CreatedAt = t
	return nil
}

// Participant is the denormalized user snapshot the API embeds in
// appointments. Display only: it is not a User and cannot be authorized.
type Participant struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

func (p *Participant) DisplayName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

type Appointment struct {
	ID              int64        `json:"id"`
	PatientID       int64        `json:"patient_id"`
	DoctorID        int64        `json:"doctor_id"`
	Title           string       `json:"title"`
	Description     string       `json:"description,omitempty"`
	At              time.Time    `json:"appointment_datetime"`
	DurationMinutes int          `json:"duration_minutes"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       *time.Time   `json:"updated_at,omitempty"`
	PatientInfo     *Participant `json:"patient_info,omitempty"`
	DoctorInfo      *Participant `json:"doctor_info,omitempty"`
}

func (a *Appointment) End() time.Time {
	return a.At.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

func (a *Appointment) UnmarshalJSON(b []byte) error {
	type Alias Appointment
	aux := struct {
		*Alias
		Description *string `json:"description"`
		At          string  `json:"appointment_datetime"`
		CreatedAt   string  `json:"created_at"`
		UpdatedAt   *string `json:"updated_at"`
	}{Alias: (*Alias)(a)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.Description != nil {
		a.Description = *aux.Description
	}

	if aux.At == "" {
		return ErrMissingDatetime
	}
	var err error
	if a.At, err = ParseTimestamp(aux.At); err != nil {
		return fmt.Errorf("appointment_datetime: %w", err)
	}
	if a.CreatedAt, err = ParseTimestamp(aux.CreatedAt); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	a.UpdatedAt = nil
	if aux.UpdatedAt != nil && *aux.UpdatedAt != "" {
		t, err := ParseTimestamp(*aux.UpdatedAt)
		if err != nil {
			return fmt.Errorf("updated_at: %w", err)
		}
		a.UpdatedAt = &t
	}
	return nil
}

// the API emits naive timestamps for columns without a zone; it writes them as UTC
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp accepts RFC 3339 and offset-less timestamps (read as UTC).
// An empty string yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
