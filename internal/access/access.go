// Package access resolves what a user may do with an appointment. Decisions
// use only the canonical User and the appointment's patient_id/doctor_id,
// never the embedded display snapshots.
package access

import (
	"time"

	"appointment-client/internal/apperr"
	"appointment-client/internal/model"
	"appointment-client/internal/scheduling"
)

type Action uint8

const (
	ActionView Action = iota
	ActionCreate
	ActionEdit
	ActionCancel
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionEdit:
		return "edit"
	case ActionCancel:
		return "cancel"
	}
	return "view"
}

// Owns reports whether the appointment is in the user's own list.
func Owns(u model.User, a model.Appointment) bool {
	switch u.Role {
	case model.RolePatient:
		return a.PatientID == u.ID
	case model.RoleDoctor:
		return a.DoctorID == u.ID
	}
	return false
}

func CanView(u model.User, a model.Appointment) bool {
	return Owns(u, a)
}

func CanCreate(r model.Role) bool {
	return r == model.RolePatient
}

func CanEdit(u model.User, a model.Appointment, now time.Time) bool {
	return Authorize(u, ActionEdit, &a, now) == nil
}

func CanCancel(u model.User, a model.Appointment, now time.Time) bool {
	return Authorize(u, ActionCancel, &a, now) == nil
}

// Authorize returns an authorization error for any disallowed action. a may
// be nil only for ActionCreate.
func Authorize(u model.User, action Action, a *model.Appointment, now time.Time) error {
	switch action {
	case ActionCreate:
		if !CanCreate(u.Role) {
			return apperr.Authorization("only patients may create appointments", nil)
		}
		return nil

	case ActionView:
		if a == nil || !CanView(u, *a) {
			return apperr.Authorization("you may only view your own appointments", nil)
		}
		return nil

	case ActionEdit, ActionCancel:
		if u.Role != model.RolePatient {
			return apperr.Authorization("only patients may "+action.String()+" appointments", nil)
		}
		if a == nil || a.PatientID != u.ID {
			return apperr.Authorization("appointment belongs to another patient", nil)
		}
		if !scheduling.Eligible(*a, now) {
			return apperr.Authorization("cannot modify past appointments", scheduling.ErrNotEligible)
		}
		return nil
	}
	return apperr.Authorization("unknown action", nil)
}
