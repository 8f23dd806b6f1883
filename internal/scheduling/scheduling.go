// Package scheduling holds the temporal rules for appointments. Everything
// here is pure: callers pass "now" explicitly and nothing is persisted.
package scheduling

import (
	"slices"
	"time"

	"appointment-client/internal/apperr"
	"appointment-client/internal/model"
)

const (
	LeadTime       = time.Hour
	ImminentWindow = time.Hour
	SoonWindow     = 24 * time.Hour
	BookingHorizon = 90 * 24 * time.Hour
)

var (
	ErrInsufficientLeadTime = apperr.Scheduling("insufficient lead time")
	ErrBeyondHorizon        = apperr.Scheduling("appointment too far in advance")
	ErrNotEligible          = apperr.Scheduling("appointment is no longer modifiable")
)

type Status uint8

const (
	StatusScheduled Status = iota
	StatusImminent
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusImminent:
		return "imminent"
	case StatusCompleted:
		return "completed"
	}
	return "scheduled"
}

// StatusOf is derived fresh on every call; completed is the only terminal state.
func StatusOf(a model.Appointment, now time.Time) Status {
	if a.At.Before(now) {
		return StatusCompleted
	}
	if a.At.Sub(now) < ImminentWindow {
		return StatusImminent
	}
	return StatusScheduled
}

// Soon reports a not-yet-started appointment within SoonWindow of now. It is
// a display hint and overlaps StatusImminent.
func Soon(a model.Appointment, now time.Time) bool {
	d := a.At.Sub(now)
	return d >= 0 && d < SoonWindow
}

type Segment uint8

const (
	SegmentUpcoming Segment = iota
	SegmentPast
)

func (s Segment) String() string {
	if s == SegmentPast {
		return "past"
	}
	return "upcoming"
}

func ParseSegment(s string) (Segment, bool) {
	switch s {
	case "upcoming", "":
		return SegmentUpcoming, true
	case "past":
		return SegmentPast, true
	}
	return SegmentUpcoming, false
}

// Classify puts an appointment exactly at now in the upcoming segment.
func Classify(a model.Appointment, now time.Time) Segment {
	if a.At.Before(now) {
		return SegmentPast
	}
	return SegmentUpcoming
}

// Filter returns the segment's members, soonest first for upcoming and most
// recent first for past. The input is not modified.
func Filter(list []model.Appointment, seg Segment, now time.Time) []model.Appointment {
	out := make([]model.Appointment, 0, len(list))
	for _, a := range list {
		if Classify(a, now) == seg {
			out = append(out, a)
		}
	}
	if seg == SegmentPast {
		sortDesc(out)
	} else {
		sortAsc(out)
	}
	return out
}

func Upcoming(list []model.Appointment, now time.Time) []model.Appointment {
	return Filter(list, SegmentUpcoming, now)
}

func Past(list []model.Appointment, now time.Time) []model.Appointment {
	return Filter(list, SegmentPast, now)
}

func Partition(list []model.Appointment, now time.Time) (upcoming, past []model.Appointment) {
	return Upcoming(list, now), Past(list, now)
}

// TodayRemaining keeps appointments on now's calendar date (in now's
// location) that start strictly after now.
func TodayRemaining(list []model.Appointment, now time.Time) []model.Appointment {
	y, m, d := now.Date()
	out := make([]model.Appointment, 0, len(list))
	for _, a := range list {
		ay, am, ad := a.At.In(now.Location()).Date()
		if ay == y && am == m && ad == d && a.At.After(now) {
			out = append(out, a)
		}
	}
	sortAsc(out)
	return out
}

// Next returns at most n appointments strictly after now, soonest first.
func Next(list []model.Appointment, now time.Time, n int) []model.Appointment {
	out := make([]model.Appointment, 0, len(list))
	for _, a := range list {
		if a.At.After(now) {
			out = append(out, a)
		}
	}
	sortAsc(out)
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ValidateLeadTime requires the start to be strictly later than now+LeadTime.
func ValidateLeadTime(at, now time.Time) error {
	if !at.After(now.Add(LeadTime)) {
		return ErrInsufficientLeadTime
	}
	return nil
}

func ValidateHorizon(at, now time.Time) error {
	if at.After(now.Add(BookingHorizon)) {
		return ErrBeyondHorizon
	}
	return nil
}

// Eligible reports whether an appointment can still be edited or cancelled.
// Unlike Classify, an appointment exactly at now is not eligible.
func Eligible(a model.Appointment, now time.Time) bool {
	return a.At.After(now)
}

func sortAsc(list []model.Appointment) {
	slices.SortStableFunc(list, func(a, b model.Appointment) int {
		return a.At.Compare(b.At)
	})
}

func sortDesc(list []model.Appointment) {
	slices.SortStableFunc(list, func(a, b model.Appointment) int {
		return b.At.Compare(a.At)
	})
}
