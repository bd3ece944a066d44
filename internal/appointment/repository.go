package appointment

import (
	"context"
	"time"
)

// Filter narrows ListAppointments. Zero fields do not filter.
type Filter struct {
	DoctorID  string
	PatientID string
	Statuses  []Status
	// Inclusive calendar range on the appointment date.
	From Date
	To   Date
	// Exclusive bounds on the appointment instant.
	After  time.Time
	Before time.Time
}

func (f Filter) match(a *Appointment) bool {
	if f.DoctorID != "" && a.DoctorID != f.DoctorID {
		return false
	}
	if f.PatientID != "" && a.PatientID != f.PatientID {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
		return false
	}
	d := a.Date()
	if !f.From.IsZero() && d.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && d.After(f.To) {
		return false
	}
	if !f.After.IsZero() && !a.DateTime.After(f.After) {
		return false
	}
	if !f.Before.IsZero() && !a.DateTime.Before(f.Before) {
		return false
	}
	return true
}

func containsStatus(list []Status, s Status) bool {
	for _, st := range list {
		if st == s {
			return true
		}
	}
	return false
}

// Repository persists appointments. Implementations return copies; mutating a
// returned value never changes stored state.
type Repository interface {
	// NextAppointmentID reserves an unused id of the form A00001.
	NextAppointmentID(ctx context.Context) (string, error)

	// CreateAppointment stores a new record, assigning an id when a.ID is empty.
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id string) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)

	// ListAppointments returns matches ordered by DateTime ascending.
	ListAppointments(ctx context.Context, f Filter) ([]Appointment, error)

	// DeleteCancelledBefore removes cancelled appointments dated before cutoff.
	DeleteCancelledBefore(ctx context.Context, cutoff Date) (int, error)
}
