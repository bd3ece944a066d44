package appointment

import (
	"context"
	"fmt"
	"slices"
)

func (s *Service) GetAppointment(ctx context.Context, id string) (*Appointment, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: appointment id is required", ErrInvalidArgument)
	}
	return s.repo.GetAppointmentByID(ctx, id)
}

func (s *Service) AllAppointments(ctx context.Context) ([]Appointment, error) {
	return s.repo.ListAppointments(ctx, Filter{})
}

func (s *Service) AppointmentsForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return s.repo.ListAppointments(ctx, Filter{DoctorID: doctorID})
}

func (s *Service) AppointmentsForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.repo.ListAppointments(ctx, Filter{PatientID: patientID})
}

func (s *Service) AppointmentsByStatus(ctx context.Context, status Status) ([]Appointment, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return nil, err
	}
	return s.repo.ListAppointments(ctx, Filter{Statuses: []Status{status}})
}

func (s *Service) AppointmentsByDate(ctx context.Context, date Date) ([]Appointment, error) {
	return s.AppointmentsByDateRange(ctx, date, date)
}

// AppointmentsByDateRange lists appointments dated from..to, both inclusive.
func (s *Service) AppointmentsByDateRange(ctx context.Context, from, to Date) ([]Appointment, error) {
	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: date range is required", ErrInvalidArgument)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range ends before it starts", ErrInvalidArgument)
	}
	return s.repo.ListAppointments(ctx, Filter{From: from, To: to})
}

// UpcomingForDoctor lists future appointments that are pending or confirmed.
func (s *Service) UpcomingForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return s.repo.ListAppointments(ctx, Filter{
		DoctorID: doctorID,
		Statuses: []Status{StatusPendingApproval, StatusConfirmed},
		After:    s.Now(),
	})
}

func (s *Service) PendingForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return s.repo.ListAppointments(ctx, Filter{DoctorID: doctorID, Statuses: []Status{StatusPendingApproval}})
}

func (s *Service) ConfirmedForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return s.repo.ListAppointments(ctx, Filter{DoctorID: doctorID, Statuses: []Status{StatusConfirmed}})
}

// ScheduledForPatient lists future appointments that are not cancelled.
func (s *Service) ScheduledForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.repo.ListAppointments(ctx, Filter{
		PatientID: patientID,
		Statuses:  activeStatuses,
		After:     s.Now(),
	})
}

// PastRecordsForPatient lists completed appointments with an outcome, newest first.
func (s *Service) PastRecordsForPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	return s.completedNewestFirst(ctx, Filter{PatientID: patientID, Statuses: []Status{StatusCompleted}})
}

// PastAppointmentsForDoctor lists completed appointments with an outcome, newest first.
func (s *Service) PastAppointmentsForDoctor(ctx context.Context, doctorID string) ([]Appointment, error) {
	return s.completedNewestFirst(ctx, Filter{DoctorID: doctorID, Statuses: []Status{StatusCompleted}})
}

func (s *Service) completedNewestFirst(ctx context.Context, f Filter) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, err
	}
	appts = slices.DeleteFunc(appts, func(a Appointment) bool { return !a.HasValidOutcome() })
	slices.Reverse(appts)
	return appts, nil
}

// NextAppointmentForPatient returns the earliest future confirmed appointment.
func (s *Service) NextAppointmentForPatient(ctx context.Context, patientID string) (*Appointment, error) {
	return s.firstConfirmed(ctx, Filter{PatientID: patientID})
}

// NextAppointmentForDoctor returns the earliest future confirmed appointment.
func (s *Service) NextAppointmentForDoctor(ctx context.Context, doctorID string) (*Appointment, error) {
	return s.firstConfirmed(ctx, Filter{DoctorID: doctorID})
}

func (s *Service) firstConfirmed(ctx context.Context, f Filter) (*Appointment, error) {
	f.Statuses = []Status{StatusConfirmed}
	f.After = s.Now()
	appts, err := s.repo.ListAppointments(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return nil, ErrAppointmentNotFound
	}
	return &appts[0], nil
}

// StatusCountsForDoctor counts the doctor's appointments per status. Every
// status is present in the result.
func (s *Service) StatusCountsForDoctor(ctx context.Context, doctorID string) (map[Status]int, error) {
	appts, err := s.repo.ListAppointments(ctx, Filter{DoctorID: doctorID})
	if err != nil {
		return nil, err
	}
	counts := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		counts[st] = 0
	}
	for _, a := range appts {
		counts[a.Status]++
	}
	return counts, nil
}
