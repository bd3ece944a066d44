package appointment

import (
	"context"
	"errors"
	"testing"
	"time"
)

func ids(appts []Appointment) []string {
	out := make([]string, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.ID)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// queryFixture books four appointments for D001 across two days and leaves
// them in every status.
func queryFixture(t *testing.T) (*fixture, map[Status]string) {
	t.Helper()
	ctx := context.Background()
	f := newFixture(t)
	f.setWindow(t, "D001", testDate, "09:00", "11:00")
	f.setWindow(t, "D001", testDate.AddDays(1), "09:00", "11:00")

	pending, _ := f.book(t, "P1001", "D001", testDate.AddDays(1), "10:00")
	confirmed, _ := f.book(t, "P1001", "D001", testDate, "10:00")
	completed, _ := f.book(t, "P1001", "D001", testDate, "09:00")
	cancelled, _ := f.book(t, "P1002", "D001", testDate, "09:30")

	for _, id := range []string{confirmed.ID, completed.ID} {
		if _, err := f.svc.ConfirmAppointment(ctx, id); err != nil {
			t.Fatalf("confirm %s: %v", id, err)
		}
	}
	if _, err := f.svc.RecordAppointmentOutcome(ctx, completed.ID, "Checkup", nil, "fine"); err != nil {
		t.Fatalf("outcome: %v", err)
	}
	if _, err := f.svc.CancelAppointment(ctx, cancelled.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	return f, map[Status]string{
		StatusPendingApproval: pending.ID,
		StatusConfirmed:       confirmed.ID,
		StatusCompleted:       completed.ID,
		StatusCancelled:       cancelled.ID,
	}
}

func TestQueries(t *testing.T) {
	ctx := context.Background()
	f, byStatus := queryFixture(t)
	pending := byStatus[StatusPendingApproval]
	confirmed := byStatus[StatusConfirmed]
	completed := byStatus[StatusCompleted]
	cancelled := byStatus[StatusCancelled]

	tests := []struct {
		name string
		run  func() ([]Appointment, error)
		want []string
	}{
		{"all", func() ([]Appointment, error) { return f.svc.AllAppointments(ctx) }, []string{completed, cancelled, confirmed, pending}},
		{"for patient", func() ([]Appointment, error) { return f.svc.AppointmentsForPatient(ctx, "P1002") }, []string{cancelled}},
		{"by status", func() ([]Appointment, error) { return f.svc.AppointmentsByStatus(ctx, StatusConfirmed) }, []string{confirmed}},
		{"by date", func() ([]Appointment, error) { return f.svc.AppointmentsByDate(ctx, testDate.AddDays(1)) }, []string{pending}},
		{"by range", func() ([]Appointment, error) {
			return f.svc.AppointmentsByDateRange(ctx, testDate, testDate.AddDays(1))
		}, []string{completed, cancelled, confirmed, pending}},
		{"upcoming for doctor", func() ([]Appointment, error) { return f.svc.UpcomingForDoctor(ctx, "D001") }, []string{confirmed, pending}},
		{"pending for doctor", func() ([]Appointment, error) { return f.svc.PendingForDoctor(ctx, "D001") }, []string{pending}},
		{"confirmed for doctor", func() ([]Appointment, error) { return f.svc.ConfirmedForDoctor(ctx, "D001") }, []string{confirmed}},
		{"scheduled for patient", func() ([]Appointment, error) { return f.svc.ScheduledForPatient(ctx, "P1001") }, []string{completed, confirmed, pending}},
		{"past for doctor", func() ([]Appointment, error) { return f.svc.PastAppointmentsForDoctor(ctx, "D001") }, []string{completed}},
		{"past for other patient", func() ([]Appointment, error) { return f.svc.PastRecordsForPatient(ctx, "P1002") }, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.run()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !equalIDs(ids(got), tt.want) {
				t.Fatalf("got %v, want %v", ids(got), tt.want)
			}
		})
	}
}

func TestPastRecords_NewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.setWindow(t, "D001", testDate, "09:00", "10:00")
	f.setWindow(t, "D001", testDate.AddDays(1), "09:00", "10:00")

	var done []string
	for _, d := range []Date{testDate, testDate.AddDays(1)} {
		a, _ := f.book(t, "P1001", "D001", d, "09:00")
		if _, err := f.svc.ConfirmAppointment(ctx, a.ID); err != nil {
			t.Fatalf("confirm: %v", err)
		}
		if _, err := f.svc.RecordAppointmentOutcome(ctx, a.ID, "Checkup", nil, ""); err != nil {
			t.Fatalf("outcome: %v", err)
		}
		done = append(done, a.ID)
	}

	got, err := f.svc.PastRecordsForPatient(ctx, "P1001")
	if err != nil {
		t.Fatalf("PastRecordsForPatient: %v", err)
	}
	if want := []string{done[1], done[0]}; !equalIDs(ids(got), want) {
		t.Fatalf("got %v, want %v", ids(got), want)
	}
}

func TestNextAppointment(t *testing.T) {
	ctx := context.Background()
	f, byStatus := queryFixture(t)

	next, err := f.svc.NextAppointmentForPatient(ctx, "P1001")
	if err != nil {
		t.Fatalf("NextAppointmentForPatient: %v", err)
	}
	if next.ID != byStatus[StatusConfirmed] {
		t.Fatalf("next = %s, want %s", next.ID, byStatus[StatusConfirmed])
	}

	if _, err := f.svc.NextAppointmentForPatient(ctx, "P1002"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("patient without confirmed appointments err = %v", err)
	}

	// once the confirmed appointment is in the past nothing is next
	f.clock.Set(testDate.At(NewTimeOfDay(10, 30), time.UTC))
	if _, err := f.svc.NextAppointmentForDoctor(ctx, "D001"); !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestStatusCountsForDoctor(t *testing.T) {
	ctx := context.Background()
	f, _ := queryFixture(t)

	counts, err := f.svc.StatusCountsForDoctor(ctx, "D001")
	if err != nil {
		t.Fatalf("StatusCountsForDoctor: %v", err)
	}
	for _, st := range Statuses {
		if counts[st] != 1 {
			t.Errorf("%s = %d, want 1", st, counts[st])
		}
	}

	empty, err := f.svc.StatusCountsForDoctor(ctx, "D002")
	if err != nil {
		t.Fatalf("StatusCountsForDoctor: %v", err)
	}
	if len(empty) != len(Statuses) {
		t.Fatalf("every status must be present, got %v", empty)
	}
}

func TestQueries_InvalidArguments(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.AppointmentsByDateRange(ctx, testDate, testDate.AddDays(-1)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("reversed range err = %v", err)
	}
	if _, err := f.svc.AppointmentsByStatus(ctx, Status("archived")); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("unknown status err = %v", err)
	}
	if _, err := f.svc.GetAppointment(ctx, ""); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("empty id err = %v", err)
	}
}
