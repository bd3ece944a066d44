package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hackgods/hospital-scheduling/internal/directory"
	"github.com/hackgods/hospital-scheduling/internal/lock"
)

// testNow is 08:00 on the day before testDate.
var (
	testNow  = time.Date(2030, time.March, 10, 8, 0, 0, 0, time.UTC)
	testDate = NewDate(2030, time.March, 11)
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	svc   *Service
	repo  *MemoryRepository
	avail *MemoryAvailabilityStore
	clock *fakeClock
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	dir := directory.NewMemory()
	err := dir.Add(
		directory.Person{ID: "D001", Name: "Dr. Zoe Adams", Role: directory.RoleDoctor, Specialization: "Cardiology"},
		directory.Person{ID: "D002", Name: "Dr. Ben Carter", Role: directory.RoleDoctor, Specialization: "Neurology"},
		directory.Person{ID: "P1001", Name: "Pat Doe", Role: directory.RolePatient},
		directory.Person{ID: "P1002", Name: "Sam Roe", Role: directory.RolePatient},
		directory.Person{ID: "X001", Name: "Phil Pharma", Role: directory.RolePharmacist},
	)
	if err != nil {
		t.Fatalf("seed directory: %v", err)
	}

	f := &fixture{
		repo:  NewMemoryRepository(),
		avail: NewMemoryAvailabilityStore(),
		clock: &fakeClock{t: testNow},
	}
	opts = append([]Option{WithClock(f.clock.Now), WithLocation(time.UTC)}, opts...)
	f.svc = NewService(f.repo, f.avail, dir, lock.NewLocal(), opts...)
	return f
}

func tod(t *testing.T, s string) TimeOfDay {
	t.Helper()
	v, err := ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func (f *fixture) setWindow(t *testing.T, doctorID string, date Date, start, end string) {
	t.Helper()
	if _, err := f.svc.SetAvailability(context.Background(), doctorID, date, tod(t, start), tod(t, end)); err != nil {
		t.Fatalf("SetAvailability(%s, %s, %s-%s): %v", doctorID, date, start, end, err)
	}
}

func (f *fixture) slot(t *testing.T, doctorID string, date Date, at string) *Slot {
	t.Helper()
	s, err := f.svc.SlotByDateTime(context.Background(), doctorID, date, tod(t, at))
	if err != nil {
		t.Fatalf("SlotByDateTime(%s, %s, %s): %v", doctorID, date, at, err)
	}
	return s
}

func (f *fixture) book(t *testing.T, patientID, doctorID string, date Date, at string) (*Appointment, *Slot) {
	t.Helper()
	s := f.slot(t, doctorID, date, at)
	appt, err := f.svc.ScheduleAppointment(context.Background(), patientID, doctorID, s)
	if err != nil {
		t.Fatalf("ScheduleAppointment(%s, %s, %s %s): %v", patientID, doctorID, date, at, err)
	}
	return appt, s
}

func slotStarts(slots []*Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.String())
	}
	return out
}
