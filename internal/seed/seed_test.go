package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/hospital-scheduling/internal/appointment"
	"github.com/hackgods/hospital-scheduling/internal/directory"
	"github.com/hackgods/hospital-scheduling/internal/lock"
)

func TestDoctorsAndPatients(t *testing.T) {
	f := gofakeit.New(42)

	doctors := Doctors(f, 3)
	if len(doctors) != 3 || doctors[0].ID != "D001" || doctors[2].ID != "D003" {
		t.Fatalf("doctors = %+v", doctors)
	}
	for _, d := range doctors {
		if !d.IsDoctor() || !strings.HasPrefix(d.Name, "Dr. ") || d.Specialization == "" {
			t.Errorf("bad doctor %+v", d)
		}
	}

	patients := Patients(f, 2)
	if len(patients) != 2 || patients[0].ID != "P1001" || patients[1].ID != "P1002" {
		t.Fatalf("patients = %+v", patients)
	}
	for _, p := range patients {
		if !p.IsPatient() || p.DateOfBirth == "" || p.BloodType == "" {
			t.Errorf("bad patient %+v", p)
		}
		if _, err := appointment.ParseDate(p.DateOfBirth); err != nil {
			t.Errorf("date of birth %q: %v", p.DateOfBirth, err)
		}
	}
}

func TestAvailability(t *testing.T) {
	ctx := context.Background()
	f := gofakeit.New(7)

	dir := directory.NewMemory()
	doctors := Doctors(f, 2)
	if err := dir.Add(doctors...); err != nil {
		t.Fatalf("Add: %v", err)
	}

	now := time.Date(2030, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc := appointment.NewService(
		appointment.NewMemoryRepository(),
		appointment.NewMemoryAvailabilityStore(),
		dir,
		lock.NewLocal(),
		appointment.WithClock(func() time.Time { return now }),
		appointment.WithLocation(time.UTC),
	)

	n, err := Availability(ctx, svc, f, []string{"D001", "D002"}, 3)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if n != 6 {
		t.Fatalf("windows = %d, want 6", n)
	}

	windows, err := svc.DoctorAvailabilities(ctx, "D001")
	if err != nil {
		t.Fatalf("DoctorAvailabilities: %v", err)
	}
	tomorrow := appointment.NewDate(2030, time.March, 11)
	for i, w := range windows {
		if w.Date != tomorrow.AddDays(i) {
			t.Errorf("window %d on %s, want %s", i, w.Date, tomorrow.AddDays(i))
		}
		if w.Start < appointment.NewTimeOfDay(8, 0) || w.Start > appointment.NewTimeOfDay(11, 30) {
			t.Errorf("window %d starts at %s", i, w.Start)
		}
		if length := time.Duration(w.End - w.Start); length < 2*time.Hour || length > 6*time.Hour {
			t.Errorf("window %d lasts %s", i, length)
		}
	}
}
