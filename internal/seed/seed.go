package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/hospital-scheduling/internal/appointment"
	"github.com/hackgods/hospital-scheduling/internal/directory"
)

var specializations = []string{
	"Dermatology",
	"Cardiology",
	"General Practice",
	"Orthopedics",
	"Endocrinology",
	"Neurology",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
}

var bloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// Doctors generates count doctors with ids D001, D002, ...
func Doctors(f *gofakeit.Faker, count int) []directory.Person {
	out := make([]directory.Person, 0, count)
	for i := range count {
		out = append(out, directory.Person{
			ID:             fmt.Sprintf("D%03d", i+1),
			Name:           "Dr. " + f.Name(),
			Role:           directory.RoleDoctor,
			Gender:         f.Gender(),
			Age:            f.Number(30, 65),
			Specialization: f.RandomString(specializations),
		})
	}
	return out
}

// Patients generates count patients with ids P1001, P1002, ...
func Patients(f *gofakeit.Faker, count int) []directory.Person {
	out := make([]directory.Person, 0, count)
	for i := range count {
		dob := f.DateRange(
			time.Date(1940, time.January, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2015, time.December, 31, 0, 0, 0, 0, time.UTC),
		)
		out = append(out, directory.Person{
			ID:          fmt.Sprintf("P%04d", 1001+i),
			Name:        f.Name(),
			Role:        directory.RolePatient,
			Gender:      f.Gender(),
			DateOfBirth: appointment.DateOf(dob).String(),
			BloodType:   f.RandomString(bloodTypes),
			Email:       f.Email(),
			Phone:       f.Phone(),
		})
	}
	return out
}

// Availability publishes one window per doctor per day for the next days,
// starting tomorrow. Windows start between 08:00 and 11:00 and last two to
// six hours. It returns the number of windows set.
func Availability(ctx context.Context, svc *appointment.Service, f *gofakeit.Faker, doctorIDs []string, days int) (int, error) {
	tomorrow := svc.Today().AddDays(1)

	n := 0
	for _, id := range doctorIDs {
		for d := range days {
			start := appointment.NewTimeOfDay(f.Number(8, 11), 30*f.Number(0, 1))
			end := start.Add(time.Duration(f.Number(2, 6)) * time.Hour)
			if _, err := svc.SetAvailability(ctx, id, tomorrow.AddDays(d), start, end); err != nil {
				return n, fmt.Errorf("availability for %s: %w", id, err)
			}
			n++
		}
	}
	return n, nil
}
