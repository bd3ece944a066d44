package appointment

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{"2030-03-11", NewDate(2030, time.March, 11), false},
		{"2024-02-29", NewDate(2024, time.February, 29), false},
		{"2023-02-29", Date{}, true},
		{"11/03/2030", Date{}, true},
		{"", Date{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("err = %v, want invalid argument", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseDate(%q) = %v, %v", tt.in, got, err)
			}
			if got.String() != tt.in {
				t.Fatalf("String() = %q, want %q", got.String(), tt.in)
			}
		})
	}
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{"09:00", NewTimeOfDay(9, 0), false},
		{"23:30", NewTimeOfDay(23, 30), false},
		{"00:00", 0, false},
		{"24:00", 0, true},
		{"9am", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseTimeOfDay(%q) = %v, %v", tt.in, got, err)
			}
		})
	}
}

func TestTimeOfDay_Ceil(t *testing.T) {
	tests := []struct {
		in   TimeOfDay
		want TimeOfDay
	}{
		{NewTimeOfDay(8, 0), NewTimeOfDay(8, 0)},
		{NewTimeOfDay(8, 1), NewTimeOfDay(8, 30)},
		{NewTimeOfDay(8, 29), NewTimeOfDay(8, 30)},
		{NewTimeOfDay(8, 30).Add(time.Nanosecond), NewTimeOfDay(9, 0)},
		{NewTimeOfDay(23, 45), NewTimeOfDay(24, 0)},
	}

	for _, tt := range tests {
		if got := tt.in.Ceil(SlotDuration); got != tt.want {
			t.Errorf("Ceil(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestDate_Arithmetic(t *testing.T) {
	d := NewDate(2030, time.December, 31)
	if got := d.AddDays(1); got != NewDate(2031, time.January, 1) {
		t.Fatalf("AddDays(1) = %s", got)
	}
	if !d.Before(d.AddDays(1)) || !d.AddDays(1).After(d) || d.Before(d) {
		t.Fatal("ordering is wrong")
	}

	loc := time.FixedZone("UTC+3", 3*3600)
	at := d.At(NewTimeOfDay(9, 30), loc)
	if at.Location() != loc || at.Hour() != 9 || at.Minute() != 30 || DateOf(at) != d {
		t.Fatalf("At = %s", at)
	}
}

func TestDoctorAvailability_Covers(t *testing.T) {
	w := &DoctorAvailability{Start: NewTimeOfDay(9, 0), End: NewTimeOfDay(10, 0)}

	tests := []struct {
		at   TimeOfDay
		want bool
	}{
		{NewTimeOfDay(8, 30), false},
		{NewTimeOfDay(9, 0), true},
		{NewTimeOfDay(9, 30), true},
		{NewTimeOfDay(9, 31), false},
		{NewTimeOfDay(10, 0), false},
	}

	for _, tt := range tests {
		if got := w.Covers(tt.at); got != tt.want {
			t.Errorf("Covers(%s) = %v, want %v", tt.at, got, tt.want)
		}
	}
}
