package appointment

import (
	"fmt"
	"time"
)

// SlotDuration is the fixed length of every bookable slot.
const SlotDuration = 30 * time.Minute

type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusConfirmed       Status = "confirmed"
	StatusCancelled       Status = "cancelled"
	StatusCompleted       Status = "completed"
)

// Statuses lists every appointment status in lifecycle order.
var Statuses = []Status{StatusPendingApproval, StatusConfirmed, StatusCancelled, StatusCompleted}

func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, s)
}

type PrescriptionStatus string

const (
	PrescriptionPending   PrescriptionStatus = "pending"
	PrescriptionDispensed PrescriptionStatus = "dispensed"
	PrescriptionCancelled PrescriptionStatus = "cancelled"
)

// Prescription is owned by the pharmacy side; scheduling only sets Status.
type Prescription struct {
	Medicine string             `json:"medicine"`
	Quantity int                `json:"quantity"`
	Status   PrescriptionStatus `json:"status"`
}

// OutcomeRecord is attached exactly once, together with the move to completed.
type OutcomeRecord struct {
	AppointmentDate   Date           `json:"appointment_date"`
	ServiceType       string         `json:"service_type"`
	Prescriptions     []Prescription `json:"prescriptions"`
	ConsultationNotes string         `json:"consultation_notes"`
}

type Appointment struct {
	ID        string
	PatientID string
	DoctorID  string
	DateTime  time.Time
	Status    Status
	Outcome   *OutcomeRecord
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Date returns the calendar day of the appointment in its own location.
func (a *Appointment) Date() Date {
	return DateOf(a.DateTime)
}

func (a *Appointment) Time() TimeOfDay {
	return ClockOf(a.DateTime)
}

func (a *Appointment) HasValidOutcome() bool {
	return a.Outcome != nil && a.Status == StatusCompleted
}

// clone returns a deep copy so callers never share mutable state with a store.
func (a *Appointment) clone() *Appointment {
	c := *a
	if a.Outcome != nil {
		o := *a.Outcome
		o.Prescriptions = append([]Prescription(nil), a.Outcome.Prescriptions...)
		c.Outcome = &o
	}
	return &c
}

// DoctorAvailability is the single bookable window a doctor publishes for one date.
type DoctorAvailability struct {
	DoctorID  string
	Date      Date
	Start     TimeOfDay
	End       TimeOfDay
	UpdatedAt time.Time
}

// Covers reports whether a slot starting at t fits inside the window.
func (a *DoctorAvailability) Covers(t TimeOfDay) bool {
	return t >= a.Start && t.Add(SlotDuration) <= a.End
}

const DateLayout = "2006-01-02"

// Date is a calendar day without a time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q", ErrInvalidArgument, s)
	}
	return DateOf(t), nil
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At combines d with a wall-clock time in loc.
func (d Date) At(t TimeOfDay, loc *time.Location) time.Time {
	h, m, s, ns := t.parts()
	return time.Date(d.Year, d.Month, d.Day, h, m, s, ns, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

func (d Date) Before(o Date) bool {
	return d.compare(o) < 0
}

func (d Date) After(o Date) bool {
	return d.compare(o) > 0
}

func (d Date) compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return d.Year - o.Year
	case d.Month != o.Month:
		return int(d.Month) - int(o.Month)
	default:
		return d.Day - o.Day
	}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

const TimeOfDayLayout = "15:04"

// TimeOfDay is a wall-clock offset from midnight.
type TimeOfDay time.Duration

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func ClockOf(t time.Time) TimeOfDay {
	h, m, s := t.Clock()
	return TimeOfDay(time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond()))
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid time %q", ErrInvalidArgument, s)
	}
	return ClockOf(t), nil
}

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && time.Duration(t) < 24*time.Hour
}

func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d)
}

// Ceil rounds t up to the next multiple of d counted from midnight.
func (t TimeOfDay) Ceil(d time.Duration) TimeOfDay {
	r := time.Duration(t) % d
	if r == 0 {
		return t
	}
	return t + TimeOfDay(d-r)
}

func (t TimeOfDay) parts() (h, m, s, ns int) {
	d := time.Duration(t)
	h = int(d / time.Hour)
	d -= time.Duration(h) * time.Hour
	m = int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s = int(d / time.Second)
	d -= time.Duration(s) * time.Second
	return h, m, s, int(d)
}

func (t TimeOfDay) String() string {
	h, m, _, _ := t.parts()
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
