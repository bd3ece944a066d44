package appointment

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

var slotNamespace = uuid.MustParse("6f1c8f0e-3b5e-4d55-9a47-1f3f4f0c2a10")

// SlotID derives a stable identifier, so regenerating a window yields the same ids.
func SlotID(doctorID string, date Date, start TimeOfDay) uuid.UUID {
	return uuid.NewSHA1(slotNamespace, []byte(doctorID+"|"+date.String()+"|"+start.String()))
}

// Slot is a bookable 30 minute unit of a doctor's window.
// The available flag and the bound appointment only change together under mu.
type Slot struct {
	ID       uuid.UUID
	DoctorID string
	Date     Date
	Start    TimeOfDay
	End      TimeOfDay

	mu            sync.Mutex
	booked        bool
	appointmentID string
}

func NewSlot(doctorID string, date Date, start TimeOfDay) *Slot {
	return &Slot{
		ID:       SlotID(doctorID, date, start),
		DoctorID: doctorID,
		Date:     date,
		Start:    start,
		End:      start.Add(SlotDuration),
	}
}

// TryBook claims the slot for appointmentID. Only one caller can win per slot.
func (s *Slot) TryBook(appointmentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.booked {
		return false
	}
	s.booked = true
	s.appointmentID = appointmentID
	return true
}

func (s *Slot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.booked = false
	s.appointmentID = ""
}

func (s *Slot) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.booked
}

// BoundAppointment returns the id of the appointment holding the slot, or "".
func (s *Slot) BoundAppointment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appointmentID
}

func (s *Slot) DateTime(loc *time.Location) time.Time {
	return s.Date.At(s.Start, loc)
}

func (s *Slot) key() slotKey {
	return slotKey{doctorID: s.DoctorID, date: s.Date, start: s.Start}
}

type slotKey struct {
	doctorID string
	date     Date
	start    TimeOfDay
}

// lockKey names the lock that serializes claims on this slot.
func (k slotKey) lockKey() string {
	return "slot:" + k.doctorID + ":" + k.date.String() + ":" + k.start.String()
}
