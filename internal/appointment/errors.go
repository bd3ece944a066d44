package appointment

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error returned by this package matches exactly one of
// them with errors.Is.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrSlotUnavailable   = errors.New("slot unavailable")
	ErrInvalidState      = errors.New("invalid state")
)

var (
	ErrAppointmentNotFound  = fmt.Errorf("appointment %w", ErrNotFound)
	ErrAvailabilityNotFound = fmt.Errorf("availability %w", ErrNotFound)
	ErrSlotNotFound         = fmt.Errorf("slot %w", ErrNotFound)
	ErrDoctorNotFound       = fmt.Errorf("doctor %w", ErrNotFound)
	ErrPatientNotFound      = fmt.Errorf("patient %w", ErrNotFound)

	ErrInvalidTimeRange = fmt.Errorf("%w: end time must be after start time", ErrInvalidArgument)
	ErrPastDate         = fmt.Errorf("%w: date is in the past", ErrInvalidArgument)
	ErrPastStartTime    = fmt.Errorf("%w: start time is in the past", ErrInvalidArgument)
	ErrDuplicateID      = fmt.Errorf("%w: appointment id already exists", ErrInvalidArgument)

	ErrSlotAlreadyBooked = fmt.Errorf("%w: slot already has an active appointment", ErrSlotUnavailable)
	ErrSlotOutsideWindow = fmt.Errorf("%w: slot is outside the doctor's availability", ErrSlotUnavailable)

	ErrNotConfirmed    = fmt.Errorf("%w: outcome can only be recorded for a confirmed appointment", ErrInvalidState)
	ErrOutcomeRequired = fmt.Errorf("%w: completion requires an outcome record", ErrInvalidState)
)
