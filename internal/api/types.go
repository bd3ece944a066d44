package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/hospital-scheduling/internal/appointment"
)

type CreateAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

type RescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

type PrescriptionRequest struct {
	Medicine string `json:"medicine"`
	Quantity int    `json:"quantity"`
}

type OutcomeRequest struct {
	ServiceType       string                `json:"service_type"`
	Prescriptions     []PrescriptionRequest `json:"prescriptions"`
	ConsultationNotes string                `json:"consultation_notes"`
}

type AvailabilityRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type AppointmentResponse struct {
	ID        string                     `json:"id"`
	PatientID string                     `json:"patient_id"`
	DoctorID  string                     `json:"doctor_id"`
	Date      appointment.Date           `json:"date"`
	Time      appointment.TimeOfDay      `json:"time"`
	DateTime  time.Time                  `json:"date_time"`
	Status    string                     `json:"status"`
	Outcome   *appointment.OutcomeRecord `json:"outcome,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

type SlotResponse struct {
	ID            uuid.UUID             `json:"id"`
	DoctorID      string                `json:"doctor_id"`
	Date          appointment.Date      `json:"date"`
	Start         appointment.TimeOfDay `json:"start"`
	End           appointment.TimeOfDay `json:"end"`
	Available     bool                  `json:"available"`
	AppointmentID string                `json:"appointment_id,omitempty"`
}

type AvailabilityResponse struct {
	DoctorID  string                `json:"doctor_id"`
	Date      appointment.Date      `json:"date"`
	Start     appointment.TimeOfDay `json:"start"`
	End       appointment.TimeOfDay `json:"end"`
	UpdatedAt time.Time             `json:"updated_at"`
}

type DoctorAvailableResponse struct {
	Available bool `json:"available"`
}

type PurgeResponse struct {
	Deleted int `json:"deleted"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:        a.ID,
		PatientID: a.PatientID,
		DoctorID:  a.DoctorID,
		Date:      a.Date(),
		Time:      a.Time(),
		DateTime:  a.DateTime,
		Status:    string(a.Status),
		Outcome:   a.Outcome,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAppointmentResponses(list []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(list))
	for i := range list {
		out = append(out, toAppointmentResponse(&list[i]))
	}
	return out
}

func toSlotResponse(s *appointment.Slot) SlotResponse {
	return SlotResponse{
		ID:            s.ID,
		DoctorID:      s.DoctorID,
		Date:          s.Date,
		Start:         s.Start,
		End:           s.End,
		Available:     s.Available(),
		AppointmentID: s.BoundAppointment(),
	}
}

func toSlotResponses(list []*appointment.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSlotResponse(s))
	}
	return out
}

func toAvailabilityResponse(a *appointment.DoctorAvailability) AvailabilityResponse {
	return AvailabilityResponse{
		DoctorID:  a.DoctorID,
		Date:      a.Date,
		Start:     a.Start,
		End:       a.End,
		UpdatedAt: a.UpdatedAt,
	}
}

func toAvailabilityResponses(list []appointment.DoctorAvailability) []AvailabilityResponse {
	out := make([]AvailabilityResponse, 0, len(list))
	for i := range list {
		out = append(out, toAvailabilityResponse(&list[i]))
	}
	return out
}
