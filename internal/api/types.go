package api

import (
	"time"

	"github.com/medapp/scheduler/internal/scheduling"
)

type CreateAppointmentRequest struct {
	PatientID string `json:"patient_id"`
	SlotID    string `json:"slot_id"`
}

type PatientResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	NationalID  string `json:"national_id"`
	PhoneNumber string `json:"phone_number"`
	Email       string `json:"email"`
}

type SlotResponse struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	IsBooked  bool      `json:"is_booked"`
}

type ProfessionalResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

// SpecializationSlotResponse is one row of a specialization-wide search:
// the open slot plus the professional offering it.
type SpecializationSlotResponse struct {
	SlotResponse
	Professional ProfessionalResponse `json:"professional"`
}

type PatientSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NationalID string `json:"national_id"`
}

type SlotSummary struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type ProfessionalSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Specialization string `json:"specialization"`
}

// AppointmentResponse is the composed view returned after a booking.
type AppointmentResponse struct {
	ID           string              `json:"id"`
	Patient      PatientSummary      `json:"patient"`
	Slot         SlotSummary         `json:"slot"`
	Professional ProfessionalSummary `json:"professional"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func newPatientResponse(p *scheduling.Patient) PatientResponse {
	return PatientResponse{
		ID:          p.ID.Hex(),
		Name:        p.Name,
		NationalID:  p.NationalID,
		PhoneNumber: p.PhoneNumber,
		Email:       p.Email,
	}
}

func newSlotResponse(s scheduling.Slot) SlotResponse {
	return SlotResponse{
		ID:        s.ID.Hex(),
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
		IsBooked:  s.IsBooked,
	}
}

func newSlotResponses(slots []scheduling.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, newSlotResponse(s))
	}
	return out
}

func newSpecializationSlotResponses(pairs []scheduling.SlotWithProfessional) []SpecializationSlotResponse {
	out := make([]SpecializationSlotResponse, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, SpecializationSlotResponse{
			SlotResponse: newSlotResponse(p.Slot),
			Professional: ProfessionalResponse{
				ID:             p.Professional.ID.Hex(),
				Name:           p.Professional.Name,
				Specialization: p.Professional.Specialization.String(),
			},
		})
	}
	return out
}

func newAppointmentResponse(d *scheduling.AppointmentDetail) AppointmentResponse {
	return AppointmentResponse{
		ID: d.Appointment.ID.Hex(),
		Patient: PatientSummary{
			ID:         d.Patient.ID.Hex(),
			Name:       d.Patient.Name,
			NationalID: d.Patient.NationalID,
		},
		Slot: SlotSummary{
			ID:        d.Slot.ID.Hex(),
			StartTime: d.Slot.StartTime,
			EndTime:   d.Slot.EndTime,
		},
		Professional: ProfessionalSummary{
			ID:             d.Professional.ID.Hex(),
			Name:           d.Professional.Name,
			Specialization: d.Professional.Specialization.String(),
		},
	}
}
