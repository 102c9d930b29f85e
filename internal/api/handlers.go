package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medapp/scheduler/internal/scheduling"
)

// AvailabilityService is the read side the handlers need.
type AvailabilityService interface {
	SlotsForProfessional(ctx context.Context, professionalID primitive.ObjectID, window scheduling.TimeWindow) ([]scheduling.Slot, error)
	SlotsForSpecialization(ctx context.Context, spec scheduling.Specialization, window scheduling.TimeWindow) ([]scheduling.SlotWithProfessional, error)
	PatientByNationalID(ctx context.Context, nationalID string) (*scheduling.Patient, error)
}

// BookingService is the write side.
type BookingService interface {
	CreateAppointment(ctx context.Context, patientID, slotID primitive.ObjectID) (*scheduling.AppointmentDetail, error)
	GetAppointment(ctx context.Context, id primitive.ObjectID) (*scheduling.AppointmentDetail, error)
}

type handlers struct {
	availability AvailabilityService
	booking      BookingService
	log          zerolog.Logger
}

// parseWindow reads optional RFC3339 start/end query parameters.
func parseWindow(query url.Values) (scheduling.TimeWindow, error) {
	var w scheduling.TimeWindow
	if raw := query.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return w, err
		}
		w.Start = t
	}
	if raw := query.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return w, err
		}
		w.End = t
	}
	return w, nil
}

func (h *handlers) getProfessionalSlots(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_professional_id", "id must be a valid object id")
		return
	}

	window, err := parseWindow(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "start and end must be RFC3339 timestamps")
		return
	}

	slots, err := h.availability.SlotsForProfessional(r.Context(), id, window)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newSlotResponses(slots))
}

func (h *handlers) getSpecializationSlots(w http.ResponseWriter, r *http.Request) {
	spec, err := scheduling.ParseSpecialization(chi.URLParam(r, "spec"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unknown_specialization", "specialization is not one of the known specialties")
		return
	}

	window, err := parseWindow(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_time", "start and end must be RFC3339 timestamps")
		return
	}

	pairs, err := h.availability.SlotsForSpecialization(r.Context(), spec, window)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newSpecializationSlotResponses(pairs))
}

func (h *handlers) getPatient(w http.ResponseWriter, r *http.Request) {
	nationalID := chi.URLParam(r, "national_id")

	patient, err := h.availability.PatientByNationalID(r.Context(), nationalID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newPatientResponse(patient))
}

func (h *handlers) createAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	patientID, err := primitive.ObjectIDFromHex(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid object id")
		return
	}

	slotID, err := primitive.ObjectIDFromHex(req.SlotID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_id must be a valid object id")
		return
	}

	detail, err := h.booking.CreateAppointment(r.Context(), patientID, slotID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, newAppointmentResponse(detail))
}

func (h *handlers) getAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid object id")
		return
	}

	detail, err := h.booking.GetAppointment(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, newAppointmentResponse(detail))
}

// handleError maps domain errors onto the wire taxonomy. Anything unmatched
// is a data-access failure: logged in full, surfaced generically.
func (h *handlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrProfessionalNotFound):
		writeError(w, http.StatusNotFound, "professional_not_found", err.Error())
	case errors.Is(err, scheduling.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, scheduling.ErrNoProfessionalsForSpecialization):
		writeError(w, http.StatusNotFound, "no_professionals_for_specialization", err.Error())
	case errors.Is(err, scheduling.ErrInvalidWindow):
		writeError(w, http.StatusBadRequest, "invalid_window", err.Error())
	case errors.Is(err, scheduling.ErrSlotInPast):
		writeError(w, http.StatusBadRequest, "slot_in_past", err.Error())
	case errors.Is(err, scheduling.ErrSlotAlreadyBooked):
		writeError(w, http.StatusConflict, "slot_already_booked", err.Error())
	case errors.Is(err, scheduling.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, scheduling.ErrBookingIncomplete):
		// Distinct from a plain store failure: this one needs an operator.
		h.log.Error().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("booking left partial state")
		writeError(w, http.StatusInternalServerError, "booking_partial_failure", scheduling.ErrBookingIncomplete.Error())
	default:
		h.log.Error().Err(err).Str("request_id", GetRequestID(r.Context())).Msg("data access failure")
		writeError(w, http.StatusInternalServerError, "data_access_failure", "the scheduling store could not complete the request")
	}
}
