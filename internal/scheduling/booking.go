package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	redisclient "github.com/medapp/scheduler/internal/redis"
)

var (
	ErrSlotAlreadyBooked = errors.New("slot is already booked")
	ErrSlotNotBooked     = errors.New("slot is not booked")
	ErrSlotInPast        = errors.New("slot start time is in the past")
	ErrSlotBeingBooked   = errors.New("slot is currently being booked, please retry")

	// ErrBookingIncomplete means the slot was claimed but the appointment
	// insert failed AND the compensating release failed too. The slot is
	// left booked with no appointment; the reconcile worker (or an
	// operator) has to free it.
	ErrBookingIncomplete = errors.New("slot reserved but appointment not recorded; reconciliation required")
)

// BookingService owns the Free -> Booked slot transition and the appointment
// record that goes with it.
type BookingService struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
	now    func() time.Time
}

func NewBookingService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *BookingService {
	if locker == nil {
		locker = redisclient.NoopLocker{}
	}
	return &BookingService{
		repo:   repo,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

// CreateAppointment books slotID for patientID and returns the composed
// appointment view.
//
// The store offers per-document atomicity only, so slot claim and
// appointment insert are a two-step saga: the claim is a conditional update
// (the authoritative guard against double booking), the insert follows, and
// an insert failure compensates by releasing the claim. The per-slot lock
// merely sheds contention; correctness never depends on it.
func (s *BookingService) CreateAppointment(ctx context.Context, patientID, slotID primitive.ObjectID) (*AppointmentDetail, error) {
	patient, err := s.repo.GetPatientByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	slot, err := s.repo.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if slot.IsBooked {
		return nil, ErrSlotAlreadyBooked
	}
	if slot.StartTime.Before(s.now()) {
		return nil, ErrSlotInPast
	}

	professional, err := s.repo.GetProfessionalByID(ctx, slot.ProfessionalID)
	if err != nil {
		// A valid slot pointing at a missing professional is a data
		// integrity problem worth surfacing loudly.
		s.log.Error().
			Str("slot_id", slotID.Hex()).
			Str("professional_id", slot.ProfessionalID.Hex()).
			Msg("slot references missing professional")
		return nil, err
	}

	var appt *Appointment

	err = s.locker.WithSlotLock(ctx, slotID.Hex(), func(lockCtx context.Context) error {
		if err := s.repo.ClaimSlot(lockCtx, slotID); err != nil {
			return err
		}

		created := &Appointment{PatientID: patientID, SlotID: slotID}
		if err := s.repo.CreateAppointment(lockCtx, created); err != nil {
			return s.compensate(lockCtx, slotID, err)
		}

		appt = created
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	slot.IsBooked = true

	s.log.Info().
		Str("appointment_id", appt.ID.Hex()).
		Str("patient_id", patientID.Hex()).
		Str("slot_id", slotID.Hex()).
		Msg("appointment created")

	return &AppointmentDetail{
		Appointment:  appt,
		Patient:      patient,
		Slot:         slot,
		Professional: professional,
	}, nil
}

// compensate rolls back a claimed slot after the appointment insert failed.
// The caller's error is kept as the surfaced failure unless the rollback
// itself fails, which is the one state that needs manual attention.
func (s *BookingService) compensate(ctx context.Context, slotID primitive.ObjectID, cause error) error {
	if relErr := s.repo.ReleaseSlot(ctx, slotID); relErr != nil {
		s.log.Error().
			Err(relErr).
			Str("slot_id", slotID.Hex()).
			Msg("compensating slot release failed, slot left booked without appointment")
		return fmt.Errorf("%w: insert failed (%v), release failed (%v)", ErrBookingIncomplete, cause, relErr)
	}

	s.log.Warn().
		Err(cause).
		Str("slot_id", slotID.Hex()).
		Msg("appointment insert failed, slot claim rolled back")
	return fmt.Errorf("create appointment: %w", cause)
}

// GetAppointment hydrates the composed view for an existing appointment.
func (s *BookingService) GetAppointment(ctx context.Context, id primitive.ObjectID) (*AppointmentDetail, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	patient, err := s.repo.GetPatientByID(ctx, appt.PatientID)
	if err != nil {
		return nil, err
	}
	slot, err := s.repo.GetSlotByID(ctx, appt.SlotID)
	if err != nil {
		return nil, err
	}
	professional, err := s.repo.GetProfessionalByID(ctx, slot.ProfessionalID)
	if err != nil {
		return nil, err
	}

	return &AppointmentDetail{
		Appointment:  appt,
		Patient:      patient,
		Slot:         slot,
		Professional: professional,
	}, nil
}

// ReconcileAbandonedSlots frees booked slots that have no appointment and
// have not been touched for at least grace. These are the leftovers of a
// failed compensation. Intended to be run periodically by the worker.
func (s *BookingService) ReconcileAbandonedSlots(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := s.now().Add(-grace)

	candidates, err := s.repo.FindStaleBookedSlots(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find stale booked slots: %w", err)
	}

	freed := 0
	for _, slot := range candidates {
		_, err := s.repo.GetAppointmentBySlotID(ctx, slot.ID)
		if err == nil {
			continue // claim is backed by an appointment, nothing to do
		}
		if !errors.Is(err, ErrAppointmentNotFound) {
			s.log.Error().Err(err).Str("slot_id", slot.ID.Hex()).Msg("reconcile: appointment lookup failed")
			continue
		}

		if err := s.repo.ReleaseSlot(ctx, slot.ID); err != nil {
			if errors.Is(err, ErrSlotNotBooked) {
				continue // freed concurrently
			}
			s.log.Error().Err(err).Str("slot_id", slot.ID.Hex()).Msg("reconcile: slot release failed")
			continue
		}

		s.log.Warn().Str("slot_id", slot.ID.Hex()).Msg("reconcile: freed booked slot with no appointment")
		freed++
	}

	return freed, nil
}
