package scheduling

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrProfessionalNotFound = errors.New("professional not found")
	ErrSlotNotFound         = errors.New("slot not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// Repository contains all store interactions the services need.
type Repository interface {
	GetPatientByID(ctx context.Context, id primitive.ObjectID) (*Patient, error)
	GetPatientByNationalID(ctx context.Context, nationalID string) (*Patient, error)

	GetProfessionalByID(ctx context.Context, id primitive.ObjectID) (*Professional, error)
	FindProfessionalsBySpecialization(ctx context.Context, spec Specialization) ([]Professional, error)

	GetSlotByID(ctx context.Context, id primitive.ObjectID) (*Slot, error)
	// FindOpenSlots returns unbooked slots owned by any of the given
	// professionals whose start_time falls inside window, ascending by
	// start_time. One query regardless of how many professionals.
	FindOpenSlots(ctx context.Context, professionalIDs []primitive.ObjectID, window TimeWindow) ([]Slot, error)

	// ClaimSlot flips is_booked false->true as a single conditional update.
	// It fails with ErrSlotAlreadyBooked when the slot was already claimed,
	// ErrSlotNotFound when it does not exist. Two racing claims on one slot
	// can never both succeed.
	ClaimSlot(ctx context.Context, id primitive.ObjectID) error
	// ReleaseSlot is the compensating transition, is_booked true->false.
	ReleaseSlot(ctx context.Context, id primitive.ObjectID) error

	CreateAppointment(ctx context.Context, appt *Appointment) error
	GetAppointmentByID(ctx context.Context, id primitive.ObjectID) (*Appointment, error)
	GetAppointmentBySlotID(ctx context.Context, slotID primitive.ObjectID) (*Appointment, error)

	// FindStaleBookedSlots returns booked slots last touched before cutoff,
	// the candidate set for orphaned-claim reconciliation.
	FindStaleBookedSlots(ctx context.Context, cutoff time.Time) ([]Slot, error)

	// Seeding
	InsertPatients(ctx context.Context, patients []*Patient) (int, error)
	InsertProfessionals(ctx context.Context, professionals []*Professional) (int, error)
	InsertSlots(ctx context.Context, slots []*Slot) (int, error)
	InsertAppointments(ctx context.Context, appointments []*Appointment) (int, error)
}
