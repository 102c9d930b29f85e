package scheduling

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/medapp/scheduler/internal/store"
)

// Collection names, one per entity.
const (
	CollPatients      = "patients"
	CollProfessionals = "professionals"
	CollSlots         = "slots"
	CollAppointments  = "appointments"
)

type Professional struct {
	store.Meta     `bson:",inline"`
	Name           string         `bson:"name" json:"name"`
	Specialization Specialization `bson:"specialization" json:"specialization"`
}

type Patient struct {
	store.Meta  `bson:",inline"`
	Name        string `bson:"name" json:"name"`
	NationalID  string `bson:"national_id" json:"national_id"`
	PhoneNumber string `bson:"phone_number" json:"phone_number"`
	Email       string `bson:"email" json:"email"`
}

type Slot struct {
	store.Meta     `bson:",inline"`
	StartTime      time.Time          `bson:"start_time" json:"start_time"`
	EndTime        time.Time          `bson:"end_time" json:"end_time"`
	ProfessionalID primitive.ObjectID `bson:"professional_id" json:"professional_id"`
	IsBooked       bool               `bson:"is_booked" json:"is_booked"`
}

type Appointment struct {
	store.Meta `bson:",inline"`
	PatientID  primitive.ObjectID `bson:"patient_id" json:"patient_id"`
	SlotID     primitive.ObjectID `bson:"slot_id" json:"slot_id"`
}

// SlotWithProfessional pairs an open slot with the professional offering it,
// the shape of a specialization-wide availability answer.
type SlotWithProfessional struct {
	Slot         Slot
	Professional Professional
}

// AppointmentDetail is the fully hydrated view returned after a booking.
type AppointmentDetail struct {
	Appointment  *Appointment
	Patient      *Patient
	Slot         *Slot
	Professional *Professional
}

// TimeWindow bounds a slot search on start_time. A zero Start means "from
// now" at the call site; a zero End means unbounded future.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}
