package scheduling

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/medapp/scheduler/internal/store"
)

// MongoRepository implements Repository on top of the document store.
type MongoRepository struct {
	patients      *mongo.Collection
	professionals *mongo.Collection
	slots         *mongo.Collection
	appointments  *mongo.Collection
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		patients:      db.Collection(CollPatients),
		professionals: db.Collection(CollProfessionals),
		slots:         db.Collection(CollSlots),
		appointments:  db.Collection(CollAppointments),
	}
}

func (r *MongoRepository) GetPatientByID(ctx context.Context, id primitive.ObjectID) (*Patient, error) {
	p, err := store.FindByID[Patient](ctx, r.patients, id)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (r *MongoRepository) GetPatientByNationalID(ctx context.Context, nationalID string) (*Patient, error) {
	p, err := store.FindOne[Patient](ctx, r.patients, bson.D{{Key: "national_id", Value: nationalID}})
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, ErrPatientNotFound
	}
	return p, err
}

func (r *MongoRepository) GetProfessionalByID(ctx context.Context, id primitive.ObjectID) (*Professional, error) {
	p, err := store.FindByID[Professional](ctx, r.professionals, id)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, ErrProfessionalNotFound
	}
	return p, err
}

func (r *MongoRepository) FindProfessionalsBySpecialization(ctx context.Context, spec Specialization) ([]Professional, error) {
	return store.Find[Professional](ctx, r.professionals,
		bson.D{{Key: "specialization", Value: spec}},
		store.Asc("name"),
	)
}

func (r *MongoRepository) GetSlotByID(ctx context.Context, id primitive.ObjectID) (*Slot, error) {
	s, err := store.FindByID[Slot](ctx, r.slots, id)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, ErrSlotNotFound
	}
	return s, err
}

func (r *MongoRepository) FindOpenSlots(ctx context.Context, professionalIDs []primitive.ObjectID, window TimeWindow) ([]Slot, error) {
	timeFilter := bson.D{{Key: "$gte", Value: window.Start}}
	if !window.End.IsZero() {
		timeFilter = append(timeFilter, bson.E{Key: "$lte", Value: window.End})
	}

	filter := bson.D{
		{Key: "professional_id", Value: bson.D{{Key: "$in", Value: professionalIDs}}},
		{Key: "start_time", Value: timeFilter},
		{Key: "is_booked", Value: false},
	}

	return store.Find[Slot](ctx, r.slots, filter, store.Asc("start_time"))
}

func (r *MongoRepository) ClaimSlot(ctx context.Context, id primitive.ObjectID) error {
	return r.transitionSlot(ctx, id, false, true, ErrSlotAlreadyBooked)
}

func (r *MongoRepository) ReleaseSlot(ctx context.Context, id primitive.ObjectID) error {
	return r.transitionSlot(ctx, id, true, false, ErrSlotNotBooked)
}

// transitionSlot performs the conditional is_booked flip. The precondition
// lives in the filter, so the store decides the race: zero documents modified
// means another caller got there first (or the slot is gone).
func (r *MongoRepository) transitionSlot(ctx context.Context, id primitive.ObjectID, from, to bool, conflict error) error {
	modified, err := store.UpdateOne(ctx, r.slots,
		bson.D{
			{Key: "_id", Value: id},
			{Key: "is_booked", Value: from},
		},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "is_booked", Value: to},
			{Key: "updated_at", Value: time.Now().Unix()},
		}}},
	)
	if err != nil {
		return err
	}
	if modified == 0 {
		// Distinguish a lost race from a missing slot.
		if _, lookupErr := r.GetSlotByID(ctx, id); lookupErr != nil {
			return lookupErr
		}
		return conflict
	}
	return nil
}

func (r *MongoRepository) CreateAppointment(ctx context.Context, appt *Appointment) error {
	return store.Save(ctx, r.appointments, appt)
}

func (r *MongoRepository) GetAppointmentByID(ctx context.Context, id primitive.ObjectID) (*Appointment, error) {
	a, err := store.FindByID[Appointment](ctx, r.appointments, id)
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, ErrAppointmentNotFound
	}
	return a, err
}

func (r *MongoRepository) GetAppointmentBySlotID(ctx context.Context, slotID primitive.ObjectID) (*Appointment, error) {
	a, err := store.FindOne[Appointment](ctx, r.appointments, bson.D{{Key: "slot_id", Value: slotID}})
	if errors.Is(err, store.ErrNoDocuments) {
		return nil, ErrAppointmentNotFound
	}
	return a, err
}

func (r *MongoRepository) FindStaleBookedSlots(ctx context.Context, cutoff time.Time) ([]Slot, error) {
	filter := bson.D{
		{Key: "is_booked", Value: true},
		{Key: "updated_at", Value: bson.D{{Key: "$lt", Value: cutoff.Unix()}}},
	}
	return store.Find[Slot](ctx, r.slots, filter, store.Asc("updated_at"))
}

func (r *MongoRepository) InsertPatients(ctx context.Context, patients []*Patient) (int, error) {
	return store.InsertMany(ctx, r.patients, patients)
}

func (r *MongoRepository) InsertProfessionals(ctx context.Context, professionals []*Professional) (int, error) {
	return store.InsertMany(ctx, r.professionals, professionals)
}

func (r *MongoRepository) InsertSlots(ctx context.Context, slots []*Slot) (int, error) {
	return store.InsertMany(ctx, r.slots, slots)
}

func (r *MongoRepository) InsertAppointments(ctx context.Context, appointments []*Appointment) (int, error) {
	return store.InsertMany(ctx, r.appointments, appointments)
}
