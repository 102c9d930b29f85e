package scheduling

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeRepo is an in-memory Repository. ClaimSlot holds the same guarantee as
// the real conditional update: under the mutex, two racing claims on one slot
// can never both succeed.
type fakeRepo struct {
	mu            sync.Mutex
	patients      map[primitive.ObjectID]*Patient
	professionals map[primitive.ObjectID]*Professional
	slots         map[primitive.ObjectID]*Slot
	appointments  map[primitive.ObjectID]*Appointment

	createAppointmentErr error
	releaseSlotErr       error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:      make(map[primitive.ObjectID]*Patient),
		professionals: make(map[primitive.ObjectID]*Professional),
		slots:         make(map[primitive.ObjectID]*Slot),
		appointments:  make(map[primitive.ObjectID]*Appointment),
	}
}

func (r *fakeRepo) addPatient(p *Patient) *Patient {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.patients[p.ID] = p
	return p
}

func (r *fakeRepo) addProfessional(p *Professional) *Professional {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.professionals[p.ID] = p
	return p
}

func (r *fakeRepo) addSlot(s *Slot) *Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	r.slots[s.ID] = s
	return s
}

func (r *fakeRepo) GetPatientByID(_ context.Context, id primitive.ObjectID) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) GetPatientByNationalID(_ context.Context, nationalID string) (*Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.patients {
		if p.NationalID == nationalID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPatientNotFound
}

func (r *fakeRepo) GetProfessionalByID(_ context.Context, id primitive.ObjectID) (*Professional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.professionals[id]
	if !ok {
		return nil, ErrProfessionalNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) FindProfessionalsBySpecialization(_ context.Context, spec Specialization) ([]Professional, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Professional, 0)
	for _, p := range r.professionals {
		if p.Specialization == spec {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetSlotByID(_ context.Context, id primitive.ObjectID) (*Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeRepo) FindOpenSlots(_ context.Context, professionalIDs []primitive.ObjectID, window TimeWindow) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owned := make(map[primitive.ObjectID]bool, len(professionalIDs))
	for _, id := range professionalIDs {
		owned[id] = true
	}

	out := make([]Slot, 0)
	for _, s := range r.slots {
		if s.IsBooked || !owned[s.ProfessionalID] {
			continue
		}
		if s.StartTime.Before(window.Start) {
			continue
		}
		if !window.End.IsZero() && s.StartTime.After(window.End) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out, nil
}

func (r *fakeRepo) ClaimSlot(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if s.IsBooked {
		return ErrSlotAlreadyBooked
	}
	s.IsBooked = true
	s.UpdatedAt = time.Now().Unix()
	return nil
}

func (r *fakeRepo) ReleaseSlot(_ context.Context, id primitive.ObjectID) error {
	if r.releaseSlotErr != nil {
		return r.releaseSlotErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if !s.IsBooked {
		return ErrSlotNotBooked
	}
	s.IsBooked = false
	s.UpdatedAt = time.Now().Unix()
	return nil
}

func (r *fakeRepo) CreateAppointment(_ context.Context, appt *Appointment) error {
	if r.createAppointmentErr != nil {
		return r.createAppointmentErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	appt.ID = primitive.NewObjectID()
	cp := *appt
	r.appointments[appt.ID] = &cp
	return nil
}

func (r *fakeRepo) GetAppointmentByID(_ context.Context, id primitive.ObjectID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *fakeRepo) GetAppointmentBySlotID(_ context.Context, slotID primitive.ObjectID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.appointments {
		if a.SlotID == slotID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrAppointmentNotFound
}

func (r *fakeRepo) FindStaleBookedSlots(_ context.Context, cutoff time.Time) ([]Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Slot, 0)
	for _, s := range r.slots {
		if s.IsBooked && s.UpdatedAt < cutoff.Unix() {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertPatients(_ context.Context, patients []*Patient) (int, error) {
	for _, p := range patients {
		r.addPatient(p)
	}
	return len(patients), nil
}

func (r *fakeRepo) InsertProfessionals(_ context.Context, professionals []*Professional) (int, error) {
	for _, p := range professionals {
		r.addProfessional(p)
	}
	return len(professionals), nil
}

func (r *fakeRepo) InsertSlots(_ context.Context, slots []*Slot) (int, error) {
	for _, s := range slots {
		r.addSlot(s)
	}
	return len(slots), nil
}

func (r *fakeRepo) InsertAppointments(_ context.Context, appointments []*Appointment) (int, error) {
	for _, a := range appointments {
		if err := r.CreateAppointment(context.Background(), a); err != nil {
			return 0, err
		}
	}
	return len(appointments), nil
}
