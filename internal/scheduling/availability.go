package scheduling

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrInvalidWindow = errors.New("window start must not be after window end")

	// ErrNoProfessionalsForSpecialization is a NotFound: the specialization
	// is valid but nobody offers it.
	ErrNoProfessionalsForSpecialization = errors.New("no professionals found for specialization")
)

// DefaultSpecializationWindow bounds a specialization-wide search when the
// caller gives no upper bound.
const DefaultSpecializationWindow = 30 * 24 * time.Hour

// AvailabilityService answers "what slots are free" for one professional or
// across a whole specialization.
type AvailabilityService struct {
	repo Repository
	now  func() time.Time
}

func NewAvailabilityService(repo Repository) *AvailabilityService {
	return &AvailabilityService{repo: repo, now: time.Now}
}

// SlotsForProfessional lists the open slots of one professional inside the
// window, ascending by start time. A zero Start defaults to now; a zero End
// leaves the future unbounded.
func (s *AvailabilityService) SlotsForProfessional(ctx context.Context, professionalID primitive.ObjectID, window TimeWindow) ([]Slot, error) {
	if _, err := s.repo.GetProfessionalByID(ctx, professionalID); err != nil {
		return nil, err
	}

	if window.Start.IsZero() {
		window.Start = s.now()
	}

	return s.repo.FindOpenSlots(ctx, []primitive.ObjectID{professionalID}, window)
}

// SlotsForSpecialization lists open slots across every professional with the
// given specialization, joined client-side: one professionals fetch, then one
// in-set slot query. The store has no cross-collection join, and a
// per-professional fan-out would be an N+1.
func (s *AvailabilityService) SlotsForSpecialization(ctx context.Context, spec Specialization, window TimeWindow) ([]SlotWithProfessional, error) {
	if window.Start.IsZero() {
		window.Start = s.now()
	}
	if window.End.IsZero() {
		window.End = window.Start.Add(DefaultSpecializationWindow)
	}
	if window.Start.After(window.End) {
		return nil, ErrInvalidWindow
	}

	professionals, err := s.repo.FindProfessionalsBySpecialization(ctx, spec)
	if err != nil {
		return nil, err
	}
	if len(professionals) == 0 {
		return nil, ErrNoProfessionalsForSpecialization
	}

	ids := make([]primitive.ObjectID, len(professionals))
	byID := make(map[primitive.ObjectID]Professional, len(professionals))
	for i, p := range professionals {
		ids[i] = p.ID
		byID[p.ID] = p
	}

	slots, err := s.repo.FindOpenSlots(ctx, ids, window)
	if err != nil {
		return nil, err
	}

	out := make([]SlotWithProfessional, 0, len(slots))
	for _, slot := range slots {
		prof, ok := byID[slot.ProfessionalID]
		if !ok {
			continue // slot owned by someone outside the fetched set
		}
		out = append(out, SlotWithProfessional{Slot: slot, Professional: prof})
	}
	return out, nil
}

// PatientByNationalID looks a patient up by their national identifier.
func (s *AvailabilityService) PatientByNationalID(ctx context.Context, nationalID string) (*Patient, error) {
	return s.repo.GetPatientByNationalID(ctx, nationalID)
}
