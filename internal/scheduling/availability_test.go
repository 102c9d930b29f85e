package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newAvailabilityFixture(t *testing.T) (*fakeRepo, *AvailabilityService) {
	t.Helper()
	repo := newFakeRepo()
	svc := NewAvailabilityService(repo)
	svc.now = func() time.Time { return testNow }
	return repo, svc
}

func TestSlotsForProfessional(t *testing.T) {
	repo, svc := newAvailabilityFixture(t)

	prof := repo.addProfessional(&Professional{Name: "Dr. Okafor", Specialization: SpecDermatology})
	other := repo.addProfessional(&Professional{Name: "Dr. Lindqvist", Specialization: SpecDermatology})

	later := repo.addSlot(&Slot{StartTime: testNow.Add(48 * time.Hour), ProfessionalID: prof.ID})
	sooner := repo.addSlot(&Slot{StartTime: testNow.Add(2 * time.Hour), ProfessionalID: prof.ID})
	repo.addSlot(&Slot{StartTime: testNow.Add(3 * time.Hour), ProfessionalID: prof.ID, IsBooked: true})
	repo.addSlot(&Slot{StartTime: testNow.Add(-2 * time.Hour), ProfessionalID: prof.ID})
	repo.addSlot(&Slot{StartTime: testNow.Add(4 * time.Hour), ProfessionalID: other.ID})

	slots, err := svc.SlotsForProfessional(context.Background(), prof.ID, TimeWindow{})
	require.NoError(t, err)

	// Open future slots of this professional only, soonest first.
	require.Len(t, slots, 2)
	assert.Equal(t, sooner.ID, slots[0].ID)
	assert.Equal(t, later.ID, slots[1].ID)
}

func TestSlotsForProfessional_Window(t *testing.T) {
	repo, svc := newAvailabilityFixture(t)

	prof := repo.addProfessional(&Professional{Name: "Dr. Okafor", Specialization: SpecDermatology})
	inside := repo.addSlot(&Slot{StartTime: testNow.Add(26 * time.Hour), ProfessionalID: prof.ID})
	repo.addSlot(&Slot{StartTime: testNow.Add(2 * time.Hour), ProfessionalID: prof.ID})
	repo.addSlot(&Slot{StartTime: testNow.Add(80 * time.Hour), ProfessionalID: prof.ID})

	window := TimeWindow{Start: testNow.Add(24 * time.Hour), End: testNow.Add(48 * time.Hour)}
	slots, err := svc.SlotsForProfessional(context.Background(), prof.ID, window)
	require.NoError(t, err)

	require.Len(t, slots, 1)
	assert.Equal(t, inside.ID, slots[0].ID)
}

func TestSlotsForProfessional_NotFound(t *testing.T) {
	_, svc := newAvailabilityFixture(t)

	_, err := svc.SlotsForProfessional(context.Background(), primitive.NewObjectID(), TimeWindow{})
	assert.ErrorIs(t, err, ErrProfessionalNotFound)
}

func TestSlotsForProfessional_NoneOpen(t *testing.T) {
	repo, svc := newAvailabilityFixture(t)

	prof := repo.addProfessional(&Professional{Name: "Dr. Okafor", Specialization: SpecDermatology})

	slots, err := svc.SlotsForProfessional(context.Background(), prof.ID, TimeWindow{})
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsForSpecialization(t *testing.T) {
	repo, svc := newAvailabilityFixture(t)

	cardioA := repo.addProfessional(&Professional{Name: "Dr. Reyes", Specialization: SpecCardiology})
	cardioB := repo.addProfessional(&Professional{Name: "Dr. Haddad", Specialization: SpecCardiology})
	derm := repo.addProfessional(&Professional{Name: "Dr. Okafor", Specialization: SpecDermatology})

	slotB := repo.addSlot(&Slot{StartTime: testNow.Add(6 * time.Hour), ProfessionalID: cardioB.ID})
	slotA := repo.addSlot(&Slot{StartTime: testNow.Add(2 * time.Hour), ProfessionalID: cardioA.ID})
	repo.addSlot(&Slot{StartTime: testNow.Add(3 * time.Hour), ProfessionalID: cardioA.ID, IsBooked: true})
	repo.addSlot(&Slot{StartTime: testNow.Add(4 * time.Hour), ProfessionalID: derm.ID})

	pairs, err := svc.SlotsForSpecialization(context.Background(), SpecCardiology, TimeWindow{})
	require.NoError(t, err)

	// Each open cardiology slot comes back with its own professional.
	require.Len(t, pairs, 2)
	assert.Equal(t, slotA.ID, pairs[0].Slot.ID)
	assert.Equal(t, cardioA.ID, pairs[0].Professional.ID)
	assert.Equal(t, slotB.ID, pairs[1].Slot.ID)
	assert.Equal(t, cardioB.ID, pairs[1].Professional.ID)
}

func TestSlotsForSpecialization_DefaultWindow(t *testing.T) {
	repo, svc := newAvailabilityFixture(t)

	cardio := repo.addProfessional(&Professional{Name: "Dr. Reyes", Specialization: SpecCardiology})
	inside := repo.addSlot(&Slot{StartTime: testNow.Add(29 * 24 * time.Hour), ProfessionalID: cardio.ID})
	repo.addSlot(&Slot{StartTime: testNow.Add(31 * 24 * time.Hour), ProfessionalID: cardio.ID})

	pairs, err := svc.SlotsForSpecialization(context.Background(), SpecCardiology, TimeWindow{})
	require.NoError(t, err)

	// Without an explicit end, the search stops 30 days out.
	require.Len(t, pairs, 1)
	assert.Equal(t, inside.ID, pairs[0].Slot.ID)
}

func TestSlotsForSpecialization_InvalidWindow(t *testing.T) {
	repo, svc := newAvailabilityFixture(t)
	repo.addProfessional(&Professional{Name: "Dr. Reyes", Specialization: SpecCardiology})

	window := TimeWindow{Start: testNow.Add(48 * time.Hour), End: testNow.Add(24 * time.Hour)}
	_, err := svc.SlotsForSpecialization(context.Background(), SpecCardiology, window)
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestSlotsForSpecialization_NoProfessionals(t *testing.T) {
	_, svc := newAvailabilityFixture(t)

	_, err := svc.SlotsForSpecialization(context.Background(), SpecNeurology, TimeWindow{})
	assert.ErrorIs(t, err, ErrNoProfessionalsForSpecialization)
}

func TestPatientByNationalID(t *testing.T) {
	repo, svc := newAvailabilityFixture(t)

	patient := repo.addPatient(&Patient{Name: "Ada Moreno", NationalID: "123456789"})

	found, err := svc.PatientByNationalID(context.Background(), "123456789")
	require.NoError(t, err)
	assert.Equal(t, patient.ID, found.ID)

	_, err = svc.PatientByNationalID(context.Background(), "000000000")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestParseSpecialization(t *testing.T) {
	spec, err := ParseSpecialization("Cardiology")
	require.NoError(t, err)
	assert.Equal(t, SpecCardiology, spec)

	spec, err = ParseSpecialization(" ent ")
	require.NoError(t, err)
	assert.Equal(t, SpecENT, spec)

	_, err = ParseSpecialization("astrology")
	assert.ErrorIs(t, err, ErrUnknownSpecialization)
}
