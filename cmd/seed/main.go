package main

import (
	"context"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"

	"github.com/medapp/scheduler/internal/config"
	"github.com/medapp/scheduler/internal/db"
	"github.com/medapp/scheduler/internal/logging"
	"github.com/medapp/scheduler/internal/scheduling"
)

const (
	numPatients      = 50
	numProfessionals = 10
	numSlots         = 100
	numAppointments  = 10
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}

	log := logging.New(cfg.Env, "seed")
	log.Info().Msg("seed starting")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mongoClient, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection error")
	}
	defer func() {
		_ = mongoClient.Disconnect(context.Background())
	}()

	repo := scheduling.NewMongoRepository(mongoClient.Database(cfg.MongoDatabase))

	gofakeit.Seed(time.Now().UnixNano())

	patients := generatePatients(numPatients)
	n, err := repo.InsertPatients(ctx, patients)
	if err != nil {
		log.Fatal().Err(err).Msg("seed patients")
	}
	log.Info().Int("count", n).Msg("patients seeded")

	professionals := generateProfessionals(numProfessionals)
	n, err = repo.InsertProfessionals(ctx, professionals)
	if err != nil {
		log.Fatal().Err(err).Msg("seed professionals")
	}
	log.Info().Int("count", n).Msg("professionals seeded")

	slots := generateSlots(numSlots, professionals)
	booked := markBooked(numAppointments, slots)
	n, err = repo.InsertSlots(ctx, slots)
	if err != nil {
		log.Fatal().Err(err).Msg("seed slots")
	}
	log.Info().Int("count", n).Msg("slots seeded")

	appointments := make([]*scheduling.Appointment, 0, len(booked))
	for _, slot := range booked {
		patient := patients[gofakeit.Number(0, len(patients)-1)]
		appointments = append(appointments, &scheduling.Appointment{
			PatientID: patient.ID,
			SlotID:    slot.ID,
		})
	}
	n, err = repo.InsertAppointments(ctx, appointments)
	if err != nil {
		log.Fatal().Err(err).Msg("seed appointments")
	}
	log.Info().Int("count", n).Msg("appointments seeded")

	log.Info().Msg("seed complete")
}

func generatePatients(count int) []*scheduling.Patient {
	patients := make([]*scheduling.Patient, 0, count)
	for i := 0; i < count; i++ {
		patients = append(patients, &scheduling.Patient{
			Name:        gofakeit.Name(),
			NationalID:  gofakeit.Numerify("#########"),
			PhoneNumber: gofakeit.Phone(),
			Email:       gofakeit.Email(),
		})
	}
	return patients
}

func generateProfessionals(count int) []*scheduling.Professional {
	specs := scheduling.Specializations()
	professionals := make([]*scheduling.Professional, 0, count)
	for i := 0; i < count; i++ {
		professionals = append(professionals, &scheduling.Professional{
			Name:           gofakeit.Name(),
			Specialization: specs[gofakeit.Number(0, len(specs)-1)],
		})
	}
	return professionals
}

func generateSlots(count int, professionals []*scheduling.Professional) []*scheduling.Slot {
	slots := make([]*scheduling.Slot, 0, count)
	for i := 0; i < count; i++ {
		start := gofakeit.DateRange(
			time.Now().Add(24*time.Hour),
			time.Now().Add(30*24*time.Hour),
		).Truncate(time.Minute)

		owner := professionals[gofakeit.Number(0, len(professionals)-1)]
		slots = append(slots, &scheduling.Slot{
			StartTime:      start,
			EndTime:        start.Add(30 * time.Minute),
			ProfessionalID: owner.ID,
			IsBooked:       false,
		})
	}
	return slots
}

// markBooked flips count slots to booked before insert, so seeded data
// contains both states. Each one gets a matching appointment afterwards,
// once slot identifiers have been assigned.
func markBooked(count int, slots []*scheduling.Slot) []*scheduling.Slot {
	booked := make([]*scheduling.Slot, 0, count)
	for _, slot := range slots {
		if len(booked) == count {
			break
		}
		slot.IsBooked = true
		booked = append(booked, slot)
	}
	return booked
}
