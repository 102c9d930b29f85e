package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

type RouterConfig struct {
	Availability AvailabilityService
	Booking      BookingService
	Mongo        *mongo.Client
	Redis        *redis.Client // nil when the slot lock is disabled
	Log          zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	h := &handlers{
		availability: cfg.Availability,
		booking:      cfg.Booking,
		log:          cfg.Log,
	}

	// Health endpoints
	health := NewHealthHandler(cfg.Mongo, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Scheduling endpoints
	r.Get("/professionals/{id}/slots", h.getProfessionalSlots)
	r.Get("/slots/specialization/{spec}", h.getSpecializationSlots)
	r.Get("/patients/{national_id}", h.getPatient)
	r.Post("/appointments", h.createAppointment)
	r.Get("/appointments/{id}", h.getAppointment)

	// Tool-calling surface for the conversational agent
	r.Get("/tools", h.listTools)
	r.Post("/tools/{name}", h.callTool)

	return r
}
