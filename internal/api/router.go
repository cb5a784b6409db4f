package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ManoharReddy06/hospital-scheduling/internal/booking"
	"github.com/ManoharReddy06/hospital-scheduling/internal/directory"
)

type RouterConfig struct {
	Booking   *booking.Service
	Directory *directory.PgRepository
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    *zap.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Directory catalog (read-only)
	r.Get("/cities", listCitiesHandler(cfg.Directory))
	r.Get("/cities/{id}/clinics", listClinicsByCityHandler(cfg.Directory))
	r.Get("/clinics/{id}/doctors", listDoctorsByClinicHandler(cfg.Directory))
	r.Get("/doctors", searchDoctorsHandler(cfg.Directory))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Directory))
	r.Get("/doctors/{id}/availability", listAvailabilityHandler(cfg.Directory))

	// Scheduling engine
	r.Get("/doctors/{id}/slots", listSlotsHandler(cfg.Booking))
	r.Get("/doctors/{id}/appointments", listDoctorAppointmentsHandler(cfg.Booking))
	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Booking))
	r.Post("/appointments", bookAppointmentHandler(cfg.Booking))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Booking))
	r.Post("/appointments/{id}/status", transitionAppointmentHandler(cfg.Booking))

	return r
}
