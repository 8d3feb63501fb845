package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-turnos/internal/clinic"
)

type RouterConfig struct {
	Scheduler *clinic.Scheduler
	Logger    zerolog.Logger
	PgPool    *pgxpool.Pool // optional
	Redis     *redis.Client // optional
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	svc := cfg.Scheduler

	r.Route("/patients", func(r chi.Router) {
		r.Post("/", createPatientHandler(svc))
		r.Get("/", listPatientsHandler(svc))
		r.Get("/{id}/appointments", patientHistoryHandler(svc))
	})

	r.Route("/doctors", func(r chi.Router) {
		r.Post("/", createDoctorHandler(svc))
		r.Get("/", listDoctorsHandler(svc))
		r.Get("/{id}/slots", freeSlotsHandler(svc))
		r.Post("/{id}/slots", addSlotHandler(svc))
		r.Get("/{id}/appointments", doctorAppointmentsHandler(svc))
	})

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", createAppointmentHandler(svc))
		r.Get("/", listAppointmentsHandler(svc))
		r.Get("/{id}", getAppointmentHandler(svc))
		r.Post("/{id}/cancel", cancelAppointmentHandler(svc))
		r.Post("/{id}/status", changeStatusHandler(svc))
		r.Put("/{id}/note", setNoteHandler(svc))
	})

	r.Get("/stats", statsHandler(svc))

	return r
}
