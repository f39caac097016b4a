package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumofit/companion/internal/handlers"
)

func SetupRoutes(r chi.Router, api *handlers.API) {
	// Health and metrics (no session)
	r.Get("/health", handlers.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Session routes
	r.Get("/api/session", api.GetSession)
	r.Post("/api/session/login", api.Login)
	r.Post("/api/session/logout", api.Logout)
	r.Post("/api/session/register", api.Register)
	r.Delete("/api/session/registration", api.ClearRegistration)

	r.Group(func(r chi.Router) {
		r.Use(api.RequireSession)

		// Patient routes
		r.Get("/api/patients", api.ListPatients)
		r.Post("/api/patients", api.CreatePatient)
		r.Delete("/api/patients/{id}", api.RemovePatient)
		r.Post("/api/patients/{id}/toggle", api.TogglePatient)
		r.Get("/api/patients/{id}/readings", api.GetReadings)
		r.Get("/api/patients/{id}/emergency", api.GetEmergencyPlan)

		// Dashboard device routes
		r.Get("/api/devices", api.ListDevices)
		r.Post("/api/devices", api.AddDevice)
		r.Delete("/api/devices/{id}", api.RemoveDevice)

		r.Get("/api/alerts", api.ListAlerts)

		// File upload routes
		r.Post("/api/upload", api.UploadAvatar)

		// WebSocket endpoint for live vitals of one patient
		r.Get("/ws/vitals", api.VitalsWebSocket)
	})
}

// Registered lists the routes for the startup log
var Registered = []string{
	"GET    /health",
	"GET    /metrics",
	"GET    /api/session",
	"POST   /api/session/login",
	"POST   /api/session/logout",
	"POST   /api/session/register",
	"DELETE /api/session/registration",
	"GET    /api/patients",
	"POST   /api/patients",
	"DELETE /api/patients/{id}",
	"POST   /api/patients/{id}/toggle",
	"GET    /api/patients/{id}/readings",
	"GET    /api/patients/{id}/emergency",
	"GET    /api/devices",
	"POST   /api/devices",
	"DELETE /api/devices/{id}",
	"GET    /api/alerts",
	"POST   /api/upload",
	"GET    /ws/vitals?patient_id=",
}
