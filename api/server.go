/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the portal frontend

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/staff/{id}", func(r chi.Router) {
			r.Put("/pattern", h.PutPattern)
			r.Get("/pattern", h.GetPattern)

			r.Get("/entitlement", h.GetEntitlement)
			r.Post("/entitlement/recalculate", h.RecalculateEntitlement)
			r.Put("/entitlement/override", h.SetOverride)
			r.Delete("/entitlement/override", h.ClearOverride)

			r.Post("/bookings", h.CreateBooking)
			r.Get("/bookings", h.ListBookings)

			r.Get("/balance", h.GetBalance)
		})

		r.Route("/bookings/{id}", func(r chi.Router) {
			r.Post("/approve", h.ApproveBooking)
			r.Post("/reject", h.RejectBooking)
			r.Post("/cancel", h.CancelBooking)
			r.Post("/revert", h.RevertBooking)
		})

		r.Post("/demo/seed", h.SeedDemo)
	})

	return r
}
