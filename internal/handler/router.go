package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"roomreserve/internal/auth"
)

// RouterOptions carries the cross-cutting settings the router needs.
type RouterOptions struct {
	Logger         *slog.Logger
	AuthSecret     []byte
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter assembles the full HTTP surface: global middleware, the health
// endpoint, and the authenticated /api routes with admin-only groups.
func NewRouter(rooms *RoomHandler, reservations *ReservationHandler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(opts.Logger))     // structured access log
	r.Use(CORS)

	// Health
	r.Get("/health", HealthCheck)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
		r.Use(auth.RequireAuth(opts.AuthSecret))

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", rooms.ListRooms)
			r.Get("/{id}", rooms.GetRoom)
			r.Get("/{id}/available-slots", reservations.AvailableSlots)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Post("/", rooms.CreateRoom)
				r.Patch("/{id}", rooms.UpdateRoom)
			})
		})

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", reservations.Reserve)
			r.Get("/mine", reservations.ListMine)
			r.Patch("/{id}/cancel", reservations.Cancel)
			r.With(auth.RequireAdmin).Get("/", reservations.ListAll)
		})
	})

	return r
}
