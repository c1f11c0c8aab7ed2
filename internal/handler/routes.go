package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nfps-events/ticketing/internal/auth"
)

// NewRouter builds the complete HTTP API. Authorisation is enforced by the
// services; the router only resolves the caller's identity.
func NewRouter(h *Handler, issuer *auth.Issuer, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))          // structured access log
	r.Use(CORS)
	r.Use(auth.Middleware(issuer, logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})

	// Health
	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Get("/{id}/quote", h.QuoteEvent)
		r.Post("/{id}/intent", h.Intent)
		r.Post("/{id}/registrations", h.Submit)
	})
	r.Get("/me/registrations", h.MyRegistrations)
	r.Get("/tickets/{code}", h.GetTicket)
	r.Get("/payment-methods", h.ListActivePaymentMethods)

	r.Route("/admin", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Get("/", h.Dashboard)
			r.Post("/", h.CreateEvent)
			r.Put("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
			r.Get("/{id}/registrations", h.EventRegistrations)
		})
		r.Route("/registrations", func(r chi.Router) {
			r.Get("/", h.ListRegistrations)
			r.Post("/{id}/approve", h.Approve)
			r.Post("/{id}/reject", h.Reject)
		})
		r.Route("/payment-methods", func(r chi.Router) {
			r.Get("/", h.ListPaymentMethods)
			r.Post("/", h.CreatePaymentMethod)
			r.Put("/{id}", h.UpdatePaymentMethod)
		})
	})

	return r
}
