package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all signal routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/signals", func(r chi.Router) {
		r.Get("/", h.HandleList)              // List by business, optional status filter
		r.Post("/generate", h.HandleGenerate) // Admin: run a generation pass now
		r.Get("/{id}", h.HandleGet)           // Read (stamps viewed_at)
		r.Post("/{id}/dismiss", h.HandleDismiss)
		r.Post("/{id}/act", h.HandleAct) // Record a decision
	})
}
