package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all preference routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/preferences", func(r chi.Router) {
		r.Get("/{businessID}", h.HandleGet)    // Read (lazily creates defaults)
		r.Put("/{businessID}", h.HandleUpdate) // Partial update
	})
}
