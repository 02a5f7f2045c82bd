package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all insurance routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/insurance", func(r chi.Router) {
		r.Get("/{farmID}", h.HandleGet)
		r.Put("/{farmID}", h.HandlePut)
		r.Delete("/{farmID}", h.HandleDelete)
		r.Post("/{farmID}/estimate", h.HandleEstimate)
	})
}
