package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all contract routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/contracts", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/{id}", h.HandleGet)
		r.Patch("/{id}/status", h.HandleUpdateStatus)
		r.Post("/{id}/accumulate", h.HandleRecordAccumulation)
	})
}
