package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Route("/equipment", func(r chi.Router) {
			r.Get("/", h.HandleListEquipment)
			r.Post("/", h.HandleCreateEquipment)
			r.Post("/{id}/sell", h.HandleSellEquipment)
		})
		r.Route("/loans", func(r chi.Router) {
			r.Get("/", h.HandleListLoans)
			r.Post("/", h.HandleCreateLoan)
			r.Get("/{id}", h.HandleGetLoan)
			r.Post("/{id}/payments", h.HandleRecordPayment)
			r.Get("/{id}/payments", h.HandleListPayments)
		})
	})
}
