// Package handlers provides HTTP handlers for break-even budgets.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/breakeven"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for budget endpoints
type Handler struct {
	repo *breakeven.Repository
	log  zerolog.Logger
}

// NewHandler creates a new breakeven handler
func NewHandler(repo *breakeven.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "breakeven").Logger(),
	}
}

// budgetView decorates a budget with its derived numbers.
type budgetView struct {
	*breakeven.Budget
	TotalCostPerAcre   float64 `json:"total_cost_per_acre"`
	BreakEvenPrice     float64 `json:"break_even_price"`
	ExpectedProduction int64   `json:"expected_production"`
}

func view(b *breakeven.Budget) budgetView {
	return budgetView{
		Budget:             b,
		TotalCostPerAcre:   b.TotalCostPerAcre(),
		BreakEvenPrice:     b.BreakEvenPrice(),
		ExpectedProduction: b.ExpectedProduction(),
	}
}

// HandleList handles GET /api/breakeven?business_id=...
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}

	budgets, err := h.repo.List(businessID)
	if err != nil {
		h.log.Error().Err(err).Str("business_id", businessID).Msg("Failed to list budgets")
		http.Error(w, "Failed to list budgets", http.StatusInternalServerError)
		return
	}

	views := make([]budgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, view(b))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// HandlePut handles PUT /api/breakeven
func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var budget breakeven.Budget
	if err := json.NewDecoder(r.Body).Decode(&budget); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := budget.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := h.repo.Upsert(&budget)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to upsert budget")
		http.Error(w, "Failed to save budget", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(view(saved))
}

// HandleDelete handles DELETE /api/breakeven/{businessID}/{commodity}/{cropYear}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	commodity := domain.Commodity(chi.URLParam(r, "commodity"))
	cropYear, err := strconv.Atoi(chi.URLParam(r, "cropYear"))
	if err != nil {
		http.Error(w, "Invalid crop year", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(businessID, commodity, cropYear); err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, notFound.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Msg("Failed to delete budget")
		http.Error(w, "Failed to delete budget", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers all breakeven routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/breakeven", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Put("/", h.HandlePut)
		r.Delete("/{businessID}/{commodity}/{cropYear}", h.HandleDelete)
	})
}
