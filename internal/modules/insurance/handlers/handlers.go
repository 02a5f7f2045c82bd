// Package handlers provides HTTP handlers for crop insurance policies.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/insurance"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for insurance endpoints
type Handler struct {
	repo *insurance.Repository
	log  zerolog.Logger
}

// NewHandler creates a new insurance handler
func NewHandler(repo *insurance.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "insurance").Logger(),
	}
}

// HandleGet handles GET /api/insurance/{farmID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	farmID := chi.URLParam(r, "farmID")

	policy, err := h.repo.GetByFarm(farmID)
	if err != nil {
		h.respondError(w, err, "Failed to get policy")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(policy)
}

// HandlePut handles PUT /api/insurance/{farmID}
func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	farmID := chi.URLParam(r, "farmID")

	var policy insurance.Policy
	if err := json.NewDecoder(r.Body).Decode(&policy); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	policy.FarmID = farmID
	if err := policy.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	saved, err := h.repo.Upsert(&policy)
	if err != nil {
		h.log.Error().Err(err).Str("farm_id", farmID).Msg("Failed to upsert policy")
		http.Error(w, "Failed to save policy", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(saved)
}

// HandleDelete handles DELETE /api/insurance/{farmID}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	farmID := chi.URLParam(r, "farmID")

	if err := h.repo.Delete(farmID); err != nil {
		h.respondError(w, err, "Failed to delete policy")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleEstimate handles POST /api/insurance/{farmID}/estimate — the
// on-demand indemnity calculation. Nothing is persisted.
func (h *Handler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	farmID := chi.URLParam(r, "farmID")

	var req insurance.EstimateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	policy, err := h.repo.GetByFarm(farmID)
	if err != nil {
		h.respondError(w, err, "Failed to get policy")
		return
	}

	breakdown := insurance.Estimate(policy, req.ActualYield, req.HarvestPrice, req.County)
	premium := policy.PremiumPerAcre
	if policy.SCOEnabled {
		premium += policy.SCOPremium
	}
	if policy.ECOEnabled {
		premium += policy.ECOPremium
	}

	resp := insurance.EstimateResponse{
		Breakdown:      breakdown,
		PremiumPerAcre: premium,
		NetPerAcre:     breakdown.Total - premium,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) respondError(w http.ResponseWriter, err error, msg string) {
	var notFound *domain.NotFoundError
	if errors.As(err, &notFound) {
		http.Error(w, notFound.Error(), http.StatusNotFound)
		return
	}
	h.log.Error().Err(err).Msg(msg)
	http.Error(w, msg, http.StatusInternalServerError)
}
