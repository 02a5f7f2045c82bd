// Package handlers provides HTTP handlers for marketing preferences.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainwise/grainwise/internal/modules/preferences"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for preference endpoints
type Handler struct {
	repo *preferences.Repository
	log  zerolog.Logger
}

// NewHandler creates a new preferences handler
func NewHandler(repo *preferences.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "preferences").Logger(),
	}
}

// HandleGet handles GET /api/preferences/{businessID}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	if businessID == "" {
		http.Error(w, "Business ID is required", http.StatusBadRequest)
		return
	}

	prefs, err := h.repo.GetOrCreate(businessID)
	if err != nil {
		h.log.Error().Err(err).Str("business_id", businessID).Msg("Failed to get preferences")
		http.Error(w, "Failed to get preferences", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prefs)
}

// HandleUpdate handles PUT /api/preferences/{businessID}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	businessID := chi.URLParam(r, "businessID")
	if businessID == "" {
		http.Error(w, "Business ID is required", http.StatusBadRequest)
		return
	}

	var update preferences.UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := update.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	prefs, err := h.repo.Update(businessID, &update)
	if err != nil {
		h.log.Error().Err(err).Str("business_id", businessID).Msg("Failed to update preferences")
		http.Error(w, "Failed to update preferences", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(prefs)
}
