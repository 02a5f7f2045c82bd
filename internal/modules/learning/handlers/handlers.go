// Package handlers exposes the learned marketing profile over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/learning"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for learning endpoints
type Handler struct {
	service *learning.Service
	log     zerolog.Logger
}

// NewHandler creates a new learning handler
func NewHandler(service *learning.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "learning").Logger(),
	}
}

// HandleGetProfile handles GET /api/profiles/{userID}
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	profile, err := h.service.GetProfile(userID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			http.Error(w, notFound.Error(), http.StatusNotFound)
			return
		}
		h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to get profile")
		http.Error(w, "Failed to get profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(profile)
}

// RegisterRoutes registers all learning routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/profiles", func(r chi.Router) {
		r.Get("/{userID}", h.HandleGetProfile)
	})
}
