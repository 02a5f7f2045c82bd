// Package handlers provides HTTP handlers for marketing signals.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/signals"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for signal endpoints
type Handler struct {
	service *signals.Service
	log     zerolog.Logger
}

// NewHandler creates a new signals handler
func NewHandler(service *signals.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "signals").Logger(),
	}
}

// HandleList handles GET /api/signals?business_id=...&status=...
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}

	var status *domain.SignalStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.SignalStatus(raw)
		status = &s
	}

	list, err := h.service.List(businessID, status)
	if err != nil {
		h.log.Error().Err(err).Str("business_id", businessID).Msg("Failed to list signals")
		http.Error(w, "Failed to list signals", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*signals.MarketingSignal{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleGet handles GET /api/signals/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	signal, err := h.service.Get(id)
	if err != nil {
		h.respondError(w, err, "Failed to get signal")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(signal)
}

// HandleDismiss handles POST /api/signals/{id}/dismiss
func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Dismiss(id); err != nil {
		h.respondError(w, err, "Failed to dismiss signal")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "dismissed"})
}

// HandleAct handles POST /api/signals/{id}/act
func (h *Handler) HandleAct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req signals.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.Bushels <= 0 {
		http.Error(w, "bushels must be positive", http.StatusBadRequest)
		return
	}

	signal, err := h.service.Act(id, req)
	if err != nil {
		h.respondError(w, err, "Failed to record action")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(signal)
}

// HandleGenerate handles POST /api/signals/generate — the admin trigger
// for an immediate generation pass.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")

	var report *signals.GenerationReport
	var err error
	if businessID != "" {
		report, err = h.service.GenerateForBusiness(r.Context(), businessID)
	} else {
		report, err = h.service.GenerateAll(r.Context())
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Manual signal generation failed")
		http.Error(w, "Signal generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
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
