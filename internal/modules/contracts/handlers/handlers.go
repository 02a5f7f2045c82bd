// Package handlers provides HTTP handlers for grain contracts.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/contracts"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for contract endpoints
type Handler struct {
	repo *contracts.Repository
	log  zerolog.Logger
}

// NewHandler creates a new contracts handler
func NewHandler(repo *contracts.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "contracts").Logger(),
	}
}

// HandleList handles GET /api/contracts?business_id=...&commodity=...
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}

	var commodity *domain.Commodity
	if raw := r.URL.Query().Get("commodity"); raw != "" {
		c := domain.Commodity(raw)
		if !c.Valid() {
			http.Error(w, "unknown commodity", http.StatusBadRequest)
			return
		}
		commodity = &c
	}

	list, err := h.repo.List(businessID, commodity)
	if err != nil {
		h.log.Error().Err(err).Str("business_id", businessID).Msg("Failed to list contracts")
		http.Error(w, "Failed to list contracts", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*contracts.Contract{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

// HandleCreate handles POST /api/contracts
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var contract contracts.Contract
	if err := json.NewDecoder(r.Body).Decode(&contract); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := contract.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.repo.Create(&contract)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create contract")
		http.Error(w, "Failed to create contract", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// HandleGet handles GET /api/contracts/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	contract, err := h.repo.GetByID(id)
	if err != nil {
		h.respondError(w, err, "Failed to get contract")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contract)
}

// statusUpdate is the PATCH body for status transitions.
type statusUpdate struct {
	Status contracts.ContractStatus `json:"status"`
}

// HandleUpdateStatus handles PATCH /api/contracts/{id}/status
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update statusUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	switch update.Status {
	case contracts.StatusOpen, contracts.StatusFilled, contracts.StatusCancelled, contracts.StatusKnockedOut:
	default:
		http.Error(w, "Invalid status", http.StatusBadRequest)
		return
	}

	if err := h.repo.UpdateStatus(id, update.Status); err != nil {
		h.respondError(w, err, "Failed to update contract status")
		return
	}

	contract, err := h.repo.GetByID(id)
	if err != nil {
		h.respondError(w, err, "Failed to get contract")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contract)
}

// accumulationUpdate is the POST body for recording accumulated bushels.
type accumulationUpdate struct {
	Bushels int64 `json:"bushels"`
}

// HandleRecordAccumulation handles POST /api/contracts/{id}/accumulate
func (h *Handler) HandleRecordAccumulation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var update accumulationUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if update.Bushels <= 0 {
		http.Error(w, "bushels must be positive", http.StatusBadRequest)
		return
	}

	contract, err := h.repo.RecordAccumulation(id, update.Bushels)
	if err != nil {
		h.respondError(w, err, "Failed to record accumulation")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(contract)
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
