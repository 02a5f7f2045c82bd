// Package handlers provides HTTP handlers for the equipment and loan
// ledger.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/grainwise/grainwise/internal/modules/ledger"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for ledger endpoints
type Handler struct {
	repo *ledger.Repository
	log  zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(repo *ledger.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "ledger").Logger(),
	}
}

// equipmentView decorates a machine with its derived depreciation
// figures.
type equipmentView struct {
	*ledger.Equipment
	AnnualDepreciation float64 `json:"annual_depreciation"`
	BookValue          float64 `json:"book_value"`
}

func newEquipmentView(e *ledger.Equipment, now time.Time) equipmentView {
	yearsHeld := now.Sub(time.Unix(e.PurchaseDate, 0)).Hours() / 24 / 365.25
	if e.SoldAt != nil {
		yearsHeld = time.Unix(*e.SoldAt, 0).Sub(time.Unix(e.PurchaseDate, 0)).Hours() / 24 / 365.25
	}
	return equipmentView{
		Equipment:          e,
		AnnualDepreciation: e.AnnualDepreciation(),
		BookValue:          e.BookValue(yearsHeld),
	}
}

// HandleListEquipment handles GET /api/ledger/equipment?business_id=...
func (h *Handler) HandleListEquipment(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}

	list, err := h.repo.ListEquipment(businessID)
	if err != nil {
		h.log.Error().Err(err).Str("business_id", businessID).Msg("Failed to list equipment")
		http.Error(w, "Failed to list equipment", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	views := make([]equipmentView, 0, len(list))
	for _, e := range list {
		views = append(views, newEquipmentView(e, now))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// HandleCreateEquipment handles POST /api/ledger/equipment
func (h *Handler) HandleCreateEquipment(w http.ResponseWriter, r *http.Request) {
	var equipment ledger.Equipment
	if err := json.NewDecoder(r.Body).Decode(&equipment); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if equipment.PurchaseDate == 0 {
		equipment.PurchaseDate = time.Now().Unix()
	}
	if err := equipment.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.repo.CreateEquipment(&equipment)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create equipment")
		http.Error(w, "Failed to create equipment", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(newEquipmentView(created, time.Now()))
}

// saleRequest is the POST body for recording an equipment sale.
type saleRequest struct {
	SoldPrice float64 `json:"sold_price"`
	SoldAt    int64   `json:"sold_at"`
}

// HandleSellEquipment handles POST /api/ledger/equipment/{id}/sell
func (h *Handler) HandleSellEquipment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req saleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.SoldPrice < 0 {
		http.Error(w, "sold_price must not be negative", http.StatusBadRequest)
		return
	}
	if req.SoldAt == 0 {
		req.SoldAt = time.Now().Unix()
	}

	if err := h.repo.MarkEquipmentSold(id, req.SoldAt, req.SoldPrice); err != nil {
		h.respondError(w, err, "Failed to record equipment sale")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loanView decorates a loan with its payment figures.
type loanView struct {
	*ledger.Loan
	MonthlyPayment     float64 `json:"monthly_payment"`
	OutstandingBalance float64 `json:"outstanding_balance"`
}

// HandleListLoans handles GET /api/ledger/loans?business_id=...
func (h *Handler) HandleListLoans(w http.ResponseWriter, r *http.Request) {
	businessID := r.URL.Query().Get("business_id")
	if businessID == "" {
		http.Error(w, "business_id is required", http.StatusBadRequest)
		return
	}

	list, err := h.repo.ListLoans(businessID)
	if err != nil {
		h.log.Error().Err(err).Str("business_id", businessID).Msg("Failed to list loans")
		http.Error(w, "Failed to list loans", http.StatusInternalServerError)
		return
	}

	views := make([]loanView, 0, len(list))
	for _, l := range list {
		balance, err := h.repo.OutstandingBalance(l.ID)
		if err != nil {
			h.log.Warn().Err(err).Str("loan_id", l.ID).Msg("Failed to compute outstanding balance")
		}
		views = append(views, loanView{Loan: l, MonthlyPayment: l.MonthlyPayment(), OutstandingBalance: balance})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

// HandleCreateLoan handles POST /api/ledger/loans
func (h *Handler) HandleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var loan ledger.Loan
	if err := json.NewDecoder(r.Body).Decode(&loan); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if loan.StartDate == 0 {
		loan.StartDate = time.Now().Unix()
	}
	if err := loan.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := h.repo.CreateLoan(&loan)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to create loan")
		http.Error(w, "Failed to create loan", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(loanView{Loan: created, MonthlyPayment: created.MonthlyPayment(), OutstandingBalance: created.Principal})
}

// HandleGetLoan handles GET /api/ledger/loans/{id}
func (h *Handler) HandleGetLoan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	loan, err := h.repo.GetLoan(id)
	if err != nil {
		h.respondError(w, err, "Failed to get loan")
		return
	}
	balance, err := h.repo.OutstandingBalance(id)
	if err != nil {
		h.respondError(w, err, "Failed to compute outstanding balance")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(loanView{Loan: loan, MonthlyPayment: loan.MonthlyPayment(), OutstandingBalance: balance})
}

// paymentRequest is the POST body for recording a loan payment.
type paymentRequest struct {
	Amount float64 `json:"amount"`
}

// HandleRecordPayment handles POST /api/ledger/loans/{id}/payments
func (h *Handler) HandleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 {
		http.Error(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	payment, err := h.repo.RecordPayment(id, req.Amount)
	if err != nil {
		h.respondError(w, err, "Failed to record payment")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(payment)
}

// HandleListPayments handles GET /api/ledger/loans/{id}/payments
func (h *Handler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.repo.GetLoan(id); err != nil {
		h.respondError(w, err, "Failed to get loan")
		return
	}

	payments, err := h.repo.ListPayments(id)
	if err != nil {
		h.log.Error().Err(err).Str("loan_id", id).Msg("Failed to list payments")
		http.Error(w, "Failed to list payments", http.StatusInternalServerError)
		return
	}
	if payments == nil {
		payments = []*ledger.Payment{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payments)
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
