package ledger

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/grainwise/grainwise/internal/database"
	"github.com/grainwise/grainwise/internal/domain"
	"github.com/rs/zerolog"
)

// Repository handles equipment and loan rows in ledger.db.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new ledger repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "ledger").Logger(),
	}
}

// CreateEquipment inserts a machine.
func (r *Repository) CreateEquipment(e *Equipment) (*Equipment, error) {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().Unix()

	_, err := r.db.Exec(`
		INSERT INTO equipment
			(id, business_id, name, category, purchase_date, purchase_price,
			 salvage_value, useful_life_years, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.BusinessID, e.Name, e.Category, e.PurchaseDate, e.PurchasePrice,
		e.SalvageValue, e.UsefulLifeYears, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert equipment: %w", err)
	}
	return e, nil
}

// ListEquipment returns a business's machines.
func (r *Repository) ListEquipment(businessID string) ([]*Equipment, error) {
	rows, err := r.db.Query(`
		SELECT id, business_id, name, category, purchase_date, purchase_price,
		       salvage_value, useful_life_years, sold_at, sold_price, created_at
		FROM equipment
		WHERE business_id = ?
		ORDER BY purchase_date DESC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	defer rows.Close()

	var out []*Equipment
	for rows.Next() {
		var e Equipment
		if err := rows.Scan(&e.ID, &e.BusinessID, &e.Name, &e.Category,
			&e.PurchaseDate, &e.PurchasePrice, &e.SalvageValue, &e.UsefulLifeYears,
			&e.SoldAt, &e.SoldPrice, &e.CreatedAt); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan equipment row")
			continue
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// MarkEquipmentSold records a sale.
func (r *Repository) MarkEquipmentSold(id string, soldAt int64, soldPrice float64) error {
	result, err := r.db.Exec(`
		UPDATE equipment SET sold_at = ?, sold_price = ? WHERE id = ? AND sold_at IS NULL
	`, soldAt, soldPrice, id)
	if err != nil {
		return fmt.Errorf("failed to mark equipment sold: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.NewNotFound("equipment", id)
	}
	return nil
}

// CreateLoan inserts a loan.
func (r *Repository) CreateLoan(l *Loan) (*Loan, error) {
	l.ID = uuid.New().String()
	if l.Status == "" {
		l.Status = LoanActive
	}
	l.CreatedAt = time.Now().Unix()

	_, err := r.db.Exec(`
		INSERT INTO loans
			(id, business_id, lender, purpose, principal, annual_rate,
			 term_months, start_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, l.ID, l.BusinessID, l.Lender, l.Purpose, l.Principal, l.AnnualRate,
		l.TermMonths, l.StartDate, l.Status, l.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert loan: %w", err)
	}
	return l, nil
}

// GetLoan fetches one loan.
func (r *Repository) GetLoan(id string) (*Loan, error) {
	var l Loan
	err := r.db.QueryRow(`
		SELECT id, business_id, lender, purpose, principal, annual_rate,
		       term_months, start_date, status, created_at
		FROM loans WHERE id = ?
	`, id).Scan(&l.ID, &l.BusinessID, &l.Lender, &l.Purpose, &l.Principal,
		&l.AnnualRate, &l.TermMonths, &l.StartDate, &l.Status, &l.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NewNotFound("loan", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get loan %s: %w", id, err)
	}
	return &l, nil
}

// ListLoans returns a business's loans.
func (r *Repository) ListLoans(businessID string) ([]*Loan, error) {
	rows, err := r.db.Query(`
		SELECT id, business_id, lender, purpose, principal, annual_rate,
		       term_months, start_date, status, created_at
		FROM loans
		WHERE business_id = ?
		ORDER BY start_date DESC
	`, businessID)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var out []*Loan
	for rows.Next() {
		var l Loan
		if err := rows.Scan(&l.ID, &l.BusinessID, &l.Lender, &l.Purpose, &l.Principal,
			&l.AnnualRate, &l.TermMonths, &l.StartDate, &l.Status, &l.CreatedAt); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan loan row")
			continue
		}
		out = append(out, &l)
	}
	return out, rows.Err()
}

// OutstandingBalance is the principal remaining on a loan.
func (r *Repository) OutstandingBalance(loanID string) (float64, error) {
	loan, err := r.GetLoan(loanID)
	if err != nil {
		return 0, err
	}

	var paid float64
	err = r.db.QueryRow(
		"SELECT COALESCE(SUM(principal_portion), 0) FROM loan_payments WHERE loan_id = ?",
		loanID).Scan(&paid)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}

	balance := loan.Principal - paid
	if balance < 0 {
		balance = 0
	}
	return balance, nil
}

// RecordPayment splits a payment against the outstanding balance and
// records it; a loan that reaches zero flips to PAID_OFF in the same
// transaction.
func (r *Repository) RecordPayment(loanID string, amount float64) (*Payment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}

	loan, err := r.GetLoan(loanID)
	if err != nil {
		return nil, err
	}
	outstanding, err := r.OutstandingBalance(loanID)
	if err != nil {
		return nil, err
	}
	if outstanding == 0 {
		return nil, fmt.Errorf("loan %s is already paid off", loanID)
	}

	principal, interest := loan.SplitPayment(outstanding, amount)
	payment := &Payment{
		ID:               uuid.New().String(),
		LoanID:           loanID,
		PaidAt:           time.Now().Unix(),
		Amount:           amount,
		PrincipalPortion: principal,
		InterestPortion:  interest,
	}

	err = database.WithTransaction(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO loan_payments
				(id, loan_id, paid_at, amount, principal_portion, interest_portion)
			VALUES (?, ?, ?, ?, ?, ?)
		`, payment.ID, payment.LoanID, payment.PaidAt, payment.Amount,
			payment.PrincipalPortion, payment.InterestPortion)
		if err != nil {
			return fmt.Errorf("failed to insert payment: %w", err)
		}

		if outstanding-principal <= 0.005 {
			if _, err := tx.Exec(
				"UPDATE loans SET status = 'PAID_OFF' WHERE id = ?", loanID); err != nil {
				return fmt.Errorf("failed to close loan: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// ListPayments returns a loan's payment history, oldest first.
func (r *Repository) ListPayments(loanID string) ([]*Payment, error) {
	rows, err := r.db.Query(`
		SELECT id, loan_id, paid_at, amount, principal_portion, interest_portion
		FROM loan_payments
		WHERE loan_id = ?
		ORDER BY paid_at ASC
	`, loanID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.LoanID, &p.PaidAt, &p.Amount,
			&p.PrincipalPortion, &p.InterestPortion); err != nil {
			r.log.Warn().Err(err).Msg("Failed to scan payment row")
			continue
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
