package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the settlement state of a debt.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// DateLayout is the wire and storage layout for due dates.
const DateLayout = "2006-01-02"

var (
	ErrDuplicateDebt       = errors.New("debt id already exists")
	ErrInconsistentPayment = errors.New("payment fields do not match status")
	ErrNonPositiveAmount   = errors.New("amount must be greater than zero")
)

// Debt is a single debt owed by a holder, keyed by the uploader's ExternalID.
// Payment fields are nil while the debt is pending and all set once it is paid.
type Debt struct {
	ID                 int64            `json:"-"`
	ExternalID         string           `json:"debt_id"`
	HolderName         string           `json:"name"`
	HolderGovernmentID string           `json:"government_id"`
	HolderEmail        string           `json:"email"`
	Amount             decimal.Decimal  `json:"debt_amount"`
	DueDate            time.Time        `json:"debt_due_date"`
	Status             Status           `json:"status"`
	PaidAmount         *decimal.Decimal `json:"paid_amount,omitempty"`
	PaidBy             *string          `json:"paid_by,omitempty"`
	PaidAt             *time.Time       `json:"paid_at,omitempty"`
}

// NewPendingDebt builds a debt in its initial state.
func NewPendingDebt(externalID, name, governmentID, email string, amount decimal.Decimal, due time.Time) *Debt {
	return &Debt{
		ExternalID:         externalID,
		HolderName:         name,
		HolderGovernmentID: governmentID,
		HolderEmail:        email,
		Amount:             amount,
		DueDate:            due,
		Status:             StatusPending,
	}
}

// Validate checks the invariants every stored debt must satisfy.
func (d *Debt) Validate() error {
	if !d.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	paidFields := 0
	if d.PaidAmount != nil {
		paidFields++
	}
	if d.PaidBy != nil {
		paidFields++
	}
	if d.PaidAt != nil {
		paidFields++
	}
	switch d.Status {
	case StatusPending:
		if paidFields != 0 {
			return ErrInconsistentPayment
		}
	case StatusPaid:
		if paidFields != 3 {
			return ErrInconsistentPayment
		}
	default:
		return errors.New("unknown status: " + string(d.Status))
	}
	return nil
}

// MarkPaid returns a copy of d in the paid state. It does not persist anything.
func (d Debt) MarkPaid(amount decimal.Decimal, by string, at time.Time) *Debt {
	d.Status = StatusPaid
	d.PaidAmount = &amount
	d.PaidBy = &by
	d.PaidAt = &at
	return &d
}

// IsOverdue reports whether a pending debt is past its due date on the given day.
func (d *Debt) IsOverdue(today time.Time) bool {
	return d.Status == StatusPending && d.DueDate.Before(truncateDay(today))
}

// DaysOverdue is the number of whole days since the due date, or zero if not yet due.
func (d *Debt) DaysOverdue(today time.Time) int {
	days := int(truncateDay(today).Sub(d.DueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	y, m, day := t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
