// Package ingest turns streamed CSV rows into stored debts. It validates each
// row on its own, commits accepted debts in bounded batches and reports every
// rejected row without stopping the import.
package ingest

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/debtops/internal/domain"
	"github.com/punchamoorthee/debtops/internal/gateway"
)

// dateLayouts are tried in order; slashed dates are read day first.
var dateLayouts = []string{
	domain.DateLayout,
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
	time.RFC3339,
}

var (
	errEmptyAmount = errors.New("empty amount")
	validate       = newValidator()
)

type holderFields struct {
	Name         string `csv:"name" validate:"required"`
	GovernmentID string `csv:"governmentId" validate:"required"`
	Email        string `csv:"email" validate:"required,email"`
	DebtID       string `csv:"debtId" validate:"required"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("csv")
	})
	return v
}

// Normalize converts one raw row into a pending debt. It never panics on bad
// input: any problem is returned as a RowError tagged with the row number.
func Normalize(row gateway.Row) (*domain.Debt, *domain.RowError) {
	holder := holderFields{
		Name:         strings.TrimSpace(row.Get(gateway.ColName)),
		GovernmentID: strings.TrimSpace(row.Get(gateway.ColGovernmentID)),
		Email:        strings.TrimSpace(row.Get(gateway.ColEmail)),
		DebtID:       strings.TrimSpace(row.Get(gateway.ColDebtID)),
	}

	if err := validate.Struct(holder); err != nil {
		rowErr := domain.ValidationError(row.Number, describeValidation(err, holder.Email))
		rowErr.DebtID = holder.DebtID
		return nil, rowErr
	}

	rawAmount := row.Get(gateway.ColDebtAmount)
	amount, err := ParseAmount(rawAmount)
	if err != nil {
		rowErr := domain.ParseError(row.Number, "invalid amount: "+rawAmount)
		rowErr.DebtID = holder.DebtID
		return nil, rowErr
	}
	if !amount.IsPositive() {
		rowErr := domain.ValidationError(row.Number, domain.ErrNonPositiveAmount.Error())
		rowErr.DebtID = holder.DebtID
		return nil, rowErr
	}

	rawDue := row.Get(gateway.ColDebtDueDate)
	due, err := ParseDate(rawDue)
	if err != nil {
		rowErr := domain.ParseError(row.Number, "invalid date: "+rawDue)
		rowErr.DebtID = holder.DebtID
		return nil, rowErr
	}

	return domain.NewPendingDebt(holder.DebtID, holder.Name, holder.GovernmentID, holder.Email, amount, due), nil
}

// ParseAmount keeps only ASCII digits and '.' and parses the rest as an exact
// decimal, so "R$ 1,000.50" becomes 1000.50.
func ParseAmount(raw string) (decimal.Decimal, error) {
	hasDigit := false
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
			return r
		case r == '.':
			return r
		default:
			return -1
		}
	}, raw)
	if !hasDigit {
		return decimal.Zero, errEmptyAmount
	}
	return decimal.NewFromString(cleaned)
}

// ParseDate accepts ISO dates and the common day-first forms.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func describeValidation(err error, email string) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	var missing []string
	var msgs []string
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		case "email":
			msgs = append(msgs, "invalid email: "+email)
		default:
			msgs = append(msgs, fe.Field()+" is invalid")
		}
	}
	if len(missing) > 0 {
		msgs = append([]string{"missing required fields: " + strings.Join(missing, ", ")}, msgs...)
	}
	return strings.Join(msgs, "; ")
}
