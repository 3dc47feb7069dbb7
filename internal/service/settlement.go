package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/debtops/internal/domain"
)

var (
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrDebtNotFound     = errors.New("debt not found")
	ErrAlreadySettled   = errors.New("debt already paid")
)

// Clock returns the current time. Tests inject a fixed one.
type Clock func() time.Time

type SettlementService struct {
	repo DebtRepository
	now  Clock
}

func NewSettlementService(repo DebtRepository, now Clock) *SettlementService {
	if now == nil {
		now = time.Now
	}
	return &SettlementService{repo: repo, now: now}
}

// ParseAmount converts a webhook amount into a decimal, rejecting anything
// that is not a plain number.
func ParseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: paid amount %q is not a number", ErrInvalidArguments, raw)
	}
	return amount, nil
}

// Settle records the payment of a pending debt. The status check and the write
// happen in one conditional update, so of two concurrent calls for the same
// debt exactly one succeeds and the other gets ErrAlreadySettled.
func (s *SettlementService) Settle(ctx context.Context, externalID string, paidAmount decimal.Decimal, paidBy string) (*domain.Debt, error) {
	externalID = strings.TrimSpace(externalID)
	paidBy = strings.TrimSpace(paidBy)

	// 1. Arguments
	if externalID == "" || paidBy == "" {
		return nil, fmt.Errorf("%w: debt id and payer are required", ErrInvalidArguments)
	}
	if !paidAmount.IsPositive() {
		return nil, fmt.Errorf("%w: paid amount must be greater than zero", ErrInvalidArguments)
	}

	// 2. Existence
	debt, err := s.repo.FindByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("debt lookup failed: %w", err)
	}
	if debt == nil {
		return nil, ErrDebtNotFound
	}

	// 3. Status (enforced again by the conditional update)
	if debt.Status != domain.StatusPending {
		return nil, ErrAlreadySettled
	}

	paidAt := s.now().UTC()
	updated, err := s.repo.MarkPaid(ctx, externalID, domain.StatusPending, paidAmount, paidBy, paidAt)
	if err != nil {
		return nil, fmt.Errorf("payment update failed: %w", err)
	}
	if !updated {
		return nil, ErrAlreadySettled
	}

	return debt.MarkPaid(paidAmount, paidBy, paidAt), nil
}
