package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/debtops/internal/domain"
)

// DebtRepository is the storage the settlement and reminder services read and
// write through.
//
//go:generate mockgen -destination=mocks/mock_repository.go -source=repository.go
type DebtRepository interface {
	// FindByExternalID returns nil and no error when the debt does not exist.
	FindByExternalID(ctx context.Context, externalID string) (*domain.Debt, error)

	// MarkPaid moves the debt to paid only if its current status equals
	// expected. It reports false when no row matched.
	MarkPaid(ctx context.Context, externalID string, expected domain.Status, amount decimal.Decimal, paidBy string, paidAt time.Time) (bool, error)

	// ListPending returns the external IDs of every pending debt.
	ListPending(ctx context.Context) ([]string, error)
}
