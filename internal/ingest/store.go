package ingest

import (
	"context"

	"github.com/punchamoorthee/debtops/internal/domain"
)

// Inserter writes one debt inside an open batch transaction. A failed Insert
// must leave earlier inserts of the same batch intact.
//
//go:generate mockgen -destination=mocks/mock_store.go -source=store.go
type Inserter interface {
	Insert(ctx context.Context, debt *domain.Debt) error
}

// Store runs fn inside a single transaction and commits it when fn returns nil.
type Store interface {
	InBatch(ctx context.Context, fn func(tx Inserter) error) error
}
