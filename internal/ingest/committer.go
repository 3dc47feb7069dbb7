package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/punchamoorthee/debtops/internal/domain"
)

// MaxBatchSize bounds how many debts share one transaction.
const MaxBatchSize = 1000

var ErrBatchTooLarge = fmt.Errorf("batch exceeds %d records", MaxBatchSize)

// Entry is a normalized debt together with the row it came from.
type Entry struct {
	Row  int
	Debt *domain.Debt
}

// BatchResult is the outcome of committing one batch.
type BatchResult struct {
	Committed int
	Errors    []domain.RowError
}

// Committer persists batches of debts, one transaction per batch.
type Committer struct {
	store Store
}

func NewCommitter(store Store) *Committer {
	return &Committer{store: store}
}

// Commit inserts every entry of batch in one transaction. Records rejected by
// the store are reported and skipped; the rest of the batch still commits.
// The returned error is non-nil only for a cancelled context or a misuse such
// as an oversized batch.
func (c *Committer) Commit(ctx context.Context, batch []Entry) (BatchResult, error) {
	if len(batch) == 0 {
		return BatchResult{}, nil
	}
	if len(batch) > MaxBatchSize {
		return BatchResult{}, ErrBatchTooLarge
	}

	var rejected []domain.RowError
	inserted := make([]Entry, 0, len(batch))

	err := c.store.InBatch(ctx, func(tx Inserter) error {
		for _, e := range batch {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := e.Debt.Validate(); err != nil {
				rowErr := domain.StorageError(e.Row, e.Debt.ExternalID, err)
				rowErr.Kind = domain.KindValidation
				rejected = append(rejected, *rowErr)
				continue
			}
			if err := tx.Insert(ctx, e.Debt); err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				rejected = append(rejected, *domain.StorageError(e.Row, e.Debt.ExternalID, err))
				continue
			}
			inserted = append(inserted, e)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return BatchResult{}, err
		}
		// The transaction never committed, so nothing from this batch is stored.
		for _, e := range inserted {
			rejected = append(rejected, *domain.StorageError(e.Row, e.Debt.ExternalID,
				fmt.Errorf("batch rolled back: %w", err)))
		}
		return BatchResult{Errors: rejected}, nil
	}

	return BatchResult{Committed: len(inserted), Errors: rejected}, nil
}
