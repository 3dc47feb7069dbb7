// Package store holds the storage backends for debts. Postgres is the
// production backend; the sqlite subpackage serves tests and single-node use.
package store

import (
	"context"
	"fmt"

	"github.com/punchamoorthee/debtops/internal/ingest"
	"github.com/punchamoorthee/debtops/internal/service"
	"github.com/punchamoorthee/debtops/internal/store/sqlite"
)

// Repository is everything the importer, the settlement webhook and the
// reminder job need from a backend.
type Repository interface {
	ingest.Store
	service.DebtRepository
	Close() error
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured backend and makes sure the schema exists.
func Open(ctx context.Context, driver, source string) (Repository, error) {
	switch driver {
	case DriverPostgres:
		pg, err := NewPostgres(ctx, source)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case DriverSQLite:
		lite, err := sqlite.New(source)
		if err != nil {
			return nil, err
		}
		return lite, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS debts (
    id BIGSERIAL PRIMARY KEY,
    external_id TEXT NOT NULL,
    holder_name TEXT NOT NULL,
    holder_government_id TEXT NOT NULL,
    holder_email TEXT NOT NULL,
    amount NUMERIC NOT NULL,
    due_date DATE NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    paid_amount NUMERIC,
    paid_by TEXT,
    paid_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT debts_external_id_key UNIQUE (external_id),
    CONSTRAINT debts_amount_positive CHECK (amount > 0),
    CONSTRAINT debts_status_known CHECK (status IN ('pending', 'paid')),
    CONSTRAINT debts_payment_consistent CHECK (
        (status = 'pending' AND paid_amount IS NULL AND paid_by IS NULL AND paid_at IS NULL)
        OR (status = 'paid' AND paid_amount IS NOT NULL AND paid_by IS NOT NULL AND paid_at IS NOT NULL)
    )
);

CREATE INDEX IF NOT EXISTS idx_debts_pending ON debts (due_date) WHERE status = 'pending';
`
