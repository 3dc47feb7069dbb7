package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/punchamoorthee/debtops/internal/domain"
	"github.com/punchamoorthee/debtops/internal/ingest"
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

const debtColumns = `id, external_id, holder_name, holder_government_id, holder_email,
	amount, due_date, status, paid_amount, paid_by, paid_at`

var _ Repository = (*Postgres)(nil)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() error {
	s.pool.Close()
	return nil
}

// Migrate creates the debts table and its indexes if they are missing.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// InBatch runs fn in one read-committed transaction.
func (s *Postgres) InBatch(ctx context.Context, fn func(tx ingest.Inserter) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgBatch{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

type pgBatch struct {
	tx pgx.Tx
}

// Insert wraps each row in a savepoint: a constraint violation would
// otherwise abort the whole batch transaction.
func (b *pgBatch) Insert(ctx context.Context, d *domain.Debt) error {
	sp, err := b.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint failed: %w", err)
	}

	err = sp.QueryRow(ctx,
		`INSERT INTO debts (external_id, holder_name, holder_government_id, holder_email, amount, due_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		d.ExternalID, d.HolderName, d.HolderGovernmentID, d.HolderEmail,
		toNumeric(d.Amount), d.DueDate, string(d.Status),
	).Scan(&d.ID)
	if err != nil {
		sp.Rollback(ctx)
		return insertError(d.ExternalID, err)
	}

	return sp.Commit(ctx)
}

func insertError(externalID string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrDuplicateDebt, externalID)
		case pgCheckViolation:
			return fmt.Errorf("violates check %s", pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("insert failed: %w", err)
}

// FindByExternalID returns nil, nil when no debt has the given id.
func (s *Postgres) FindByExternalID(ctx context.Context, externalID string) (*domain.Debt, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+debtColumns+" FROM debts WHERE external_id = $1", externalID)
	d, err := scanDebt(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("debt query failed: %w", err)
	}
	return d, nil
}

// MarkPaid is a single conditional UPDATE; the row lock it takes serializes
// concurrent settlements and the loser matches zero rows.
func (s *Postgres) MarkPaid(ctx context.Context, externalID string, expected domain.Status, amount decimal.Decimal, paidBy string, paidAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE debts
		 SET status = 'paid', paid_amount = $3, paid_by = $4, paid_at = $5
		 WHERE external_id = $1 AND status = $2`,
		externalID, string(expected), toNumeric(amount), paidBy, paidAt,
	)
	if err != nil {
		return false, fmt.Errorf("payment update failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Postgres) ListPending(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT external_id FROM debts WHERE status = 'pending'")
	if err != nil {
		return nil, fmt.Errorf("pending query failed: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("pending scan failed: %w", err)
	}
	return ids, nil
}

// CopyDebts bulk-loads debts with COPY. Unlike InBatch it is all or nothing
// and is meant for seeding.
func (s *Postgres) CopyDebts(ctx context.Context, debts []*domain.Debt) (int64, error) {
	return s.pool.CopyFrom(ctx,
		pgx.Identifier{"debts"},
		[]string{"external_id", "holder_name", "holder_government_id", "holder_email", "amount", "due_date", "status"},
		pgx.CopyFromSlice(len(debts), func(i int) ([]any, error) {
			d := debts[i]
			return []any{d.ExternalID, d.HolderName, d.HolderGovernmentID, d.HolderEmail,
				toNumeric(d.Amount), d.DueDate, string(d.Status)}, nil
		}),
	)
}

func scanDebt(row pgx.Row) (*domain.Debt, error) {
	var (
		d          domain.Debt
		status     string
		amount     pgtype.Numeric
		paidAmount pgtype.Numeric
	)
	err := row.Scan(&d.ID, &d.ExternalID, &d.HolderName, &d.HolderGovernmentID, &d.HolderEmail,
		&amount, &d.DueDate, &status, &paidAmount, &d.PaidBy, &d.PaidAt)
	if err != nil {
		return nil, err
	}

	d.Status = domain.Status(status)
	d.Amount = fromNumeric(amount)
	if paidAmount.Valid {
		v := fromNumeric(paidAmount)
		d.PaidAmount = &v
	}
	if d.PaidAt != nil {
		utc := d.PaidAt.UTC()
		d.PaidAt = &utc
	}
	return &d, nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
