// Package sqlite provides a single-file SQLite backend for debts. It runs
// without CGO and backs the test suite and single-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/punchamoorthee/debtops/internal/domain"
	"github.com/punchamoorthee/debtops/internal/ingest"
	"github.com/punchamoorthee/debtops/internal/service"
)

var (
	_ ingest.Store           = (*Store)(nil)
	_ service.DebtRepository = (*Store)(nil)
)

const debtColumns = `id, external_id, holder_name, holder_government_id, holder_email,
	amount, due_date, status, paid_amount, paid_by, paid_at`

// Store implements the debt repository on SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; a single connection queues writers in
	// database/sql instead of failing with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InBatch runs fn inside one transaction and commits when fn returns nil.
func (s *Store) InBatch(ctx context.Context, fn func(tx ingest.Inserter) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&batch{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type batch struct {
	tx *sql.Tx
}

// Insert runs under a savepoint so a rejected row leaves earlier rows of the
// batch in place.
func (b *batch) Insert(ctx context.Context, d *domain.Debt) error {
	if _, err := b.tx.ExecContext(ctx, "SAVEPOINT debt_insert"); err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}

	res, err := b.tx.ExecContext(ctx,
		`INSERT INTO debts (external_id, holder_name, holder_government_id, holder_email, amount, due_date, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ExternalID, d.HolderName, d.HolderGovernmentID, d.HolderEmail,
		d.Amount, d.DueDate.Format(domain.DateLayout), string(d.Status),
	)
	if err != nil {
		if _, rbErr := b.tx.ExecContext(ctx, "ROLLBACK TO debt_insert"); rbErr != nil {
			return fmt.Errorf("failed to roll back savepoint: %w", rbErr)
		}
		b.tx.ExecContext(ctx, "RELEASE debt_insert")
		return insertError(d.ExternalID, err)
	}

	if id, err := res.LastInsertId(); err == nil {
		d.ID = id
	}

	if _, err := b.tx.ExecContext(ctx, "RELEASE debt_insert"); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

func insertError(externalID string, err error) error {
	var liteErr *sqlitedriver.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			strings.Contains(liteErr.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateDebt, externalID)
		}
	}
	return fmt.Errorf("failed to insert debt: %w", err)
}

// FindByExternalID returns nil, nil when no debt has the given id.
func (s *Store) FindByExternalID(ctx context.Context, externalID string) (*domain.Debt, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+debtColumns+" FROM debts WHERE external_id = ?", externalID)
	d, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}
	return d, nil
}

// MarkPaid flips the debt to paid only if it is still in the expected
// status. False means another settlement got there first.
func (s *Store) MarkPaid(ctx context.Context, externalID string, expected domain.Status, amount decimal.Decimal, paidBy string, paidAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE debts
		 SET status = 'paid', paid_amount = ?, paid_by = ?, paid_at = ?
		 WHERE external_id = ? AND status = ?`,
		amount, paidBy, paidAt.UTC().Format(time.RFC3339Nano), externalID, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update debt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n == 1, nil
}

// ListPending returns the ids of every debt that is still pending.
func (s *Store) ListPending(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT external_id FROM debts WHERE status = 'pending' ORDER BY due_date, external_id")
	if err != nil {
		return nil, fmt.Errorf("failed to list pending debts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan debt id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending debts: %w", err)
	}
	return ids, nil
}

func scanDebt(row *sql.Row) (*domain.Debt, error) {
	var (
		d          domain.Debt
		status     string
		dueDate    string
		paidAmount decimal.NullDecimal
		paidBy     sql.NullString
		paidAt     sql.NullString
	)
	err := row.Scan(&d.ID, &d.ExternalID, &d.HolderName, &d.HolderGovernmentID, &d.HolderEmail,
		&d.Amount, &dueDate, &status, &paidAmount, &paidBy, &paidAt)
	if err != nil {
		return nil, err
	}

	d.Status = domain.Status(status)
	if d.DueDate, err = time.Parse(domain.DateLayout, dueDate); err != nil {
		return nil, fmt.Errorf("bad due_date %q: %w", dueDate, err)
	}
	if paidAmount.Valid {
		d.PaidAmount = &paidAmount.Decimal
	}
	if paidBy.Valid {
		d.PaidBy = &paidBy.String
	}
	if paidAt.Valid {
		at, err := time.Parse(time.RFC3339Nano, paidAt.String)
		if err != nil {
			return nil, fmt.Errorf("bad paid_at %q: %w", paidAt.String, err)
		}
		d.PaidAt = &at
	}
	return &d, nil
}
