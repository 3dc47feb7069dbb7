package sqlite

import "database/sql"

// Amounts are TEXT so decimals round-trip exactly; dates are YYYY-MM-DD and
// timestamps RFC 3339 in UTC.
const schema = `
CREATE TABLE IF NOT EXISTS debts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    external_id TEXT NOT NULL UNIQUE,
    holder_name TEXT NOT NULL,
    holder_government_id TEXT NOT NULL,
    holder_email TEXT NOT NULL,
    amount TEXT NOT NULL,
    due_date TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'paid')),
    paid_amount TEXT,
    paid_by TEXT,
    paid_at TEXT,
    created_at INTEGER NOT NULL DEFAULT (unixepoch()),
    CHECK (
        (status = 'pending' AND paid_amount IS NULL AND paid_by IS NULL AND paid_at IS NULL)
        OR (status = 'paid' AND paid_amount IS NOT NULL AND paid_by IS NOT NULL AND paid_at IS NOT NULL)
    )
);

CREATE INDEX IF NOT EXISTS idx_debts_pending ON debts(due_date) WHERE status = 'pending';
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
