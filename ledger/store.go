package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MartyZhou/selenium-selector-autocorrect/locator"
)

// Schema for the correction archive table.
const Schema = `
CREATE TABLE IF NOT EXISTS selector_corrections (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	original_by     TEXT NOT NULL,
	original_value  TEXT NOT NULL,
	corrected_by    TEXT NOT NULL,
	corrected_value TEXT NOT NULL,
	success         INTEGER NOT NULL,
	test_file       TEXT DEFAULT '',
	test_line       INTEGER DEFAULT 0,
	recorded_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_corrections_recorded
	ON selector_corrections(recorded_at);
`

// Store archives correction records in SQLite so they survive the process.
// The in-memory Ledger stays authoritative for the current run; the store is
// an audit trail.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the schema.
func (s *Store) Init() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("ledger: init store: %w", err)
	}
	return nil
}

// Append writes one record.
func (s *Store) Append(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO selector_corrections (
			original_by, original_value, corrected_by, corrected_value,
			success, test_file, test_line, recorded_at
		) VALUES (?,?,?,?,?,?,?,?)`,
		string(rec.OriginalBy), rec.OriginalValue,
		string(rec.CorrectedBy), rec.CorrectedValue,
		rec.Success, rec.TestFile, rec.TestLine, rec.Timestamp.Unix())
	if err != nil {
		return fmt.Errorf("ledger: append: %w", err)
	}
	return nil
}

// Recent returns the latest n records, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT original_by, original_value, corrected_by, corrected_value,
		       success, test_file, test_line, recorded_at
		FROM selector_corrections
		ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("ledger: recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var origBy, corrBy string
		var ts int64
		if err := rows.Scan(&origBy, &rec.OriginalValue, &corrBy, &rec.CorrectedValue,
			&rec.Success, &rec.TestFile, &rec.TestLine, &ts); err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		rec.OriginalBy = locator.Strategy(origBy)
		rec.CorrectedBy = locator.Strategy(corrBy)
		rec.Timestamp = time.Unix(ts, 0)
		out = append(out, rec)
	}
	return out, rows.Err()
}
