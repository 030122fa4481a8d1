package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/enrich-cli/internal/model"
)

// sqliteTimeFormat sorts lexically in time order.
const sqliteTimeFormat = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS enrichment_results (
	id                TEXT PRIMARY KEY,
	contact_key       TEXT NOT NULL,
	contact           TEXT NOT NULL,
	email             TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	confidence        REAL NOT NULL DEFAULT 0,
	source            TEXT NOT NULL,
	total_cost        REAL NOT NULL DEFAULT 0,
	lead_score        INTEGER NOT NULL DEFAULT 0,
	email_reliability TEXT NOT NULL DEFAULT '',
	cancelled         INTEGER NOT NULL DEFAULT 0,
	result            TEXT NOT NULL,
	created_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_results_contact_key ON enrichment_results(contact_key);
CREATE INDEX IF NOT EXISTS idx_results_source ON enrichment_results(source);
CREATE INDEX IF NOT EXISTS idx_results_created_at ON enrichment_results(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func sqliteTime(t time.Time) any {
	return t.UTC().Format(sqliteTimeFormat)
}

var sqliteInsert = `INSERT INTO enrichment_results (` + strings.Join(resultColumns, ", ") +
	`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (s *SQLiteStore) SaveResult(ctx context.Context, contact model.ContactInput, result *model.EnrichmentResult) error {
	row, err := resultRow(contact, result, sqliteTime)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, sqliteInsert, sqliteArgs(row)...); err != nil {
		return eris.Wrapf(err, "sqlite: insert result %s", result.ID)
	}
	return nil
}

func (s *SQLiteStore) SaveResults(ctx context.Context, contacts []model.ContactInput, results []*model.EnrichmentResult) (int64, error) {
	if len(contacts) != len(results) {
		return 0, eris.Errorf("sqlite: %d contacts for %d results", len(contacts), len(results))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteInsert)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	var n int64
	for i, result := range results {
		if result == nil {
			continue
		}
		row, err := resultRow(contacts[i], result, sqliteTime)
		if err != nil {
			return 0, err
		}
		if _, err := stmt.ExecContext(ctx, sqliteArgs(row)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert result %s", result.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return n, nil
}

func (s *SQLiteStore) GetResult(ctx context.Context, id string) (*Record, error) {
	var contactJSON, resultJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT contact, result FROM enrichment_results WHERE id = ?`, id,
	).Scan(&contactJSON, &resultJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get result %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get result %s", id)
	}
	return decodeRecord([]byte(contactJSON), []byte(resultJSON))
}

func (s *SQLiteStore) ListResults(ctx context.Context, filter ResultFilter) ([]Record, error) {
	query := `SELECT contact, result FROM enrichment_results WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, filter.Source)
	}
	if filter.FoundOnly {
		query += ` AND (email != '' OR phone != '')`
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, sqliteTime(filter.Since))
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list results")
	}
	defer rows.Close() //nolint:errcheck

	var records []Record
	for rows.Next() {
		var contactJSON, resultJSON string
		if err := rows.Scan(&contactJSON, &resultJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		rec, err := decodeRecord([]byte(contactJSON), []byte(resultJSON))
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list results iterate")
}

func (s *SQLiteStore) SpendSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(total_cost), 0) FROM enrichment_results WHERE created_at >= ?`,
		sqliteTime(since),
	).Scan(&total)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: spend since")
	}
	return total, nil
}

// sqliteArgs stores JSON columns as TEXT.
func sqliteArgs(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if b, ok := v.([]byte); ok {
			out[i] = string(b)
			continue
		}
		out[i] = v
	}
	return out
}
