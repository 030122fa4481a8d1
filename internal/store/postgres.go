package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/db"
	"github.com/sells-group/enrich-cli/internal/model"
)

const resultsTable = "enrichment_results"

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	schema  string
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32  `yaml:"min_conns" mapstructure:"min_conns"`
	Schema   string `yaml:"schema" mapstructure:"schema"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"insert_result": `INSERT INTO enrichment_results (id, contact_key, contact, email, phone, confidence, source, total_cost, lead_score, email_reliability, cancelled, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
	"get_result":    `SELECT contact, result FROM enrichment_results WHERE id = $1`,
	"spend_since":   `SELECT COALESCE(SUM(total_cost), 0) FROM enrichment_results WHERE created_at >= $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	var schema string
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
		schema = poolCfg.Schema
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	if schema != "" {
		pgxCfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, schema: schema, closeFn: pool.Close}, nil
}

// NewPostgresFromPool wraps an existing pool. schema may be empty.
func NewPostgresFromPool(pool db.Pool, schema string) *PostgresStore {
	return &PostgresStore{pool: pool, schema: schema}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS enrichment_results (
	id                TEXT PRIMARY KEY,
	contact_key       TEXT NOT NULL,
	contact           JSONB NOT NULL,
	email             TEXT NOT NULL DEFAULT '',
	phone             TEXT NOT NULL DEFAULT '',
	confidence        DOUBLE PRECISION NOT NULL DEFAULT 0,
	source            TEXT NOT NULL,
	total_cost        DOUBLE PRECISION NOT NULL DEFAULT 0,
	lead_score        INTEGER NOT NULL DEFAULT 0,
	email_reliability TEXT NOT NULL DEFAULT '',
	cancelled         BOOLEAN NOT NULL DEFAULT false,
	result            JSONB NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_results_contact_key ON enrichment_results(contact_key);
CREATE INDEX IF NOT EXISTS idx_results_source ON enrichment_results(source);
CREATE INDEX IF NOT EXISTS idx_results_created_at ON enrichment_results(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if s.schema != "" {
		if _, err := s.pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+pgx.Identifier{s.schema}.Sanitize()); err != nil {
			return eris.Wrapf(err, "postgres: create schema %s", s.schema)
		}
	}
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func pgTime(t time.Time) any { return t }

func (s *PostgresStore) SaveResult(ctx context.Context, contact model.ContactInput, result *model.EnrichmentResult) error {
	row, err := resultRow(contact, result, pgTime)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, preparedStatements["insert_result"], row...)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert result %s", result.ID)
	}
	return checkRowsAffected(tag.RowsAffected(), "insert result", result.ID)
}

func (s *PostgresStore) SaveResults(ctx context.Context, contacts []model.ContactInput, results []*model.EnrichmentResult) (int64, error) {
	if len(contacts) != len(results) {
		return 0, eris.Errorf("postgres: %d contacts for %d results", len(contacts), len(results))
	}

	rows := make([][]any, 0, len(results))
	for i, result := range results {
		if result == nil {
			continue
		}
		row, err := resultRow(contacts[i], result, pgTime)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}

	n, err := db.CopyRows(ctx, s.pool, db.Table(s.schema, resultsTable), resultColumns, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: save results")
	}
	return n, nil
}

func (s *PostgresStore) GetResult(ctx context.Context, id string) (*Record, error) {
	var contactJSON, resultJSON []byte
	err := s.pool.QueryRow(ctx, preparedStatements["get_result"], id).Scan(&contactJSON, &resultJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get result %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get result %s", id)
	}
	return decodeRecord(contactJSON, resultJSON)
}

func (s *PostgresStore) ListResults(ctx context.Context, filter ResultFilter) ([]Record, error) {
	query := `SELECT contact, result FROM enrichment_results WHERE 1=1`
	var args []any
	argIdx := 1

	if filter.Source != "" {
		query += fmt.Sprintf(" AND source = $%d", argIdx)
		args = append(args, filter.Source)
		argIdx++
	}
	if filter.FoundOnly {
		query += ` AND (email <> '' OR phone <> '')`
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since.UTC())
		argIdx++
	}
	query += ` ORDER BY created_at DESC, id`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list results")
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var contactJSON, resultJSON []byte
		if err := rows.Scan(&contactJSON, &resultJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		rec, err := decodeRecord(contactJSON, resultJSON)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list results iterate")
}

func (s *PostgresStore) SpendSince(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	if err := s.pool.QueryRow(ctx, preparedStatements["spend_since"], since.UTC()).Scan(&total); err != nil {
		return 0, eris.Wrap(err, "postgres: spend since")
	}
	return total, nil
}

func checkRowsAffected(n int64, op, id string) error {
	if n == 0 {
		return eris.Errorf("postgres: %s %s: no rows affected", op, id)
	}
	return nil
}
