// Package store persists validation reports to PostgreSQL so runs can be
// compared over time.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiconform/api/schemas"
)

// ErrNotFound is returned when a report id is unknown.
var ErrNotFound = errors.New("report not found")

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS validation_reports (
    id           UUID PRIMARY KEY,
    target       TEXT NOT NULL,
    mode         TEXT NOT NULL,
    overall_pass BOOLEAN NOT NULL,
    errors       TEXT[] NOT NULL DEFAULT '{}',
    notes        TEXT[] NOT NULL DEFAULT '{}',
    screenshot   TEXT NOT NULL DEFAULT '',
    started_at   TIMESTAMPTZ NOT NULL,
    finished_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS check_results (
    report_id UUID NOT NULL REFERENCES validation_reports(id) ON DELETE CASCADE,
    name      TEXT NOT NULL,
    status    TEXT NOT NULL,
    message   TEXT NOT NULL,
    evidence  JSONB NOT NULL DEFAULT '{}',
    facets    JSONB NOT NULL DEFAULT '[]',
    PRIMARY KEY (report_id, name)
);
CREATE INDEX IF NOT EXISTS validation_reports_started_at_idx ON validation_reports (started_at DESC);
`

const (
	sqlInsertReport = `
        INSERT INTO validation_reports (id, target, mode, overall_pass, errors, notes, screenshot, started_at, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
    `
	sqlListReports = `
        SELECT id, target, mode, overall_pass, cardinality(errors), started_at, finished_at
        FROM validation_reports
        ORDER BY started_at DESC
        LIMIT $1;
    `
	sqlGetReport = `
        SELECT id, target, mode, overall_pass, errors, notes, screenshot, started_at, finished_at
        FROM validation_reports
        WHERE id = $1;
    `
	sqlGetResults = `
        SELECT name, status, message, evidence, facets
        FROM check_results
        WHERE report_id = $1;
    `
)

var checkResultColumns = []string{"report_id", "name", "status", "message", "evidence", "facets"}

// ReportSummary is one row of the run history.
type ReportSummary struct {
	ID          uuid.UUID
	Target      string
	Mode        schemas.RunMode
	OverallPass bool
	ErrorCount  int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Store persists validation reports in PostgreSQL.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the report tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveReport writes the report header and its five check results in one
// transaction.
func (s *Store) SaveReport(ctx context.Context, report *schemas.ValidationReport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.Exec(ctx, sqlInsertReport,
		report.ID, report.Target, string(report.Mode), report.OverallPass,
		nonNil(report.Errors), nonNil(report.Notes), report.Screenshot,
		report.TimestampStart.UTC(), report.TimestampEnd.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", report.ID, err)
	}

	if err := s.persistResults(ctx, tx, report); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Persisted report", zap.String("report_id", report.ID.String()))
	return nil
}

func (s *Store) persistResults(ctx context.Context, tx pgx.Tx, report *schemas.ValidationReport) error {
	results := report.Ordered()
	rows := make([][]interface{}, 0, len(results))
	for _, res := range results {
		evidence, err := marshalJSON(res.Evidence, "{}")
		if err != nil {
			return fmt.Errorf("failed to encode evidence for %s: %w", res.Name, err)
		}
		facets, err := marshalJSON(res.Facets, "[]")
		if err != nil {
			return fmt.Errorf("failed to encode facets for %s: %w", res.Name, err)
		}
		rows = append(rows, []interface{}{
			report.ID, string(res.Name), string(res.Status), res.Message, evidence, facets,
		})
	}

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"check_results"}, checkResultColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy check results: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied check results count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}

// ListReports returns up to limit reports, newest first.
func (s *Store) ListReports(ctx context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, sqlListReports, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	var out []ReportSummary
	for rows.Next() {
		var r ReportSummary
		var mode string
		if err := rows.Scan(&r.ID, &r.Target, &mode, &r.OverallPass, &r.ErrorCount, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		r.Mode = schemas.RunMode(mode)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return out, nil
}

// GetReport loads a full report by id.
func (s *Store) GetReport(ctx context.Context, id uuid.UUID) (*schemas.ValidationReport, error) {
	r := &schemas.ValidationReport{Results: make(map[schemas.CheckName]*schemas.CheckResult, len(schemas.AllChecks))}
	var mode string
	err := s.pool.QueryRow(ctx, sqlGetReport, id).Scan(
		&r.ID, &r.Target, &mode, &r.OverallPass, &r.Errors, &r.Notes, &r.Screenshot, &r.TimestampStart, &r.TimestampEnd,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report %s: %w", id, err)
	}
	r.Mode = schemas.RunMode(mode)

	rows, err := s.pool.Query(ctx, sqlGetResults, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query check results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, status string
		var evidence, facets []byte
		res := &schemas.CheckResult{}
		if err := rows.Scan(&name, &status, &res.Message, &evidence, &facets); err != nil {
			return nil, fmt.Errorf("failed to scan check result row: %w", err)
		}
		checkName, err := schemas.ParseCheckName(name)
		if err != nil {
			return nil, fmt.Errorf("failed to decode check result: %w", err)
		}
		res.Name = checkName
		res.Status = schemas.Status(status)
		if err := unmarshalJSON(evidence, &res.Evidence); err != nil {
			return nil, fmt.Errorf("failed to decode evidence for %s: %w", name, err)
		}
		if err := unmarshalJSON(facets, &res.Facets); err != nil {
			return nil, fmt.Errorf("failed to decode facets for %s: %w", name, err)
		}
		r.Results[res.Name] = res
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// marshalJSON encodes v, substituting empty for nil or null values so the
// JSONB columns never hold SQL NULL.
func marshalJSON(v interface{}, empty string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || string(b) == "null" {
		return []byte(empty), nil
	}
	return b, nil
}

func unmarshalJSON(b []byte, v interface{}) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}
