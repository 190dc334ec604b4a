package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/vetting-cli/internal/model"
)

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
CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	slug        TEXT NOT NULL UNIQUE,
	entity_type TEXT NOT NULL,
	subject     TEXT NOT NULL,
	worst_flag  TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	payload     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_reports_entity_type ON reports(entity_type);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveReport(ctx context.Context, r *model.Report) error {
	payload, err := prepare(r)
	if err != nil {
		return err
	}

	var id string
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO reports (id, slug, entity_type, subject, worst_flag, error, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(slug) DO UPDATE SET
			entity_type = excluded.entity_type,
			subject     = excluded.subject,
			worst_flag  = excluded.worst_flag,
			error       = excluded.error,
			payload     = excluded.payload,
			created_at  = excluded.created_at
		 RETURNING id`,
		r.ID, r.Slug, string(r.EntityType), r.Subject, r.WorstFlag(), r.Error, string(payload), r.CreatedAt,
	).Scan(&id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save report %s", r.Slug)
	}
	r.ID = id
	return nil
}

func (s *SQLiteStore) GetReport(ctx context.Context, key string) (*model.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, payload, created_at FROM reports WHERE id = ? OR slug = ? LIMIT 1`,
		key, key,
	)
	r, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get report %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", key)
	}
	return r, nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error) {
	query := `SELECT id, payload, created_at FROM reports WHERE 1=1`
	var args []any

	if filter.EntityType != "" {
		query += ` AND entity_type = ?`
		args = append(args, string(filter.EntityType))
	}
	if !filter.CreatedAfter.IsZero() {
		query += ` AND created_at > ?`
		args = append(args, filter.CreatedAfter.UTC())
	}
	query += ` ORDER BY created_at DESC, slug LIMIT ?`
	args = append(args, listLimit(filter))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close() //nolint:errcheck

	var reports []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: list reports")
		}
		reports = append(reports, *r)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: list reports iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanReport(row scannable) (*model.Report, error) {
	var (
		id        string
		payload   string
		createdAt time.Time
	)
	if err := row.Scan(&id, &payload, &createdAt); err != nil {
		return nil, err
	}
	return decode(id, []byte(payload), createdAt)
}
