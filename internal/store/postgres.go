package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vetting-cli/internal/db"
	"github.com/sells-group/vetting-cli/internal/model"
)

//go:embed migrations/postgres/*.sql
var postgresMigrations embed.FS

// PostgresStore implements Store using a pgx pool.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres connects to Postgres and returns a PostgresStore.
func NewPostgres(ctx context.Context, connString string, poolCfg *db.PoolConfig) (*PostgresStore, error) {
	pool, err := db.Connect(ctx, connString, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	return eris.Wrap(db.Migrate(ctx, s.pool, postgresMigrations, "migrations/postgres"), "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveReport(ctx context.Context, r *model.Report) error {
	payload, err := prepare(r)
	if err != nil {
		return err
	}

	var id string
	err = s.pool.QueryRow(ctx,
		`INSERT INTO reports (id, slug, entity_type, subject, worst_flag, error, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (slug) DO UPDATE SET
			entity_type = EXCLUDED.entity_type,
			subject     = EXCLUDED.subject,
			worst_flag  = EXCLUDED.worst_flag,
			error       = EXCLUDED.error,
			payload     = EXCLUDED.payload,
			created_at  = EXCLUDED.created_at
		 RETURNING id`,
		r.ID, r.Slug, string(r.EntityType), r.Subject, r.WorstFlag(), r.Error, payload, r.CreatedAt,
	).Scan(&id)
	if err != nil {
		return eris.Wrapf(err, "postgres: save report %s", r.Slug)
	}
	r.ID = id
	return nil
}

func (s *PostgresStore) GetReport(ctx context.Context, key string) (*model.Report, error) {
	var (
		id        string
		payload   []byte
		createdAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, payload, created_at FROM reports WHERE id = $1 OR slug = $1 LIMIT 1`,
		key,
	).Scan(&id, &payload, &createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get report %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", key)
	}
	return decode(id, payload, createdAt)
}

func (s *PostgresStore) ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error) {
	query := `SELECT id, payload, created_at FROM reports WHERE 1=1`
	var args []any
	argN := 1

	if filter.EntityType != "" {
		query += fmt.Sprintf(` AND entity_type = $%d`, argN)
		args = append(args, string(filter.EntityType))
		argN++
	}
	if !filter.CreatedAfter.IsZero() {
		query += fmt.Sprintf(` AND created_at > $%d`, argN)
		args = append(args, filter.CreatedAfter)
		argN++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, slug LIMIT $%d`, argN)
	args = append(args, listLimit(filter))
	argN++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argN)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var (
			id        string
			payload   []byte
			createdAt time.Time
		)
		if err := rows.Scan(&id, &payload, &createdAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		r, err := decode(id, payload, createdAt)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: list reports iterate")
}
