// Package store persists vetting reports in SQLite or Postgres.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/vetting-cli/internal/config"
	"github.com/sells-group/vetting-cli/internal/model"
)

// ErrNotFound is returned when no report matches an id or slug.
var ErrNotFound = eris.New("store: report not found")

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	EntityType   model.EntityType `json:"entity_type,omitempty"`
	CreatedAfter time.Time        `json:"created_after,omitempty"`
	Limit        int              `json:"limit,omitempty"`
	Offset       int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for vetting reports.
type Store interface {
	// SaveReport inserts the report, or replaces the one with the same
	// slug. The stored id is written back to r.ID.
	SaveReport(ctx context.Context, r *model.Report) error
	// GetReport looks a report up by id or slug.
	GetReport(ctx context.Context, key string) (*model.Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}

const defaultListLimit = 100

// prepare fills the id, timestamp and slug of a report about to be saved
// and returns its JSON payload.
func prepare(r *model.Report) ([]byte, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Slug == "" {
		r.Slug = model.Slug(r.EntityType, r.Subject, r.CreatedAt)
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal report")
	}
	return payload, nil
}

// decode rebuilds a report from its payload. Column values win over the
// payload so an upserted row keeps its original id.
func decode(id string, payload []byte, createdAt time.Time) (*model.Report, error) {
	var r model.Report
	if err := json.Unmarshal(payload, &r); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal report")
	}
	r.ID = id
	r.CreatedAt = createdAt.UTC()
	return &r, nil
}

func listLimit(filter ReportFilter) int {
	if filter.Limit <= 0 {
		return defaultListLimit
	}
	return filter.Limit
}
