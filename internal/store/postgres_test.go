package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vetting-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestPostgresStore_SaveReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	r := sampleReport(model.EntityManufacturer, "Olympus", at)
	r.ID = "new-id"

	mock.ExpectQuery(`INSERT INTO reports .* ON CONFLICT \(slug\) DO UPDATE`).
		WithArgs("new-id", "manufacturer-olympus-2024-03-05", "manufacturer", "Olympus", "Monitor", "", pgxmock.AnyArg(), at).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("existing-id"))

	require.NoError(t, s.SaveReport(context.Background(), r))
	assert.Equal(t, "existing-id", r.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReport_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	r := sampleReport(model.EntityDealer, "Acme", time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery(`INSERT INTO reports`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := s.SaveReport(context.Background(), r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: save report dealer-acme-2024-03-05")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(sampleReport(model.EntityManufacturer, "Olympus", at))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, payload, created_at FROM reports WHERE id = \$1 OR slug = \$1`).
		WithArgs("manufacturer-olympus-2024-03-05").
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "created_at"}).AddRow("row-id", payload, at))

	got, err := s.GetReport(context.Background(), "manufacturer-olympus-2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, "row-id", got.ID)
	assert.Equal(t, "Olympus", got.Subject)
	assert.Equal(t, "OK", got.Flags["business_age"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReport_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, payload, created_at FROM reports`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetReport(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReports_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(sampleReport(model.EntityDealer, "Acme", at))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, payload, created_at FROM reports WHERE 1=1 AND entity_type = \$1 ORDER BY created_at DESC, slug LIMIT \$2 OFFSET \$3`).
		WithArgs("dealer", 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "created_at"}).AddRow("a", payload, at))

	reports, err := s.ListReports(context.Background(), ReportFilter{EntityType: model.EntityDealer, Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "a", reports[0].ID)
	assert.Equal(t, model.EntityDealer, reports[0].EntityType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReports_CreatedAfter(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cutoff := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`WHERE 1=1 AND created_at > \$1 ORDER BY created_at DESC, slug LIMIT \$2`).
		WithArgs(cutoff, defaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "created_at"}))

	_, err := s.ListReports(context.Background(), ReportFilter{CreatedAfter: cutoff})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReports_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, payload, created_at FROM reports WHERE 1=1 ORDER BY created_at DESC, slug LIMIT \$1`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "created_at"}))

	reports, err := s.ListReports(context.Background(), ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListReports_BadPayload(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, payload, created_at FROM reports`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "payload", "created_at"}).AddRow("a", []byte("{not json"), time.Now()))

	_, err := s.ListReports(context.Background(), ReportFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal report")
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`SELECT pg_advisory_lock`).WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS schema_migrations`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(`SELECT filename FROM schema_migrations`).WillReturnRows(pgxmock.NewRows([]string{"filename"}))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS reports`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("001_reports.sql").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_reports_worst_flag`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(`INSERT INTO schema_migrations`).WithArgs("002_reports_worst_flag.sql").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`SELECT pg_advisory_unlock`).WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("SELECT", 1))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
