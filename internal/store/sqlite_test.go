package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vetting-cli/internal/config"
	"github.com/sells-group/vetting-cli/internal/model"
	"github.com/sells-group/vetting-cli/internal/rules"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func sampleReport(entity model.EntityType, subject string, at time.Time) *model.Report {
	return &model.Report{
		EntityType: entity,
		Subject:    subject,
		Content:    "research about " + subject,
		Citations:  []string{"https://example.com/a"},
		Record:     rules.Record{"status": "active", "registration_year": 2010.0},
		Flags:      map[string]string{"business_age": "OK", "reputation": "Monitor"},
		Batch: &rules.Batch{Profile: entity.Profile(), Year: 2024, Entries: []rules.Entry{
			{CriterionID: rules.BusinessAge, Name: "Business Age", Flag: "OK", Result: &rules.Result{Flag: rules.OK}},
			{CriterionID: rules.Reputation, Name: "Reputation", Flag: "Monitor", Result: &rules.Result{Flag: rules.Monitor}},
		}},
		RiskSummary: "⚠️ Reputation: monitor press coverage",
		CreatedAt:   at,
	}
}

func TestSQLite_SaveAndGetReport(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	r := sampleReport(model.EntityManufacturer, "Olympus", at)
	require.NoError(t, st.SaveReport(ctx, r))
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "manufacturer-olympus-2024-03-05", r.Slug)

	byID, err := st.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.ID, byID.ID)
	assert.Equal(t, "Olympus", byID.Subject)
	assert.Equal(t, r.Flags, byID.Flags)
	assert.Equal(t, []string{"https://example.com/a"}, byID.Citations)
	assert.Equal(t, "active", byID.Record["status"])
	assert.True(t, at.Equal(byID.CreatedAt))
	require.NotNil(t, byID.Batch)
	assert.Len(t, byID.Batch.Entries, 2)
	assert.Equal(t, "Monitor", byID.WorstFlag())

	bySlug, err := st.GetReport(ctx, "manufacturer-olympus-2024-03-05")
	require.NoError(t, err)
	assert.Equal(t, r.ID, bySlug.ID)
}

func TestSQLite_SaveReport_UpsertsBySlug(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	at := time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)

	first := sampleReport(model.EntityDealer, "Acme Trucks", at)
	require.NoError(t, st.SaveReport(ctx, first))

	second := sampleReport(model.EntityDealer, "Acme Trucks", at.Add(2*time.Hour))
	second.RiskSummary = "updated"
	require.NoError(t, st.SaveReport(ctx, second))
	assert.Equal(t, first.ID, second.ID, "same slug keeps the original id")

	got, err := st.GetReport(ctx, first.Slug)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, "updated", got.RiskSummary)

	all, err := st.ListReports(ctx, ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_SaveReport_ExtractionFailure(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	r := &model.Report{
		EntityType: model.EntityAsset,
		Subject:    "Model X loader",
		Content:    "prose without any json",
		Error:      "structured JSON could not be parsed",
	}
	require.NoError(t, st.SaveReport(ctx, r))
	assert.False(t, r.CreatedAt.IsZero())

	got, err := st.GetReport(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, "structured JSON could not be parsed", got.Error)
	assert.Nil(t, got.Batch)
	assert.Empty(t, got.WorstFlag())
}

func TestSQLite_GetReport_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetReport(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_ListReports(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveReport(ctx, sampleReport(model.EntityManufacturer, "Olympus", base)))
	require.NoError(t, st.SaveReport(ctx, sampleReport(model.EntityDealer, "Acme", base.Add(24*time.Hour))))
	require.NoError(t, st.SaveReport(ctx, sampleReport(model.EntityManufacturer, "Komatsu", base.Add(48*time.Hour))))

	all, err := st.ListReports(ctx, ReportFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Komatsu", all[0].Subject, "newest first")
	assert.Equal(t, "Olympus", all[2].Subject)

	makers, err := st.ListReports(ctx, ReportFilter{EntityType: model.EntityManufacturer})
	require.NoError(t, err)
	require.Len(t, makers, 2)
	for _, r := range makers {
		assert.Equal(t, model.EntityManufacturer, r.EntityType)
	}

	page, err := st.ListReports(ctx, ReportFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Acme", page[0].Subject)
}

func TestSQLite_ListReports_CreatedAfter(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, st.SaveReport(ctx, sampleReport(model.EntityManufacturer, "Old", base)))
	require.NoError(t, st.SaveReport(ctx, sampleReport(model.EntityManufacturer, "New", base.Add(72*time.Hour))))

	recent, err := st.ListReports(ctx, ReportFilter{CreatedAfter: base.Add(24 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "New", recent[0].Subject)
}

func TestSQLite_ListReports_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)
	reports, err := st.ListReports(context.Background(), ReportFilter{EntityType: model.EntityAsset})
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Migrate(context.Background()))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	st, err := Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "open.db")})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	_, ok := st.(*SQLiteStore)
	assert.True(t, ok)

	_, err = Open(ctx, config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "mysql"`)
}
