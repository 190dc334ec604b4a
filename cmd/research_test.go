package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vetting-cli/internal/config"
	"github.com/sells-group/vetting-cli/internal/model"
	"github.com/sells-group/vetting-cli/internal/monitoring"
	"github.com/sells-group/vetting-cli/internal/research"
	"github.com/sells-group/vetting-cli/internal/rules"
)

type stubFinder struct {
	content string
	err     error
}

func (f stubFinder) Research(context.Context, research.Subject) (*research.Findings, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &research.Findings{Content: f.content, Queries: 1, Citations: []string{"https://example.com"}}, nil
}

func testResearchService(t *testing.T, f research.Finder) *research.Service {
	t.Helper()
	d, err := rules.NewDefaultDispatcher(rules.WithCurrentYear(2024))
	require.NoError(t, err)
	return research.NewService(f, d, nil)
}

func TestRunResearch_SavesReport(t *testing.T) {
	useConfig(t, &config.Config{Store: config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "research.db")}})
	ctx := context.Background()

	st, err := initStore(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck

	content := "Olympus is a long-standing maker.\n\n```json\n" +
		`{"registration_year": 2001, "status": "active", "last_report_year": 2023}` +
		"\n```\n"
	svc := testResearchService(t, stubFinder{content: content})
	subj := research.Subject{Entity: model.EntityManufacturer, Name: "olympus"}

	report, err := runResearch(ctx, svc, st, subj)
	require.NoError(t, err)
	require.NotEmpty(t, report.ID)
	assert.Equal(t, "OK", report.Flags["business_age"])

	got, err := st.GetReport(ctx, report.Slug)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, report.Flags, got.Flags)

	snap, err := monitoring.NewCollector(st).Collect(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Total)
	assert.Equal(t, 1, snap.ByEntity["manufacturer"])
	assert.Greater(t, snap.CostUSD, 0.0)
}

func TestRunResearch_WithoutStore(t *testing.T) {
	svc := testResearchService(t, stubFinder{content: "no structured data here"})
	subj := research.Subject{Entity: model.EntityDealer, Name: "ghost"}

	report, err := runResearch(context.Background(), svc, nil, subj)
	require.NoError(t, err)
	assert.Equal(t, research.ExtractionFailed, report.Error)
	assert.Empty(t, report.ID)
	assert.Empty(t, report.Flags)
}

func TestRunResearch_FinderError(t *testing.T) {
	svc := testResearchService(t, stubFinder{err: errors.New("perplexity down")})
	subj := research.Subject{Entity: model.EntityAsset, Name: "loader x"}

	_, err := runResearch(context.Background(), svc, nil, subj)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "research asset: loader x")
	assert.Contains(t, err.Error(), "perplexity down")
}
