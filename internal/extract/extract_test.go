package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_FencedBlock(t *testing.T) {
	text := "Olympus Corporation was founded in 1919.\n\n" +
		"```json\n{\"registration_year\": 1919, \"status\": \"active\", \"top_client_share\": 12.5}\n```\n\n" +
		"Sources: company filings."

	rec, err := Record(text)
	require.NoError(t, err)
	assert.Equal(t, json.Number("1919"), rec["registration_year"])
	assert.Equal(t, "active", rec["status"])

	year, ok := rec.Int("registration_year")
	require.True(t, ok)
	assert.Equal(t, 1919, year)
	share, ok := rec.Number("top_client_share")
	require.True(t, ok)
	assert.InDelta(t, 12.5, share, 1e-9)
}

func TestRecord_BareFence(t *testing.T) {
	rec, err := Record("```\n{\"listed\": \"no\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "no", rec["listed"])
}

func TestRecord_SkipsInvalidFenceForLaterOne(t *testing.T) {
	text := "```json\n{not json}\n```\nCorrected:\n```json\n{\"listed\": \"yes\"}\n```"
	rec, err := Record(text)
	require.NoError(t, err)
	assert.Equal(t, "yes", rec["listed"])
}

func TestRecord_UnfencedObject(t *testing.T) {
	rec, err := Record(`Here is the data: {"status": "dormant", "last_report_year": null} as requested.`)
	require.NoError(t, err)
	assert.Equal(t, "dormant", rec["status"])
	assert.False(t, rec.Has("last_report_year"))
}

func TestRecord_NoStructuredData(t *testing.T) {
	for _, text := range []string{
		"",
		"No information was found for this company.",
		"```json\n[1, 2, 3]\n```",
		"{broken",
		"null",
	} {
		_, err := Record(text)
		assert.ErrorIs(t, err, ErrNoStructuredData, text)
	}
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose", "Result: {\"a\":1} done", `{"a":1}`},
		{"nothing", "no braces", "no braces"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
