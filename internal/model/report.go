package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/sells-group/vetting-cli/internal/rules"
)

// EntityType identifies the kind of subject a report covers. Each entity
// type maps to the criteria profile of the same name.
type EntityType string

const (
	EntityManufacturer EntityType = "manufacturer"
	EntityDealer       EntityType = "dealer"
	EntityAsset        EntityType = "asset"
)

// ParseEntityType resolves a case-insensitive entity type name.
func ParseEntityType(s string) (EntityType, bool) {
	switch EntityType(strings.ToLower(strings.TrimSpace(s))) {
	case EntityManufacturer:
		return EntityManufacturer, true
	case EntityDealer:
		return EntityDealer, true
	case EntityAsset:
		return EntityAsset, true
	}
	return "", false
}

// Profile returns the criteria profile evaluated for the entity type.
func (e EntityType) Profile() string {
	return string(e)
}

// Report is one persisted vetting outcome for a subject.
type Report struct {
	ID          string            `json:"id"`
	Slug        string            `json:"slug"`
	EntityType  EntityType        `json:"entity_type"`
	Subject     string            `json:"subject"`
	Content     string            `json:"content"`
	Citations   []string          `json:"citations,omitempty"`
	Record      rules.Record      `json:"record,omitempty"`
	Flags       map[string]string `json:"flags,omitempty"`
	Batch       *rules.Batch      `json:"batch,omitempty"`
	RiskSummary string            `json:"risk_summary,omitempty"`
	Usage       Usage             `json:"usage"`
	Error       string            `json:"error,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Usage records the API consumption behind a report.
type Usage struct {
	ResearchQueries     int     `json:"research_queries"`
	ResearchTokens      int     `json:"research_tokens"`
	SummaryModel        string  `json:"summary_model,omitempty"`
	SummaryInputTokens  int64   `json:"summary_input_tokens"`
	SummaryOutputTokens int64   `json:"summary_output_tokens"`
	CostUSD             float64 `json:"cost_usd"`
}

// WorstFlag returns the most severe evaluated flag, or "" when the report
// has no successful evaluations.
func (r *Report) WorstFlag() string {
	if r.Batch == nil {
		return ""
	}
	worst, ok := r.Batch.Worst()
	if !ok {
		return ""
	}
	return worst.String()
}

// Slug builds the report key <entity>-<subject>-<yyyy-mm-dd>. Runs of
// characters outside letters and digits collapse to a single dash.
func Slug(entity EntityType, subject string, at time.Time) string {
	parts := []string{slugify(string(entity)), slugify(subject), at.UTC().Format("2006-01-02")}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "-")
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
