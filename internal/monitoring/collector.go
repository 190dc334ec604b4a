// Package monitoring summarizes saved vetting reports.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vetting-cli/internal/model"
	"github.com/sells-group/vetting-cli/internal/store"
)

// collectLimit caps how many reports one snapshot reads.
const collectLimit = 10000

// Snapshot holds a point-in-time view of vetting activity.
type Snapshot struct {
	Total            int            `json:"total"`
	ByEntity         map[string]int `json:"by_entity"`
	ByWorstFlag      map[string]int `json:"by_worst_flag"`
	ExtractionFailed int            `json:"extraction_failed"`
	Unfavourable     int            `json:"unfavourable"`
	CostUSD          float64        `json:"cost_usd"`
	AvgCostUSD       float64        `json:"avg_cost_usd"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// ReportLister is the store subset the collector needs.
type ReportLister interface {
	ListReports(ctx context.Context, filter store.ReportFilter) ([]model.Report, error)
}

// Collector gathers report metrics from the store.
type Collector struct {
	store ReportLister
	now   func() time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector(st ReportLister) *Collector {
	return &Collector{store: st, now: time.Now}
}

// Collect snapshots the reports created within the lookback window. A
// non-positive window covers every report.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*Snapshot, error) {
	now := c.now().UTC()
	snap := &Snapshot{
		ByEntity:      make(map[string]int),
		ByWorstFlag:   make(map[string]int),
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	filter := store.ReportFilter{Limit: collectLimit}
	if lookbackHours > 0 {
		filter.CreatedAfter = now.Add(-time.Duration(lookbackHours) * time.Hour)
	}
	reports, err := c.store.ListReports(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list reports")
	}

	snap.Total = len(reports)
	for _, r := range reports {
		snap.ByEntity[string(r.EntityType)]++
		snap.CostUSD += r.Usage.CostUSD

		if r.Error != "" {
			snap.ExtractionFailed++
			continue
		}
		worst := r.WorstFlag()
		if worst == "" {
			worst = "none"
		}
		snap.ByWorstFlag[worst]++
		if worst == "Review" || worst == "Flag" {
			snap.Unfavourable++
		}
	}
	if snap.Total > 0 {
		snap.AvgCostUSD = snap.CostUSD / float64(snap.Total)
	}
	return snap, nil
}
