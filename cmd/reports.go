package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vetting-cli/internal/model"
	"github.com/sells-group/vetting-cli/internal/monitoring"
	"github.com/sells-group/vetting-cli/internal/store"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect saved vetting reports",
}

// -- reports list --

var reportsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved reports, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		entity, _ := cmd.Flags().GetString("entity")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		filter := store.ReportFilter{Limit: limit, Offset: offset}
		if entity != "" {
			et, ok := model.ParseEntityType(entity)
			if !ok {
				return eris.Errorf("reports list: unknown entity type %q", entity)
			}
			filter.EntityType = et
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reports, err := st.ListReports(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "reports list")
		}
		if len(reports) == 0 {
			fmt.Fprintln(os.Stderr, "No reports found.")
			return nil
		}
		formatReportsList(cmd.OutOrStdout(), reports)
		return nil
	},
}

// -- reports show --

var reportsShowCmd = &cobra.Command{
	Use:   "show <id-or-slug>",
	Short: "Show a saved report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		format, _ := cmd.Flags().GetString("format")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		report, err := st.GetReport(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "reports show")
		}
		return printReport(cmd.OutOrStdout(), report, format)
	},
}

// -- reports stats --

var reportsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize recent vetting activity",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		since, _ := cmd.Flags().GetInt("since")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		snap, err := monitoring.NewCollector(st).Collect(ctx, since)
		if err != nil {
			return eris.Wrap(err, "reports stats")
		}
		formatSnapshot(cmd.OutOrStdout(), snap)
		return nil
	},
}

func init() {
	reportsStatsCmd.Flags().Int("since", 24, "lookback window in hours (0 for all reports)")
	reportsListCmd.Flags().String("entity", "", "filter by entity type (manufacturer, dealer, asset)")
	reportsListCmd.Flags().Int("limit", 50, "max number of reports to display")
	reportsListCmd.Flags().Int("offset", 0, "number of reports to skip")
	reportsShowCmd.Flags().String("format", "markdown", "output format: markdown or json")

	reportsCmd.AddCommand(reportsListCmd)
	reportsCmd.AddCommand(reportsShowCmd)
	reportsCmd.AddCommand(reportsStatsCmd)
	rootCmd.AddCommand(reportsCmd)
}

// formatReportsList writes a tabular list of reports to w.
func formatReportsList(out io.Writer, reports []model.Report) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSLUG\tENTITY\tWORST\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t------\t-----\t-------")

	for _, r := range reports {
		worst := r.WorstFlag()
		if r.Error != "" {
			worst = "error"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			truncate(r.Slug, 48),
			r.EntityType,
			worst,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatSnapshot writes a report activity summary to w.
func formatSnapshot(out io.Writer, snap *monitoring.Snapshot) {
	window := "all time"
	if snap.LookbackHours > 0 {
		window = fmt.Sprintf("last %dh", snap.LookbackHours)
	}
	_, _ = fmt.Fprintf(out, "Reports (%s): %d\n", window, snap.Total)
	_, _ = fmt.Fprintf(out, "Extraction failures: %d\n", snap.ExtractionFailed)
	_, _ = fmt.Fprintf(out, "Review or Flag: %d\n", snap.Unfavourable)
	_, _ = fmt.Fprintf(out, "Cost: $%.2f (avg $%.4f)\n\n", snap.CostUSD, snap.AvgCostUSD)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENTITY\tCOUNT")
	for _, k := range sortedKeys(snap.ByEntity) {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", k, snap.ByEntity[k])
	}
	_, _ = fmt.Fprintln(w, "\t")
	_, _ = fmt.Fprintln(w, "WORST\tCOUNT")
	for _, k := range sortedKeys(snap.ByWorstFlag) {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", k, snap.ByWorstFlag[k])
	}
	_ = w.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// formatBatchResults writes one line per batch subject.
func formatBatchResults(out io.Writer, results []batchResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SUBJECT\tWORST\tREPORT\tERROR")
	_, _ = fmt.Fprintln(w, "-------\t-----\t------\t-----")

	var failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			_, _ = fmt.Fprintf(w, "%s\t\t\t%s\n", r.Subject, truncate(r.Err.Error(), 60))
		case r.Report.Error != "":
			_, _ = fmt.Fprintf(w, "%s\t\t%s\t%s\n", r.Subject, r.Report.Slug, r.Report.Error)
		default:
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t\n", r.Subject, flagMarker(r.Report.WorstFlag()), r.Report.Slug)
		}
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\n%d subjects, %d failed\n", len(results), failed)
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
