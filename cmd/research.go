package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/vetting-cli/internal/model"
	"github.com/sells-group/vetting-cli/internal/research"
	"github.com/sells-group/vetting-cli/internal/store"
)

var researchCmd = &cobra.Command{
	Use:   "research <subject...>",
	Short: "Research and vet one subject",
	Long:  `Researches a subject such as "manufacturer: Olympus" or "dealer: Acme Trucks", evaluates its profile and writes a risk summary. Subjects without a prefix are manufacturers.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		noSummary, _ := cmd.Flags().GetBool("no-summary")
		save, _ := cmd.Flags().GetBool("save")
		format, _ := cmd.Flags().GetString("format")

		subj, err := research.ParseSubject(args...)
		if err != nil {
			return err
		}

		svc, err := initService(!noSummary)
		if err != nil {
			return err
		}

		var st store.Store
		if save {
			if st, err = initStore(ctx); err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
		}

		report, err := runResearch(ctx, svc, st, subj)
		if err != nil {
			return err
		}
		return printReport(cmd.OutOrStdout(), report, format)
	},
}

func init() {
	researchCmd.Flags().Bool("no-summary", false, "skip the narrative risk summary")
	researchCmd.Flags().Bool("save", false, "persist the report to the configured store")
	researchCmd.Flags().String("format", "markdown", "output format: markdown or json")
	rootCmd.AddCommand(researchCmd)
}

// runResearch runs the pipeline for one subject and saves the report when
// st is non-nil.
func runResearch(ctx context.Context, svc *research.Service, st store.Store, subj research.Subject) (*model.Report, error) {
	report, err := svc.Run(ctx, subj)
	if err != nil {
		return nil, eris.Wrapf(err, "research %s", subj)
	}
	if st != nil {
		if err := st.SaveReport(ctx, report); err != nil {
			return nil, eris.Wrap(err, "save report")
		}
		zap.L().Info("report saved", zap.String("id", report.ID), zap.String("slug", report.Slug))
	}
	return report, nil
}

// printReport writes a report as markdown or indented JSON.
func printReport(out io.Writer, r *model.Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "markdown", "":
	default:
		return eris.Errorf("unknown format %q", format)
	}

	_, _ = fmt.Fprintf(out, "# %s (%s)\n\n", r.Subject, r.EntityType)
	if r.Slug != "" {
		_, _ = fmt.Fprintf(out, "_Report %s_\n\n", r.Slug)
	}
	if r.Error != "" {
		_, _ = fmt.Fprintf(out, "> Error: %s\n\n", r.Error)
	}
	_, _ = fmt.Fprintln(out, strings.TrimSpace(r.Content))

	if len(r.Flags) > 0 {
		_, _ = fmt.Fprint(out, "\n## Flags\n\n| Criterion | Flag |\n|---|---|\n")
		ids := make([]string, 0, len(r.Flags))
		if r.Batch != nil {
			for _, e := range r.Batch.Entries {
				ids = append(ids, string(e.CriterionID))
			}
		} else {
			for id := range r.Flags {
				ids = append(ids, id)
			}
			sort.Strings(ids)
		}
		for _, id := range ids {
			_, _ = fmt.Fprintf(out, "| %s | %s |\n", id, flagMarker(r.Flags[id]))
		}
	}

	if r.RiskSummary != "" {
		_, _ = fmt.Fprintf(out, "\n## Risk Summary\n\n%s\n", strings.TrimSpace(r.RiskSummary))
	}
	if len(r.Citations) > 0 {
		_, _ = fmt.Fprint(out, "\n## Sources\n\n")
		for i, c := range r.Citations {
			_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, c)
		}
	}
	return nil
}

