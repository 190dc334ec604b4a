package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/vetting-cli/internal/extract"
	"github.com/sells-group/vetting-cli/internal/rules"
)

// evaluateOptions selects which criteria to run and how to print them.
type evaluateOptions struct {
	Criteria []string
	Profile  string
	All      bool
	Format   string
}

func (o evaluateOptions) validate() error {
	n := 0
	if len(o.Criteria) > 0 {
		n++
	}
	if o.Profile != "" {
		n++
	}
	if o.All {
		n++
	}
	if n != 1 {
		return eris.New("evaluate: exactly one of --criterion, --profile or --all is required")
	}
	switch o.Format {
	case "table", "json":
		return nil
	default:
		return eris.Errorf("evaluate: unknown format %q", o.Format)
	}
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Classify a structured record against risk criteria",
	Long:  "Reads a JSON record (or research text containing a fenced json block) and prints each criterion's flag and rendered prompt.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("record")
		year, _ := cmd.Flags().GetInt("year")
		opts := evaluateOptions{}
		opts.Criteria, _ = cmd.Flags().GetStringSlice("criterion")
		opts.Profile, _ = cmd.Flags().GetString("profile")
		opts.All, _ = cmd.Flags().GetBool("all")
		opts.Format, _ = cmd.Flags().GetString("format")
		if err := opts.validate(); err != nil {
			return err
		}

		rec, err := readRecord(path, cmd.InOrStdin())
		if err != nil {
			return err
		}
		d, err := initDispatcher(year)
		if err != nil {
			return err
		}
		return runEvaluate(cmd.OutOrStdout(), d, rec, opts)
	},
}

func init() {
	evaluateCmd.Flags().String("record", "-", "record file (JSON or research text); - reads stdin")
	evaluateCmd.Flags().StringSlice("criterion", nil, "criterion id to evaluate (repeatable)")
	evaluateCmd.Flags().String("profile", "", "evaluate every criterion of a profile")
	evaluateCmd.Flags().Bool("all", false, "evaluate every catalog criterion")
	evaluateCmd.Flags().Int("year", 0, "current year for date-relative criteria (0 uses config or the clock)")
	evaluateCmd.Flags().String("format", "table", "output format: table or json")
	rootCmd.AddCommand(evaluateCmd)
}

// readRecord loads a record from path, or from stdin when path is "-".
// Plain JSON objects decode directly; anything else goes through
// extraction.
func readRecord(path string, stdin io.Reader) (rules.Record, error) {
	var data []byte
	var err error
	if path == "-" || path == "" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, eris.Wrap(err, "evaluate: read record")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var rec rules.Record
	if err := dec.Decode(&rec); err == nil && rec != nil {
		return rec, nil
	}

	rec, err = extract.Record(string(data))
	if err != nil {
		return nil, eris.Wrap(err, "evaluate: parse record")
	}
	return rec, nil
}

// runEvaluate evaluates the selected criteria and prints the batch.
func runEvaluate(out io.Writer, d *rules.Dispatcher, rec rules.Record, opts evaluateOptions) error {
	var b *rules.Batch
	switch {
	case opts.All:
		b = d.EvaluateAll(rec)
	case opts.Profile != "":
		var err error
		if b, err = d.EvaluateProfile(opts.Profile, rec); err != nil {
			return err
		}
	default:
		b = d.EvaluateIDs(opts.Criteria, rec)
	}

	if opts.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	formatBatch(out, b)
	return nil
}

// formatBatch writes one row per entry, then the flag tally.
func formatBatch(out io.Writer, b *rules.Batch) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CRITERION\tNAME\tFLAG\tDETAIL")
	_, _ = fmt.Fprintln(w, "---------\t----\t----\t------")
	for _, e := range b.Entries {
		detail := ""
		switch {
		case e.Error != "":
			detail = e.Error
		case e.Result != nil && e.Result.Unfavourable() && e.Result.SuggestedAction != nil:
			detail = e.Result.SuggestedAction.Finding
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CriterionID, e.Name, flagMarker(e.Flag), truncate(detail, 80))
	}
	_ = w.Flush()

	worst, ok := b.Worst()
	if ok {
		_, _ = fmt.Fprintf(out, "\nWorst: %s (year %d)\n", flagMarker(worst.String()), b.Year)
	} else {
		_, _ = fmt.Fprintf(out, "\nNo criterion could be evaluated (year %d)\n", b.Year)
	}
}

// flagMarker prefixes a flag name with its summary emoji.
func flagMarker(flag string) string {
	switch flag {
	case rules.OK.String():
		return "✅ " + flag
	case rules.Monitor.String():
		return "⚠️ " + flag
	case rules.Review.String(), rules.Flagged.String():
		return "🚩 " + flag
	default:
		return "❌ " + flag
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
