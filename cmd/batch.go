package main

import (
	"bufio"
	"context"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/vetting-cli/internal/model"
	"github.com/sells-group/vetting-cli/internal/research"
	"github.com/sells-group/vetting-cli/internal/store"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Research and vet every subject in a file",
	Long:  "Reads one subject per line (blank lines and # comments skipped) and runs research with bounded concurrency. A failed subject does not stop the others.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		path, _ := cmd.Flags().GetString("file")
		limit, _ := cmd.Flags().GetInt("limit")
		save, _ := cmd.Flags().GetBool("save")
		noSummary, _ := cmd.Flags().GetBool("no-summary")

		f, err := os.Open(path)
		if err != nil {
			return eris.Wrap(err, "batch: open subjects file")
		}
		defer f.Close() //nolint:errcheck

		subjects, err := readSubjects(f)
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

		results := processBatch(ctx, subjects, limit, cfg.Batch.MaxConcurrent, func(ctx context.Context, subj research.Subject) (*model.Report, error) {
			return runResearch(ctx, svc, st, subj)
		})
		formatBatchResults(cmd.OutOrStdout(), results)
		return nil
	},
}

func init() {
	batchCmd.Flags().String("file", "", "subjects file, one subject per line")
	batchCmd.Flags().Int("limit", 100, "max number of subjects to process")
	batchCmd.Flags().Bool("save", false, "persist reports to the configured store")
	batchCmd.Flags().Bool("no-summary", false, "skip the narrative risk summaries")
	_ = batchCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(batchCmd)
}

// readSubjects parses one subject per line.
func readSubjects(r io.Reader) ([]research.Subject, error) {
	var subjects []research.Subject
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		subj, err := research.ParseSubject(line)
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, subj)
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "batch: read subjects")
	}
	return subjects, nil
}

// researchFunc is the callback signature for running research on a subject.
type researchFunc func(ctx context.Context, subj research.Subject) (*model.Report, error)

// batchResult is one subject's outcome.
type batchResult struct {
	Subject research.Subject
	Report  *model.Report
	Err     error
}

// processBatch applies limit, then researches subjects concurrently. The
// returned results keep input order.
func processBatch(ctx context.Context, subjects []research.Subject, limit, concurrency int, run researchFunc) []batchResult {
	if len(subjects) == 0 {
		zap.L().Info("no subjects to process")
		return nil
	}

	if limit > 0 && len(subjects) > limit {
		subjects = subjects[:limit]
	}
	if concurrency < 1 {
		concurrency = 1
	}

	zap.L().Info("processing batch",
		zap.Int("subjects", len(subjects)),
		zap.Int("concurrency", concurrency),
	)

	results := make([]batchResult, len(subjects))
	var succeeded, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, subj := range subjects {
		g.Go(func() error {
			log := zap.L().With(zap.String("subject", subj.String()))

			report, err := run(gctx, subj)

			results[i] = batchResult{Subject: subj, Report: report, Err: err}

			if err != nil {
				failed.Add(1)
				log.Error("research failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			succeeded.Add(1)
			log.Info("research complete",
				zap.String("worst_flag", report.WorstFlag()),
				zap.Int("flags", len(report.Flags)),
			)
			return nil
		})
	}

	_ = g.Wait()

	zap.L().Info("batch complete",
		zap.Int64("succeeded", succeeded.Load()),
		zap.Int64("failed", failed.Load()),
	)
	return results
}
