package research

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vetting-cli/internal/cost"
	"github.com/sells-group/vetting-cli/internal/extract"
	"github.com/sells-group/vetting-cli/internal/model"
	"github.com/sells-group/vetting-cli/internal/rules"
)

// ExtractionFailed is the report error recorded when the research text has
// no usable structured record.
const ExtractionFailed = "structured JSON could not be parsed"

// Finder produces research findings for a subject.
type Finder interface {
	Research(ctx context.Context, subj Subject) (*Findings, error)
}

// RiskSummarizer writes the narrative summary of an evaluated batch.
type RiskSummarizer interface {
	Summarize(ctx context.Context, subj Subject, b *rules.Batch) (*Summary, error)
}

// Service runs research, extraction, evaluation and summary for a subject.
type Service struct {
	finder     Finder
	dispatcher *rules.Dispatcher
	summarizer RiskSummarizer
	costs      *cost.Calculator
	now        func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithCostCalculator prices report usage with c instead of the default rates.
func WithCostCalculator(c *cost.Calculator) ServiceOption {
	return func(s *Service) {
		s.costs = c
	}
}

// NewService wires the pipeline. A nil summarizer skips the narrative step.
func NewService(finder Finder, d *rules.Dispatcher, summarizer RiskSummarizer, opts ...ServiceOption) *Service {
	s := &Service{
		finder:     finder,
		dispatcher: d,
		summarizer: summarizer,
		costs:      cost.NewCalculator(cost.DefaultRates()),
		now:        time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run researches subj and assesses the findings. Only research failures
// are returned as errors; extraction and summary problems are recorded on
// the report or logged.
func (s *Service) Run(ctx context.Context, subj Subject) (*model.Report, error) {
	if s.finder == nil {
		return nil, eris.New("research: no research client configured")
	}
	findings, err := s.finder.Research(ctx, subj)
	if err != nil {
		return nil, err
	}
	return s.Assess(ctx, subj, findings)
}

// Assess evaluates already gathered findings against the subject's profile.
func (s *Service) Assess(ctx context.Context, subj Subject, f *Findings) (*model.Report, error) {
	log := zap.L().With(zap.String("subject", subj.Name), zap.String("entity_type", string(subj.Entity)))

	now := s.now().UTC()
	report := &model.Report{
		Slug:       model.Slug(subj.Entity, subj.Name, now),
		EntityType: subj.Entity,
		Subject:    subj.Name,
		Content:    f.Content,
		Citations:  f.Citations,
		CreatedAt:  now,
	}
	report.Usage.ResearchQueries = f.Queries
	report.Usage.ResearchTokens = f.Tokens
	defer s.price(report)

	rec, err := extract.Record(f.Content)
	if err != nil {
		log.Warn("research: no structured record in findings", zap.Error(err))
		report.Error = ExtractionFailed
		return report, nil
	}
	report.Record = rec

	batch, err := s.dispatcher.EvaluateProfile(subj.Entity.Profile(), rec)
	if err != nil {
		return nil, eris.Wrap(err, "research: evaluate profile")
	}
	report.Batch = batch
	report.Flags = batch.Flags()

	worst, _ := batch.Worst()
	log.Info("research: profile evaluated",
		zap.String("worst_flag", worst.String()),
		zap.Any("counts", batch.Counts()),
	)

	if s.summarizer == nil {
		return report, nil
	}
	summary, err := s.summarizer.Summarize(ctx, subj, batch)
	if err != nil {
		log.Warn("research: risk summary failed", zap.Error(err))
		return report, nil
	}
	report.RiskSummary = summary.Text
	report.Usage.SummaryModel = summary.Model
	report.Usage.SummaryInputTokens = summary.InputTokens
	report.Usage.SummaryOutputTokens = summary.OutputTokens
	return report, nil
}

func (s *Service) price(r *model.Report) {
	u := &r.Usage
	u.CostUSD = s.costs.Perplexity(u.ResearchQueries, u.ResearchTokens) +
		s.costs.Claude(u.SummaryModel, u.SummaryInputTokens, u.SummaryOutputTokens)
}
