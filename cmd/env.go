package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/vetting-cli/internal/research"
	"github.com/sells-group/vetting-cli/internal/rules"
	"github.com/sells-group/vetting-cli/internal/store"
	"github.com/sells-group/vetting-cli/pkg/anthropic"
	"github.com/sells-group/vetting-cli/pkg/perplexity"
)

// initRegistry loads the configured catalog, or the embedded one.
func initRegistry() (*rules.Registry, error) {
	if cfg.Rules.CatalogPath != "" {
		reg, err := rules.LoadCatalog(cfg.Rules.CatalogPath)
		if err != nil {
			return nil, eris.Wrap(err, "load catalog")
		}
		return reg, nil
	}
	reg, err := rules.DefaultRegistry()
	if err != nil {
		return nil, eris.Wrap(err, "load embedded catalog")
	}
	return reg, nil
}

// initDispatcher builds the dispatcher. A positive year pins date-relative
// criteria; otherwise rules.current_year applies, then the system clock.
func initDispatcher(year int) (*rules.Dispatcher, error) {
	if err := cfg.Validate("evaluate"); err != nil {
		return nil, err
	}
	reg, err := initRegistry()
	if err != nil {
		return nil, err
	}

	if year <= 0 {
		year = cfg.Rules.CurrentYear
	}
	var opts []rules.Option
	if year > 0 {
		opts = append(opts, rules.WithCurrentYear(year))
	}

	d, err := rules.NewDispatcher(reg, rules.DefaultClassifiers(), opts...)
	if err != nil {
		return nil, eris.Wrap(err, "build dispatcher")
	}
	return d, nil
}

// initStore opens and migrates the configured report store.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initService wires research, evaluation and, unless skipped, the
// narrative summary.
func initService(withSummary bool) (*research.Service, error) {
	if err := cfg.Validate("research"); err != nil {
		return nil, err
	}
	d, err := initDispatcher(0)
	if err != nil {
		return nil, err
	}

	pplx := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
		perplexity.WithModel(cfg.Perplexity.Model),
		perplexity.WithSearchRecency(cfg.Perplexity.SearchRecency),
	)
	limiter := rate.NewLimiter(rate.Limit(cfg.Batch.RequestsPerSecond), 1)
	researcher := research.NewResearcher(pplx, d.Registry(), limiter)

	var summarizer research.RiskSummarizer
	if withSummary {
		if err := cfg.Validate("summary"); err != nil {
			return nil, err
		}
		client := anthropic.NewClient(cfg.Anthropic.Key)
		summarizer = research.NewSummarizer(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
	} else {
		zap.L().Debug("risk summary disabled")
	}

	return research.NewService(researcher, d, summarizer), nil
}
