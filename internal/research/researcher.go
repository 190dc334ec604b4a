package research

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/vetting-cli/internal/rules"
	"github.com/sells-group/vetting-cli/pkg/perplexity"
)

// Findings is the raw outcome of one web research call.
type Findings struct {
	Content   string
	Citations []string
	// Queries and Tokens are the search calls made and the prompt plus
	// completion tokens they used.
	Queries int
	Tokens  int
}

// Researcher gathers web research for a subject through Perplexity.
type Researcher struct {
	client   perplexity.Client
	registry *rules.Registry
	limiter  *rate.Limiter
	now      func() time.Time
}

// NewResearcher builds a researcher. A nil limiter means unlimited.
func NewResearcher(client perplexity.Client, reg *rules.Registry, limiter *rate.Limiter) *Researcher {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Researcher{client: client, registry: reg, limiter: limiter, now: time.Now}
}

// Research asks for a report on subj that ends in a structured record
// covering the fields of the subject's profile.
func (r *Researcher) Research(ctx context.Context, subj Subject) (*Findings, error) {
	log := zap.L().With(zap.String("subject", subj.Name), zap.String("entity_type", string(subj.Entity)))

	fields, err := profileFields(r.registry, subj.Entity.Profile())
	if err != nil {
		return nil, eris.Wrap(err, "research: profile fields")
	}

	if err := r.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "research: rate limit")
	}

	temp := 0.2
	resp, err := r.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "system", Content: researchSystemPrompt},
			{Role: "user", Content: researchPrompt(subj, fields, r.now())},
		},
		Temperature: &temp,
	})
	if err != nil {
		return nil, eris.Wrap(err, "research: perplexity search")
	}

	content := resp.Content()
	if strings.TrimSpace(content) == "" {
		return nil, eris.New("research: empty perplexity response")
	}

	log.Info("research: findings received",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("citations", len(resp.Citations)),
	)
	return &Findings{
		Content:   content,
		Citations: resp.Citations,
		Queries:   1,
		Tokens:    resp.Usage.PromptTokens + resp.Usage.CompletionTokens,
	}, nil
}
