package research

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vetting-cli/internal/rules"
	"github.com/sells-group/vetting-cli/pkg/anthropic"
)

// Summary is a narrative risk summary and the tokens it cost.
type Summary struct {
	Text         string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Summarizer writes the narrative risk summary for an evaluated batch.
type Summarizer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewSummarizer builds a summarizer for the given model.
func NewSummarizer(client anthropic.Client, model string, maxTokens int64) *Summarizer {
	return &Summarizer{client: client, model: model, maxTokens: maxTokens}
}

// Summarize returns markdown explaining each criterion's flag.
func (s *Summarizer) Summarize(ctx context.Context, subj Subject, b *rules.Batch) (*Summary, error) {
	if b == nil || len(b.Entries) == 0 {
		return nil, eris.New("research: nothing to summarize")
	}

	resp, err := s.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		System:    summarySystemPrompt,
		Messages: []anthropic.Message{
			{Role: "user", Content: summaryPrompt(subj, b)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "research: anthropic summary")
	}
	resp.Usage.LogCost(s.model, "risk_summary")

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return nil, eris.New("research: empty summary")
	}
	return &Summary{
		Text:         text,
		Model:        s.model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
