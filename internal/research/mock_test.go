package research

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/vetting-cli/internal/rules"
	"github.com/sells-group/vetting-cli/pkg/anthropic"
	"github.com/sells-group/vetting-cli/pkg/perplexity"
)

// --- Perplexity Mock ---

type mockPerplexityClient struct {
	mock.Mock
}

func (m *mockPerplexityClient) ChatCompletion(ctx context.Context, req perplexity.ChatCompletionRequest) (*perplexity.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.ChatCompletionResponse), args.Error(1)
}

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- Pipeline step mocks ---

type mockFinder struct {
	mock.Mock
}

func (m *mockFinder) Research(ctx context.Context, subj Subject) (*Findings, error) {
	args := m.Called(ctx, subj)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Findings), args.Error(1)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, subj Subject, b *rules.Batch) (*Summary, error) {
	args := m.Called(ctx, subj, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Summary), args.Error(1)
}
