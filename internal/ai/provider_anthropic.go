package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-sonnet-4-6"

// AnthropicProvider implements Provider for Anthropic Claude.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

type anthropicSettings struct {
	model string
	opts  []option.RequestOption
}

// AnthropicOption configures an AnthropicProvider.
type AnthropicOption func(*anthropicSettings)

// WithAnthropicBaseURL sets the base URL (for testing).
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(s *anthropicSettings) {
		s.opts = append(s.opts, option.WithBaseURL(url))
	}
}

// WithAnthropicHTTPClient sets a custom HTTP client.
func WithAnthropicHTTPClient(client *http.Client) AnthropicOption {
	return func(s *anthropicSettings) {
		s.opts = append(s.opts, option.WithHTTPClient(client))
	}
}

// WithAnthropicMaxRetries overrides the SDK retry count.
func WithAnthropicMaxRetries(n int) AnthropicOption {
	return func(s *anthropicSettings) {
		s.opts = append(s.opts, option.WithMaxRetries(n))
	}
}

// WithAnthropicModel sets the model used when a request names none.
func WithAnthropicModel(model string) AnthropicOption {
	return func(s *anthropicSettings) {
		s.model = model
	}
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	s := anthropicSettings{
		model: defaultAnthropicModel,
		opts:  []option.RequestOption{option.WithAPIKey(apiKey)},
	}
	for _, opt := range opts {
		opt(&s)
	}

	client := anthropic.NewClient(s.opts...)
	return &AnthropicProvider{client: &client, model: s.model}, nil
}

func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	system, rest := splitSystem(req.Messages)
	messages := make([]anthropic.MessageParam, 0, len(rest))
	for _, m := range rest {
		role := anthropic.MessageParamRoleUser
		if m.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		messages = append(messages, anthropic.MessageParam{
			Role:    role,
			Content: []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(m.Content)},
		})
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if req.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Temperature)
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return CompletionResponse{}, fmt.Errorf("anthropic API error %d: %w", apiErr.StatusCode, err)
		}
		return CompletionResponse{}, fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return CompletionResponse{
				Content:      block.Text,
				Model:        string(msg.Model),
				InputTokens:  int(msg.Usage.InputTokens),
				OutputTokens: int(msg.Usage.OutputTokens),
			}, nil
		}
	}
	return CompletionResponse{}, fmt.Errorf("anthropic returned no content")
}

func (p *AnthropicProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "claude-sonnet-4-6", Name: "Claude Sonnet 4.6", MaxTokens: 200000, Description: "Best for tutoring"},
		{ID: "claude-haiku-4-5-20251001", Name: "Claude Haiku 4.5", MaxTokens: 200000, Description: "Fast summaries"},
	}
}

// HealthCheck sends a one-token request.
func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	_, err := p.Complete(ctx, CompletionRequest{
		Messages:  []Message{{Role: RoleUser, Content: "ping"}},
		MaxTokens: 1,
	})
	return err
}
