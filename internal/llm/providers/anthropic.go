package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/haasonsaas/agentrunner/internal/llm"
)

const anthropicName = "anthropic"

// AnthropicConfig configures an AnthropicProvider.
type AnthropicConfig struct {
	// APIKey authenticates with the Anthropic API. Obtain from
	// https://console.anthropic.com/. Falls back to ANTHROPIC_API_KEY.
	APIKey string

	// BaseURL overrides the API endpoint, e.g. for a proxy.
	BaseURL string

	// DefaultModel is the model every request is sent to; requests carry no
	// model of their own.
	DefaultModel string

	// MaxRetries and RetryDelay bound the retry policy.
	MaxRetries int
	RetryDelay time.Duration
}

// AnthropicProvider implements llm.Client for Anthropic's Claude API using
// a single-shot (non-streaming) Messages.New call, since the Planning
// Engine consumes a complete response rather than a token stream.
type AnthropicProvider struct {
	policy       callPolicy
	client       anthropic.Client
	defaultModel string
}

// NewAnthropicProvider constructs an AnthropicProvider. An empty APIKey is
// allowed; the underlying SDK then falls back to the ANTHROPIC_API_KEY
// environment variable.
func NewAnthropicProvider(config AnthropicConfig) (*AnthropicProvider, error) {
	if config.DefaultModel == "" {
		config.DefaultModel = "claude-sonnet-4-20250514"
	}
	opts := []option.RequestOption{}
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	return &AnthropicProvider{
		policy:       newCallPolicy(config.MaxRetries, config.RetryDelay),
		client:       anthropic.NewClient(opts...),
		defaultModel: config.DefaultModel,
	}, nil
}

// ModelName returns the provider's configured default model.
func (p *AnthropicProvider) ModelName() string { return p.defaultModel }

// EstimateTokens applies a conservative char/4 heuristic; the SDK does
// not expose a local tokenizer.
func (p *AnthropicProvider) EstimateTokens(text string) int {
	return len(text) / 4
}

// ChatCompletion sends a single request and returns the assistant's reply.
func (p *AnthropicProvider) ChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &llm.LMError{Reason: llm.FailoverInvalidRequest, Provider: anthropicName, Message: "no messages"}
	}

	model := p.defaultModel
	var system string
	var messages []anthropic.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case llm.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages:  messages,
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}

	var message *anthropic.Message
	err := p.policy.attempt(ctx, isRetryableHTTPError, func() error {
		m, callErr := p.client.Messages.New(ctx, params)
		if callErr != nil {
			return callErr
		}
		message = m
		return nil
	})
	if err != nil {
		return nil, classifyAnthropicError(anthropicName, model, err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	resp := &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{Message: llm.ChatMessage{Role: llm.RoleAssistant, Content: text}}},
		Model:   string(message.Model),
		Usage: &llm.Usage{
			PromptTokens:     int(message.Usage.InputTokens),
			CompletionTokens: int(message.Usage.OutputTokens),
			TotalTokens:      int(message.Usage.InputTokens + message.Usage.OutputTokens),
		},
	}
	return resp, nil
}

func isRetryableHTTPError(err error) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

// anthropicErrorPayload is the error body shape the Anthropic API returns.
type anthropicErrorPayload struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func classifyAnthropicError(provider, model string, err error) *llm.LMError {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		reason := llm.FailoverUnknown
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			reason = llm.FailoverRateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			reason = llm.FailoverAuth
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			reason = llm.FailoverTimeout
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			reason = llm.FailoverInvalidRequest
		default:
			if apiErr.StatusCode >= 500 {
				reason = llm.FailoverServerError
			}
		}
		message := err.Error()
		if raw := apiErr.RawJSON(); raw != "" {
			var payload anthropicErrorPayload
			if json.Unmarshal([]byte(raw), &payload) == nil && payload.Error.Message != "" {
				message = payload.Error.Message
			}
		}
		return &llm.LMError{Reason: reason, Provider: provider, Model: model, Status: apiErr.StatusCode, Message: message, Cause: err}
	}
	return &llm.LMError{Reason: llm.FailoverUnknown, Provider: provider, Model: model, Cause: err}
}
