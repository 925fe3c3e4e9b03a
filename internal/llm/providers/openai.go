package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/haasonsaas/agentrunner/internal/llm"
)

const openaiName = "openai"

// OpenAIConfig configures an OpenAIProvider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

// OpenAIProvider implements llm.Client over OpenAI's chat-completions API
// using a single, non-streaming CreateChatCompletion call.
type OpenAIProvider struct {
	policy       callPolicy
	client       *openai.Client
	defaultModel string
}

// NewOpenAIProvider constructs an OpenAIProvider.
func NewOpenAIProvider(config OpenAIConfig) (*OpenAIProvider, error) {
	if config.DefaultModel == "" {
		config.DefaultModel = openai.GPT4o
	}
	var clientConfig openai.ClientConfig
	if config.BaseURL != "" {
		clientConfig = openai.DefaultConfig(config.APIKey)
		clientConfig.BaseURL = config.BaseURL
	} else {
		clientConfig = openai.DefaultConfig(config.APIKey)
	}
	return &OpenAIProvider{
		policy:       newCallPolicy(config.MaxRetries, config.RetryDelay),
		client:       openai.NewClientWithConfig(clientConfig),
		defaultModel: config.DefaultModel,
	}, nil
}

// ModelName returns the provider's configured default model.
func (p *OpenAIProvider) ModelName() string { return p.defaultModel }

// EstimateTokens applies the char/4 heuristic used across providers that
// don't expose a tokenizer.
func (p *OpenAIProvider) EstimateTokens(text string) int {
	return len(text) / 4
}

// ChatCompletion sends a single request and returns the assistant's reply.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &llm.LMError{Reason: llm.FailoverInvalidRequest, Provider: openaiName, Message: "no messages"}
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case llm.RoleSystem:
			role = openai.ChatMessageRoleSystem
		case llm.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       p.defaultModel,
		Messages:    messages,
		Temperature: float32(req.Temperature),
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}

	var resp openai.ChatCompletionResponse
	err := p.policy.attempt(ctx, isRetryableOpenAIError, func() error {
		r, callErr := p.client.CreateChatCompletion(ctx, chatReq)
		if callErr != nil {
			return callErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, classifyOpenAIError(openaiName, p.defaultModel, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.LMError{Reason: llm.FailoverUnknown, Provider: openaiName, Model: p.defaultModel, Message: "empty choices"}
	}

	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{Message: llm.ChatMessage{Role: llm.RoleAssistant, Content: resp.Choices[0].Message.Content}}},
		Model:   resp.Model,
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

func isRetryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
	}
	return false
}

func classifyOpenAIError(provider, model string, err error) *llm.LMError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		reason := llm.FailoverUnknown
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			reason = llm.FailoverRateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			reason = llm.FailoverAuth
		case http.StatusRequestTimeout, http.StatusGatewayTimeout:
			reason = llm.FailoverTimeout
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			reason = llm.FailoverInvalidRequest
		default:
			if apiErr.HTTPStatusCode >= 500 {
				reason = llm.FailoverServerError
			}
		}
		return &llm.LMError{Reason: reason, Provider: provider, Model: model, Status: apiErr.HTTPStatusCode, Message: apiErr.Message, Cause: err}
	}
	return &llm.LMError{Reason: llm.FailoverUnknown, Provider: provider, Model: model, Cause: err}
}
