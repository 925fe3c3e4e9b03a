package providers

import (
	"context"
	"time"

	"google.golang.org/genai"

	"github.com/haasonsaas/agentrunner/internal/llm"
)

const googleName = "google"

// GoogleConfig configures a GoogleProvider.
type GoogleConfig struct {
	APIKey       string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

// GoogleProvider implements llm.Client for Google's Gemini API via a
// single non-streaming GenerateContent call.
type GoogleProvider struct {
	policy       callPolicy
	client       *genai.Client
	defaultModel string
}

// NewGoogleProvider constructs a GoogleProvider against the Gemini API
// backend.
func NewGoogleProvider(ctx context.Context, config GoogleConfig) (*GoogleProvider, error) {
	if config.DefaultModel == "" {
		config.DefaultModel = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, &llm.LMError{Reason: llm.FailoverUnknown, Provider: googleName, Message: "client init failed", Cause: err}
	}
	return &GoogleProvider{
		policy:       newCallPolicy(config.MaxRetries, config.RetryDelay),
		client:       client,
		defaultModel: config.DefaultModel,
	}, nil
}

// ModelName returns the provider's configured default model.
func (p *GoogleProvider) ModelName() string { return p.defaultModel }

// EstimateTokens applies the char/4 heuristic used across providers.
func (p *GoogleProvider) EstimateTokens(text string) int {
	return len(text) / 4
}

// ChatCompletion sends a single request and returns the model's reply.
func (p *GoogleProvider) ChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &llm.LMError{Reason: llm.FailoverInvalidRequest, Provider: googleName, Message: "no messages"}
	}

	var contents []*genai.Content
	var system string
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case llm.RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_object" {
		config.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	var result *genai.GenerateContentResponse
	// No error is classified as transient here, so the request is made once.
	err := p.policy.attempt(ctx, func(error) bool { return false }, func() error {
		r, callErr := p.client.Models.GenerateContent(ctx, p.defaultModel, contents, config)
		if callErr != nil {
			return callErr
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, &llm.LMError{Reason: llm.FailoverUnknown, Provider: googleName, Model: p.defaultModel, Cause: err}
	}

	text := result.Text()
	usage := &llm.Usage{}
	if result.UsageMetadata != nil {
		usage.PromptTokens = int(result.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(result.UsageMetadata.TotalTokenCount)
	}

	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{Message: llm.ChatMessage{Role: llm.RoleAssistant, Content: text}}},
		Model:   p.defaultModel,
		Usage:   usage,
	}, nil
}
