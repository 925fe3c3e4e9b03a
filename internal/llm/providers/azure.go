package providers

import (
	"context"
	"errors"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/haasonsaas/agentrunner/internal/llm"
)

const azureName = "azure"

// AzureConfig configures an AzureProvider.
//
// Azure OpenAI supports two auth modes: a static API key, or Azure AD
// client-credentials (set TenantID/ClientID/ClientSecret) which exchanges
// for a bearer token via golang.org/x/oauth2. The latter is preferred for
// enterprise deployments that forbid long-lived API keys.
type AzureConfig struct {
	Endpoint     string
	APIKey       string
	APIVersion   string
	DefaultModel string

	TenantID     string
	ClientID     string
	ClientSecret string

	MaxRetries int
	RetryDelay time.Duration
}

// AzureProvider implements llm.Client for Azure OpenAI Service deployments.
type AzureProvider struct {
	policy       callPolicy
	client       *openai.Client
	defaultModel string
}

const azureAADScope = "https://cognitiveservices.azure.com/.default"

// NewAzureProvider constructs an AzureProvider. When TenantID/ClientID/
// ClientSecret are set, it authenticates via Azure AD client-credentials
// instead of the static API key.
func NewAzureProvider(ctx context.Context, cfg AzureConfig) (*AzureProvider, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("azure: endpoint is required")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-02-15-preview"
	}

	var clientConfig openai.ClientConfig
	if cfg.TenantID != "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		tokenSource := (&clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     "https://login.microsoftonline.com/" + cfg.TenantID + "/oauth2/v2.0/token",
			Scopes:       []string{azureAADScope},
		}).TokenSource(ctx)
		if _, err := tokenSource.Token(); err != nil {
			return nil, &llm.LMError{Reason: llm.FailoverAuth, Provider: azureName, Message: "AAD token exchange failed", Cause: err}
		}
		clientConfig = openai.DefaultAzureConfig("", cfg.Endpoint)
		clientConfig.APIVersion = cfg.APIVersion
		clientConfig.HTTPClient = oauth2.NewClient(ctx, tokenSource)
	} else {
		if cfg.APIKey == "" {
			return nil, errors.New("azure: API key or AAD credentials are required")
		}
		clientConfig = openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		clientConfig.APIVersion = cfg.APIVersion
	}

	return &AzureProvider{
		policy:       newCallPolicy(cfg.MaxRetries, cfg.RetryDelay),
		client:       openai.NewClientWithConfig(clientConfig),
		defaultModel: cfg.DefaultModel,
	}, nil
}

// ModelName returns the provider's configured deployment name.
func (p *AzureProvider) ModelName() string { return p.defaultModel }

// EstimateTokens applies the char/4 heuristic used across providers.
func (p *AzureProvider) EstimateTokens(text string) int {
	return len(text) / 4
}

// ChatCompletion sends a single request to the Azure deployment and
// returns the assistant's reply.
func (p *AzureProvider) ChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &llm.LMError{Reason: llm.FailoverInvalidRequest, Provider: azureName, Message: "no messages"}
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
		return nil, classifyOpenAIError(azureName, p.defaultModel, err)
	}
	if len(resp.Choices) == 0 {
		return nil, &llm.LMError{Reason: llm.FailoverUnknown, Provider: azureName, Model: p.defaultModel, Message: "empty choices"}
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
