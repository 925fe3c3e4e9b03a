package providers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/haasonsaas/agentrunner/internal/llm"
)

const bedrockName = "bedrock"

// BedrockConfig configures a BedrockProvider.
type BedrockConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	DefaultModel    string
	MaxRetries      int
	RetryDelay      time.Duration
}

// BedrockProvider implements llm.Client over AWS Bedrock's Converse API
// using a single, non-streaming Converse call.
type BedrockProvider struct {
	policy       callPolicy
	client       *bedrockruntime.Client
	defaultModel string
}

// NewBedrockProvider constructs a BedrockProvider, resolving AWS credentials
// from explicit config or the default credential chain (env, IAM role).
func NewBedrockProvider(ctx context.Context, cfg BedrockConfig) (*BedrockProvider, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = "anthropic.claude-3-sonnet-20240229-v1:0"
	}

	var awsCfg aws.Config
	var err error
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsCfg, err = config.LoadDefaultConfig(ctx,
			config.WithRegion(cfg.Region),
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	} else {
		awsCfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("bedrock: failed to load AWS config: %w", err)
	}

	return &BedrockProvider{
		policy:       newCallPolicy(cfg.MaxRetries, cfg.RetryDelay),
		client:       bedrockruntime.NewFromConfig(awsCfg),
		defaultModel: cfg.DefaultModel,
	}, nil
}

// ModelName returns the provider's configured default model.
func (p *BedrockProvider) ModelName() string { return p.defaultModel }

// EstimateTokens applies the char/4 heuristic used across providers.
func (p *BedrockProvider) EstimateTokens(text string) int {
	return len(text) / 4
}

// ChatCompletion sends a single request via Converse and returns the
// model's reply.
func (p *BedrockProvider) ChatCompletion(ctx context.Context, req *llm.ChatCompletionRequest) (*llm.ChatCompletionResponse, error) {
	if req == nil || len(req.Messages) == 0 {
		return nil, &llm.LMError{Reason: llm.FailoverInvalidRequest, Provider: bedrockName, Message: "no messages"}
	}

	var system string
	var messages []types.Message
	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
		case llm.RoleAssistant:
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleAssistant,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		default:
			messages = append(messages, types.Message{
				Role:    types.ConversationRoleUser,
				Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
			})
		}
	}

	converseReq := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(p.defaultModel),
		Messages: messages,
	}
	if system != "" {
		converseReq.System = []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}}
	}
	if req.MaxTokens > 0 {
		converseReq.InferenceConfig = &types.InferenceConfiguration{MaxTokens: aws.Int32(int32(req.MaxTokens))}
	}

	var result *bedrockruntime.ConverseOutput
	err := p.policy.attempt(ctx, isRetryableBedrockError, func() error {
		r, callErr := p.client.Converse(ctx, converseReq)
		if callErr != nil {
			return callErr
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, classifyBedrockError(bedrockName, p.defaultModel, err)
	}

	var text string
	if output, ok := result.Output.(*types.ConverseOutputMemberMessage); ok {
		for _, block := range output.Value.Content {
			if tb, ok := block.(*types.ContentBlockMemberText); ok {
				text += tb.Value
			}
		}
	}

	usage := &llm.Usage{}
	if result.Usage != nil {
		usage.PromptTokens = int(aws.ToInt32(result.Usage.InputTokens))
		usage.CompletionTokens = int(aws.ToInt32(result.Usage.OutputTokens))
		usage.TotalTokens = int(aws.ToInt32(result.Usage.TotalTokens))
	}

	return &llm.ChatCompletionResponse{
		Choices: []llm.Choice{{Message: llm.ChatMessage{Role: llm.RoleAssistant, Content: text}}},
		Model:   p.defaultModel,
		Usage:   usage,
	}, nil
}

func isRetryableBedrockError(err error) bool {
	if err == nil {
		return false
	}
	var throttling *types.ThrottlingException
	var serviceUnavail *types.ServiceUnavailableException
	var internalErr *types.InternalServerException
	switch {
	case errors.As(err, &throttling), errors.As(err, &serviceUnavail), errors.As(err, &internalErr):
		return true
	}
	return false
}

func classifyBedrockError(provider, model string, err error) *llm.LMError {
	reason := llm.FailoverUnknown
	var throttling *types.ThrottlingException
	var accessDenied *types.AccessDeniedException
	var validation *types.ValidationException
	switch {
	case errors.As(err, &throttling):
		reason = llm.FailoverRateLimit
	case errors.As(err, &accessDenied):
		reason = llm.FailoverAuth
	case errors.As(err, &validation):
		reason = llm.FailoverInvalidRequest
	}
	return &llm.LMError{Reason: reason, Provider: provider, Model: model, Cause: err}
}
