package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

func init() {
	RegisterFactory("bedrock", func(config map[string]any) (Provider, error) {
		region := ""
		if r, ok := config["region"].(string); ok {
			region = r
		}
		return NewBedrockProvider(context.Background(), region)
	})
}

// BedrockConverseClient is the slice of the Bedrock runtime SDK the
// provider needs. Narrowed to an interface for testability.
type BedrockConverseClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockProvider implements Provider on top of the Bedrock Converse
// API. Credentials come from the AWS default chain.
type BedrockProvider struct {
	client BedrockConverseClient
}

// NewBedrockProvider creates a new Bedrock provider
func NewBedrockProvider(ctx context.Context, region string) (*BedrockProvider, error) {
	loadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(loadCtx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &BedrockProvider{client: bedrockruntime.NewFromConfig(cfg)}, nil
}

// NewBedrockProviderWithClient creates a Bedrock provider from an
// existing client (useful for testing).
func NewBedrockProviderWithClient(client BedrockConverseClient) *BedrockProvider {
	return &BedrockProvider{client: client}
}

// Name returns the provider name
func (p *BedrockProvider) Name() string {
	return "bedrock"
}

// CreateCompletion creates a completion
func (p *BedrockProvider) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = "anthropic.claude-3-haiku-20240307-v1:0"
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(model),
	}

	for _, m := range req.Messages {
		if m.Role == "system" {
			input.System = append(input.System, &types.SystemContentBlockMemberText{Value: m.Content})
			continue
		}

		role := types.ConversationRoleUser
		if m.Role == "assistant" {
			role = types.ConversationRoleAssistant
		}
		input.Messages = append(input.Messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	inference := &types.InferenceConfiguration{
		Temperature: aws.Float32(float32(req.Temperature)),
	}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}
	input.InferenceConfig = inference

	out, err := p.client.Converse(ctx, input)
	if err != nil {
		return nil, p.wrapError(err)
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, NewProviderError("bedrock", ErrorCodeUnknown, "unexpected output type", nil)
	}

	var content string
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			content += text.Value
		}
	}

	var usage Usage
	if out.Usage != nil {
		usage.PromptTokens = int(aws.ToInt32(out.Usage.InputTokens))
		usage.CompletionTokens = int(aws.ToInt32(out.Usage.OutputTokens))
		usage.TotalTokens = int(aws.ToInt32(out.Usage.TotalTokens))
	}

	return &CompletionResponse{
		Content:      content,
		FinishReason: strings.ToLower(string(out.StopReason)),
		Usage:        usage,
	}, nil
}

func (p *BedrockProvider) wrapError(err error) error {
	code := ErrorCodeUnknown
	errMsg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errMsg, "throttl") || strings.Contains(errMsg, "429"):
		code = ErrorCodeRateLimit
	case strings.Contains(errMsg, "accessdenied") || strings.Contains(errMsg, "unrecognizedclient") || strings.Contains(errMsg, "credential"):
		code = ErrorCodeAuthentication
	case strings.Contains(errMsg, "resourcenotfound") || strings.Contains(errMsg, "not found"):
		code = ErrorCodeModelNotFound
	case strings.Contains(errMsg, "validation"):
		code = ErrorCodeInvalidRequest
	case strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "deadline"):
		code = ErrorCodeTimeout
	case strings.Contains(errMsg, "serviceunavailable") || strings.Contains(errMsg, "internal"):
		code = ErrorCodeServerError
	}

	return &ProviderError{
		Provider:      "bedrock",
		Code:          code,
		Message:       err.Error(),
		IsRetryable:   isRetryableCode(code),
		OriginalError: err,
	}
}
