package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type fakeBedrockClient struct {
	out  *bedrockruntime.ConverseOutput
	err  error
	last *bedrockruntime.ConverseInput
}

func (f *fakeBedrockClient) Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.last = params
	return f.out, f.err
}

func TestBedrockCreateCompletion(t *testing.T) {
	client := &fakeBedrockClient{
		out: &bedrockruntime.ConverseOutput{
			Output: &types.ConverseOutputMemberMessage{
				Value: types.Message{
					Role:    types.ConversationRoleAssistant,
					Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: "answer"}},
				},
			},
			StopReason: types.StopReasonEndTurn,
			Usage: &types.TokenUsage{
				InputTokens:  aws.Int32(12),
				OutputTokens: aws.Int32(4),
				TotalTokens:  aws.Int32(16),
			},
		},
	}
	p := NewBedrockProviderWithClient(client)

	resp, err := p.CreateCompletion(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "question"},
		},
		Model:       "anthropic.claude-3-haiku-20240307-v1:0",
		Temperature: 0.8,
		MaxTokens:   256,
	})
	if err != nil {
		t.Fatalf("CreateCompletion: %v", err)
	}
	if resp.Content != "answer" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 16 {
		t.Errorf("total tokens = %d, want 16", resp.Usage.TotalTokens)
	}

	// System turns travel separately from the conversation.
	if len(client.last.System) != 1 {
		t.Fatalf("system blocks = %d, want 1", len(client.last.System))
	}
	if len(client.last.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(client.last.Messages))
	}
	if client.last.Messages[0].Role != types.ConversationRoleUser {
		t.Errorf("role = %q, want user", client.last.Messages[0].Role)
	}
	if aws.ToInt32(client.last.InferenceConfig.MaxTokens) != 256 {
		t.Errorf("max tokens = %d, want 256", aws.ToInt32(client.last.InferenceConfig.MaxTokens))
	}
}

func TestBedrockThrottlingMapped(t *testing.T) {
	p := NewBedrockProviderWithClient(&fakeBedrockClient{
		err: errors.New("operation error Bedrock Runtime: Converse, ThrottlingException: too many requests"),
	})

	_, err := p.CreateCompletion(context.Background(), CompletionRequest{
		Messages: []Message{{Role: "user", Content: "q"}},
	})

	var perr *ProviderError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
	if perr.Code != ErrorCodeRateLimit {
		t.Errorf("code = %q, want %q", perr.Code, ErrorCodeRateLimit)
	}
	if !perr.IsRetryable {
		t.Error("throttling should be retryable")
	}
}
