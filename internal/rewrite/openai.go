package rewrite

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Compile-time interface check
var _ Rewriter = (*OpenAICompatible)(nil)

// ChatService defines the chat completion call.
// This abstraction enables testing without calling a real endpoint.
type ChatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// OpenAICompatible rewrites through any OpenAI-style chat completion endpoint,
// including Mistral's.
type OpenAICompatible struct {
	chat  ChatService
	model openai.ChatModel
}

// NewOpenAICompatible creates a rewriter. An empty baseURL targets OpenAI.
func NewOpenAICompatible(apiKey, baseURL, model string) *OpenAICompatible {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAICompatible{
		chat:  client.Chat.Completions,
		model: openai.ChatModel(model),
	}
}

// Rewrite asks the model for the modified page. Sampling is deterministic.
func (o *OpenAICompatible) Rewrite(ctx context.Context, content, instruction string) (string, error) {
	resp, err := o.chat.New(ctx, openai.ChatCompletionNewParams{
		Messages: openai.F([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(BuildPrompt(content, instruction)),
		}),
		Model:       openai.F(o.model),
		Temperature: openai.F(0.0),
		TopP:        openai.F(1.0),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion failed: no choices returned")
	}

	return StripFences(resp.Choices[0].Message.Content), nil
}

// ModelName returns the chat model name
func (o *OpenAICompatible) ModelName() string {
	return string(o.model)
}
