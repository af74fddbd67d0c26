package rewrite

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

var _ Rewriter = (*Anthropic)(nil)

// MessagesService defines the Messages API call.
type MessagesService interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic rewrites with Claude models through the Messages API.
type Anthropic struct {
	messages  MessagesService
	model     anthropic.Model
	maxTokens int64
}

// NewAnthropic creates a rewriter. An empty baseURL targets the public API.
func NewAnthropic(apiKey, baseURL, model string, maxTokens int64) *Anthropic {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)
	return &Anthropic{
		messages:  &client.Messages,
		model:     anthropic.Model(model),
		maxTokens: maxTokens,
	}
}

// Rewrite asks the model for the modified page.
func (a *Anthropic) Rewrite(ctx context.Context, content, instruction string) (string, error) {
	msg, err := a.messages.New(ctx, anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   a.maxTokens,
		Temperature: anthropic.Float(0),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(BuildPrompt(content, instruction))),
		},
	})
	if err != nil {
		return "", fmt.Errorf("messages request failed: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("messages request failed: no text returned")
	}

	return StripFences(b.String()), nil
}

// ModelName returns the model name
func (a *Anthropic) ModelName() string {
	return string(a.model)
}
