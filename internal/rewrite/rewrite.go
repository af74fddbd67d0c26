// Package rewrite asks a language model to produce a modified version of a page.
package rewrite

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Providers.
const (
	ProviderMistral   = "mistral"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Provider defaults.
const (
	MistralBaseURL        = "https://api.mistral.ai/v1"
	DefaultMistralModel   = "codestral-latest"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultMaxTokens      = 8192
)

// Rewriter produces a modified page.
type Rewriter interface {
	Rewrite(ctx context.Context, content, instruction string) (string, error)
}

// Options selects and configures a provider.
type Options struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	MaxTokens int64
}

// New builds the Rewriter for opts.Provider, filling in provider defaults.
func New(opts Options) (Rewriter, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderMistral, "":
		if opts.BaseURL == "" {
			opts.BaseURL = MistralBaseURL
		}
		if opts.Model == "" {
			opts.Model = DefaultMistralModel
		}
		return NewOpenAICompatible(opts.APIKey, opts.BaseURL, opts.Model), nil
	case ProviderOpenAI:
		if opts.Model == "" {
			opts.Model = DefaultOpenAIModel
		}
		return NewOpenAICompatible(opts.APIKey, opts.BaseURL, opts.Model), nil
	case ProviderAnthropic:
		if opts.Model == "" {
			opts.Model = DefaultAnthropicModel
		}
		if opts.MaxTokens <= 0 {
			opts.MaxTokens = DefaultMaxTokens
		}
		return NewAnthropic(opts.APIKey, opts.BaseURL, opts.Model, opts.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported rewrite provider %q", opts.Provider)
	}
}

const systemPrompt = "You rewrite web pages. Reply with a single complete HTML document and nothing else."

// BuildPrompt renders the user turn sent to the model.
func BuildPrompt(content, instruction string) string {
	return fmt.Sprintf(`The user wants to improve a webpage.
Request: %q
Given the following HTML: %s
Generate an improved HTML page with better accessibility.`, instruction, content)
}

var fence = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\\n(.*?)\\n?```$")

// StripFences removes a markdown code fence wrapped around the whole answer.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if m := fence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}
