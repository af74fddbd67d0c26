package pipeline

import (
	"context"
	"sync"

	"github.com/hyperengineering/pagesmith/internal/types"
)

type mockFetcher struct {
	content string
	err     error
	block   bool
	calls   int
}

func (m *mockFetcher) Fetch(ctx context.Context, url string) (string, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return m.content, m.err
}

type mockMatcher struct {
	result     types.MatchResult
	err        error
	candidates []string
}

func (m *mockMatcher) FindBestMatch(ctx context.Context, candidate string) (types.MatchResult, error) {
	m.candidates = append(m.candidates, candidate)
	return m.result, m.err
}

type insertCall struct {
	original    string
	transformed string
	ctxErr      error
}

type mockRecords struct {
	mu    sync.Mutex
	err   error
	calls []insertCall
}

func (m *mockRecords) Insert(ctx context.Context, original, transformed string) (*types.Transformation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, insertCall{original, transformed, ctx.Err()})
	if m.err != nil {
		return nil, m.err
	}
	return &types.Transformation{ID: "01TEST", Original: original, Transformed: transformed}, nil
}

type rewriteCall struct {
	content     string
	instruction string
}

type mockRewriter struct {
	result string
	err    error
	calls  []rewriteCall
}

func (m *mockRewriter) Rewrite(ctx context.Context, content, instruction string) (string, error) {
	m.calls = append(m.calls, rewriteCall{content, instruction})
	return m.result, m.err
}

type mockAutomator struct {
	err  error
	urls []string
}

func (m *mockAutomator) Run(ctx context.Context, url string) (string, error) {
	m.urls = append(m.urls, url)
	if m.err != nil {
		return "", m.err
	}
	return "clicked first link", nil
}

type mockNarrator struct {
	err   error
	texts []string
}

func (m *mockNarrator) Narrate(ctx context.Context, text string) error {
	m.texts = append(m.texts, text)
	return m.err
}
