package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyperengineering/pagesmith/internal/browser"
)

// idleWait bounds how long a loaded page may keep making requests before its
// HTML is captured anyway.
const idleWait = 5 * time.Second

// RodSource renders pages in a shared headless Chrome.
type RodSource struct {
	manager *browser.Manager
}

// NewRodSource creates a PageSource on manager.
func NewRodSource(manager *browser.Manager) *RodSource {
	return &RodSource{manager: manager}
}

// RenderHTML opens url in a fresh tab, waits for the page to go idle and
// returns the serialised document.
func (s *RodSource) RenderHTML(ctx context.Context, url string) (string, error) {
	page, err := s.manager.OpenPage(ctx, url)
	if err != nil {
		return "", err
	}
	defer page.Close()

	if err := page.Context(ctx).WaitIdle(idleWait); err != nil {
		slog.Debug("page did not go idle", "component", "fetch", "url", url, "error", err)
	}

	html, err := page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("read page html: %w", err)
	}
	return html, nil
}
