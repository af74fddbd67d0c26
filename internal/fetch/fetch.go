// Package fetch retrieves the rendered HTML of a page, either through a real
// browser or a plain HTTP GET.
package fetch

import (
	"context"
	"errors"
	"fmt"
)

// Fetch modes.
const (
	ModeBrowser = "browser"
	ModeHTTP    = "http"
)

// ErrEmptyContent is returned when a page renders to nothing.
var ErrEmptyContent = errors.New("page has no content")

// Fetcher retrieves a page's HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// PageSource produces the final HTML of a rendered page.
type PageSource interface {
	RenderHTML(ctx context.Context, url string) (string, error)
}

// BrowserFetcher renders pages with a browser so that script-built content is
// included.
type BrowserFetcher struct {
	source PageSource
}

// NewBrowserFetcher creates a fetcher backed by source.
func NewBrowserFetcher(source PageSource) *BrowserFetcher {
	return &BrowserFetcher{source: source}
}

// Fetch renders url and returns the document's HTML.
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (string, error) {
	html, err := f.source.RenderHTML(ctx, url)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	if html == "" {
		return "", ErrEmptyContent
	}
	return html, nil
}
