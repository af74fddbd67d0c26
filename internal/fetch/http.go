package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// DefaultMaxBodyBytes is the largest page Fetch accepts.
const DefaultMaxBodyBytes = 10 << 20

// ErrBodyTooLarge is returned for pages larger than the fetcher's limit.
var ErrBodyTooLarge = errors.New("page exceeds size limit")

const userAgent = "pagesmith/1.0 (+https://github.com/hyperengineering/pagesmith)"

// HTTPFetcher retrieves raw HTML with a single GET.
type HTTPFetcher struct {
	client  *http.Client
	maxBody int64
}

// NewHTTPFetcher creates an HTTPFetcher. A nil client uses http.DefaultClient.
func NewHTTPFetcher(client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{client: client, maxBody: DefaultMaxBodyBytes}
}

// Fetch returns the response body for url. Non-2xx statuses are errors.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.maxBody {
		return "", fmt.Errorf("get %s: %w (%d bytes)", url, ErrBodyTooLarge, f.maxBody)
	}
	if len(body) == 0 {
		return "", ErrEmptyContent
	}

	return string(body), nil
}
