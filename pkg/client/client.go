// Package client calls a Pagesmith server from Go.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout leaves room for a full rewrite round trip.
const DefaultTimeout = 5 * time.Minute

// Client sends modification requests to a Pagesmith server.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("BaseURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Modify asks the server to apply changes to the page at url. A failure the
// server reports in its envelope is returned as *ServerError.
func (c *Client) Modify(ctx context.Context, url, changes string) (*Result, error) {
	body, err := json.Marshal(modifyRequest{URL: url, Changes: changes})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/modify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var env envelope
	if err := c.do(req, &env); err != nil {
		return nil, err
	}

	if env.Error != "" {
		return nil, &ServerError{Message: env.Error}
	}
	if env.HTML == "" && env.Message == "" {
		return nil, errors.New("pagesmith: empty response envelope")
	}
	return &Result{HTML: env.HTML, Message: env.Message}, nil
}

// Health fetches the server's health report.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, err
	}

	var h Health
	if err := c.do(req, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var p problem
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)); readErr == nil {
			if json.Unmarshal(data, &p) == nil {
				statusErr.Detail = p.Detail
			}
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
