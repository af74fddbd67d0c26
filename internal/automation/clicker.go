// Package automation drives a visible browser on the user's behalf.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/hyperengineering/pagesmith/internal/browser"
	"github.com/oklog/ulid/v2"
)

// DefaultSessionTimeout is how long a page stays open after the click.
const DefaultSessionTimeout = 6 * time.Minute

// linkWait bounds the search for a clickable link on a loaded page.
const linkWait = 10 * time.Second

var _ PageOpener = (*browser.Manager)(nil)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("automation: closed")

// PageOpener opens a navigated page.
type PageOpener interface {
	OpenPage(ctx context.Context, url string) (*rod.Page, error)
}

// LinkClicker opens a page, clicks its first link and leaves the browser on
// the result for the session timeout.
type LinkClicker struct {
	pages          PageOpener
	sessionTimeout time.Duration
	sessions       *sessions
}

// NewLinkClicker creates a LinkClicker. A non-positive sessionTimeout uses
// DefaultSessionTimeout.
func NewLinkClicker(pages PageOpener, sessionTimeout time.Duration) *LinkClicker {
	if sessionTimeout <= 0 {
		sessionTimeout = DefaultSessionTimeout
	}
	return &LinkClicker{
		pages:          pages,
		sessionTimeout: sessionTimeout,
		sessions:       newSessions(),
	}
}

// Run returns once the first link has been clicked. The page stays open in
// the background.
func (c *LinkClicker) Run(ctx context.Context, url string) (string, error) {
	page, err := c.pages.OpenPage(ctx, url)
	if err != nil {
		return "", err
	}

	href, err := clickFirstLink(page.Context(ctx).Timeout(linkWait))
	if err != nil {
		page.Close()
		return "", err
	}

	id := ulid.Make().String()
	if !c.sessions.hold(id, page, c.sessionTimeout) {
		return "", ErrClosed
	}

	slog.Info("automation session started",
		"component", "automation",
		"session", id,
		"url", url,
		"clicked", href,
		"timeout", c.sessionTimeout.String(),
	)
	return fmt.Sprintf("session %s clicked %s", id, href), nil
}

func clickFirstLink(page *rod.Page) (string, error) {
	link, err := page.Element("a[href]")
	if err != nil {
		return "", fmt.Errorf("find link: %w", err)
	}

	href := ""
	if attr, err := link.Attribute("href"); err == nil && attr != nil {
		href = *attr
	}

	if err := link.ScrollIntoView(); err != nil {
		return "", fmt.Errorf("scroll to link: %w", err)
	}
	if err := link.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("click link: %w", err)
	}
	return href, nil
}

// Open returns the number of sessions still running.
func (c *LinkClicker) Open() int {
	return c.sessions.count()
}

// Close ends all running sessions.
func (c *LinkClicker) Close() error {
	c.sessions.closeAll()
	return nil
}
