// Package browser owns the Chrome instances used to render and drive pages.
// A Manager launches (or connects to) Chrome lazily on first use and shares
// it between callers.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// ErrClosed is returned once the manager has been shut down.
var ErrClosed = errors.New("browser: manager is closed")

// DefaultNavigationTimeout bounds page navigation when the caller's context
// carries no earlier deadline.
const DefaultNavigationTimeout = 30 * time.Second

// Config configures a Manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local Chrome.
	RemoteURL string

	// Headless selects headless Chrome for local launches.
	Headless bool

	NavigationTimeout time.Duration

	// Name labels log lines, e.g. "fetch" or "automation".
	Name string
}

func (c *Config) defaults() {
	if c.NavigationTimeout <= 0 {
		c.NavigationTimeout = DefaultNavigationTimeout
	}
	if c.Name == "" {
		c.Name = "browser"
	}
}

// Manager holds one shared Chrome connection.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool

	// alive reports whether a connected browser still answers.
	alive func(*rod.Browser) bool
}

// NewManager creates a Manager. Chrome is not started until a page is opened.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg, alive: browserAlive}
}

func browserAlive(b *rod.Browser) bool {
	_, err := b.Version()
	return err == nil
}

// Browser returns the connected browser, launching it on first use.
func (m *Manager) Browser() (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.browser != nil {
		return m.browser, nil
	}

	b, err := m.launch()
	if err != nil {
		return nil, err
	}
	m.browser = b
	return b, nil
}

// OpenPage opens a stealth page and navigates it to pageURL, waiting for the
// load event. The caller owns the returned page and must close it.
func (m *Manager) OpenPage(ctx context.Context, pageURL string) (*rod.Page, error) {
	b, err := m.Browser()
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(b)
	if err != nil {
		m.dropIfDead(b)
		return nil, fmt.Errorf("browser: create page: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, m.cfg.NavigationTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}

	if err := page.Context(navCtx).WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("browser: wait load %s: %w", pageURL, err)
	}

	return page, nil
}

// Close shuts Chrome down. Further calls to Browser or OpenPage fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch() (*rod.Browser, error) {
	var wsURL string

	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		slog.Info("connecting to remote browser",
			"component", m.cfg.Name,
			"url", wsURL,
		)
	} else {
		l := launcher.New().
			Headless(m.cfg.Headless).
			Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		slog.Info("launched local browser",
			"component", m.cfg.Name,
			"headless", m.cfg.Headless,
		)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if m.lnch != nil {
			m.lnch.Cleanup()
			m.lnch = nil
		}
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	return b, nil
}

// dropIfDead discards b when it no longer answers, so the next Browser call
// relaunches. A browser that still answers keeps serving the pages other
// callers have open. It reports whether b was dropped.
func (m *Manager) dropIfDead(b *rod.Browser) bool {
	if m.alive(b) {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != b {
		return false
	}
	slog.Warn("browser connection lost", "component", m.cfg.Name)
	if err := m.cleanup(); err != nil {
		slog.Warn("browser cleanup failed", "component", m.cfg.Name, "error", err)
	}
	return true
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return err
}
