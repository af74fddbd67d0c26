// Package pipeline routes a page-transformation request through fetch, cache
// lookup and the matching backend.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hyperengineering/pagesmith/internal/markup"
	"github.com/hyperengineering/pagesmith/internal/types"
)

// Fetcher retrieves the rendered content of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Matcher looks up a previously computed transformation for similar content.
type Matcher interface {
	FindBestMatch(ctx context.Context, candidate string) (types.MatchResult, error)
}

// RecordWriter persists completed transformations.
type RecordWriter interface {
	Insert(ctx context.Context, original, transformed string) (*types.Transformation, error)
}

// Rewriter produces a modified page from its content and the user's instruction.
type Rewriter interface {
	Rewrite(ctx context.Context, content, instruction string) (string, error)
}

// Automator starts a browser session that acts on the page.
type Automator interface {
	Run(ctx context.Context, url string) (string, error)
}

// Narrator speaks text aloud.
type Narrator interface {
	Narrate(ctx context.Context, text string) error
}

// Collaborators are the backends the orchestrator dispatches to.
type Collaborators struct {
	Fetcher   Fetcher
	Matcher   Matcher
	Records   RecordWriter
	Rewriter  Rewriter
	Automator Automator
	Narrator  Narrator
}

// Orchestrator handles one request at a time per call; it holds no
// per-request state and is safe for concurrent use.
type Orchestrator struct {
	fetcher      Fetcher
	matcher      Matcher
	records      RecordWriter
	rewriter     Rewriter
	automator    Automator
	narrator     Narrator
	fetchTimeout time.Duration
}

// NewOrchestrator wires the collaborators. A zero fetchTimeout leaves the
// fetch bounded only by the request context.
func NewOrchestrator(c Collaborators, fetchTimeout time.Duration) *Orchestrator {
	return &Orchestrator{
		fetcher:      c.Fetcher,
		matcher:      c.Matcher,
		records:      c.Records,
		rewriter:     c.Rewriter,
		automator:    c.Automator,
		narrator:     c.Narrator,
		fetchTimeout: fetchTimeout,
	}
}

// Handle runs the request to completion. On success exactly one of the
// response's HTML or Message fields is set. On failure the error wraps one of
// ErrFetch, ErrStorage, ErrModify, ErrAutomation or ErrNarration.
func (o *Orchestrator) Handle(ctx context.Context, url, instruction string) (types.ModifyResponse, error) {
	start := time.Now()

	content, err := o.fetch(ctx, url)
	if err != nil {
		return o.fail(url, err)
	}

	match, err := o.matcher.FindBestMatch(ctx, content)
	if err != nil {
		return o.fail(url, fmt.Errorf("%w: %w", ErrStorage, err))
	}
	if match.Matched() {
		slog.Info("reusing similar transformation",
			"component", "pipeline",
			"url", url,
			"id", match.Record.ID,
			"score", match.Score,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return types.ModifyResponse{HTML: match.Record.Transformed}, nil
	}

	action := Classify(instruction)
	slog.Debug("dispatching request",
		"component", "pipeline",
		"url", url,
		"action", action.String(),
	)

	var resp types.ModifyResponse
	if action == ActionAutomate {
		resp, err = o.automate(ctx, url)
	} else {
		resp, err = o.modify(ctx, url, content, instruction, action == ActionModifyAndNarrate)
	}
	if err != nil {
		return o.fail(url, err)
	}

	slog.Info("request completed",
		"component", "pipeline",
		"url", url,
		"action", action.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (o *Orchestrator) fetch(ctx context.Context, url string) (string, error) {
	if o.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.fetchTimeout)
		defer cancel()
	}

	content, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: empty content", ErrFetch)
	}
	return content, nil
}

func (o *Orchestrator) automate(ctx context.Context, url string) (types.ModifyResponse, error) {
	ack, err := o.automator.Run(ctx, url)
	if err != nil {
		return types.ModifyResponse{}, fmt.Errorf("%w: %w", ErrAutomation, err)
	}

	slog.Info("automation started",
		"component", "pipeline",
		"url", url,
		"ack", ack,
	)
	return types.ModifyResponse{Message: MsgAutomationRunning}, nil
}

func (o *Orchestrator) modify(ctx context.Context, url, content, instruction string, narrate bool) (types.ModifyResponse, error) {
	modified, err := o.rewriter.Rewrite(ctx, content, instruction)
	if err != nil {
		return types.ModifyResponse{}, fmt.Errorf("%w: %w", ErrModify, err)
	}
	if strings.TrimSpace(modified) == "" {
		return types.ModifyResponse{}, fmt.Errorf("%w: empty result", ErrModify)
	}

	o.store(ctx, url, content, modified)

	if !narrate {
		return types.ModifyResponse{HTML: modified}, nil
	}

	text := markup.StripTags(modified)
	if text == "" {
		return types.ModifyResponse{}, fmt.Errorf("%w: no text to narrate", ErrNarration)
	}
	if err := o.narrator.Narrate(ctx, text); err != nil {
		return types.ModifyResponse{}, fmt.Errorf("%w: %w", ErrNarration, err)
	}
	return types.ModifyResponse{Message: MsgPlayingAudio}, nil
}

// store records a completed rewrite. The write outlives client cancellation,
// and a failure is logged without affecting the response.
func (o *Orchestrator) store(ctx context.Context, url, original, transformed string) {
	rec, err := o.records.Insert(context.WithoutCancel(ctx), original, transformed)
	if err != nil {
		slog.Error("failed to store transformation",
			"component", "pipeline",
			"url", url,
			"kind", "storage",
			"error", err,
		)
		return
	}
	slog.Debug("transformation stored",
		"component", "pipeline",
		"url", url,
		"id", rec.ID,
	)
}

func (o *Orchestrator) fail(url string, err error) (types.ModifyResponse, error) {
	level := slog.LevelError
	if errors.Is(err, context.Canceled) {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "request failed",
		"component", "pipeline",
		"url", url,
		"kind", Kind(err),
		"error", err,
	)
	return types.ModifyResponse{}, err
}
