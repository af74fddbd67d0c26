package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/hyperengineering/pagesmith/internal/api"
	"github.com/hyperengineering/pagesmith/internal/automation"
	"github.com/hyperengineering/pagesmith/internal/browser"
	"github.com/hyperengineering/pagesmith/internal/config"
	"github.com/hyperengineering/pagesmith/internal/embedding"
	"github.com/hyperengineering/pagesmith/internal/fetch"
	"github.com/hyperengineering/pagesmith/internal/narrate"
	"github.com/hyperengineering/pagesmith/internal/pipeline"
	"github.com/hyperengineering/pagesmith/internal/rewrite"
	"github.com/hyperengineering/pagesmith/internal/similarity"
	"github.com/hyperengineering/pagesmith/internal/store"
	"github.com/hyperengineering/pagesmith/internal/worker"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:          "pagesmith",
	Short:        "Pagesmith - page transformation cache and dispatcher",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
}

func run(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(newLogger(os.Stdout, cfg.Log))
	slog.Info("configuration loaded",
		"log_level", cfg.Log.Level,
		"vectorizer", cfg.Similarity.Vectorizer,
		"fetch_mode", cfg.Fetch.Mode,
		"rewrite_provider", cfg.Rewrite.Provider,
	)

	db, err := store.Open(ctx, storeOptions(&cfg.Database))
	if err != nil {
		return err
	}
	slog.Info("store initialized", "driver", cfg.Database.Driver)

	matcher, embedder := newMatcher(cfg, db)
	slog.Info("matcher initialized",
		"vectorizer", matcher.Vectorizer(),
		"threshold", matcher.Threshold(),
	)

	fetcher, fetchBrowser := newFetcher(cfg)

	rewriter, err := rewrite.New(rewrite.Options{
		Provider:  cfg.Rewrite.Provider,
		APIKey:    cfg.Rewrite.APIKey,
		Model:     cfg.Rewrite.Model,
		BaseURL:   cfg.Rewrite.BaseURL,
		MaxTokens: cfg.Rewrite.MaxTokens,
	})
	if err != nil {
		db.Close()
		return err
	}

	automationBrowser := browser.NewManager(browser.Config{
		RemoteURL: cfg.Automation.BrowserURL,
		Headless:  cfg.Automation.Headless,
		Name:      "automation",
	})
	clicker := automation.NewLinkClicker(automationBrowser, cfg.Automation.SessionTimeout.Std())

	narrator, err := newNarrator(cfg.Narration)
	if err != nil {
		db.Close()
		return err
	}

	orch := pipeline.NewOrchestrator(pipeline.Collaborators{
		Fetcher:   fetcher,
		Matcher:   matcher,
		Records:   db,
		Rewriter:  rewriter,
		Automator: clicker,
		Narrator:  narrator,
	}, cfg.Fetch.Timeout.Std())

	handler := api.NewHandler(orch, db, matcher.Vectorizer(), Version, cfg.Server.MaxBodyBytes)
	router := api.NewRouter(handler, api.RouterOptions{
		APIKey:         cfg.Auth.APIKey,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
	}

	var wg sync.WaitGroup
	if embedder != nil {
		backfill := worker.NewEmbeddingBackfillWorker(db, embedder,
			cfg.Worker.EmbeddingInterval.Std(),
			cfg.Worker.EmbeddingMaxAttempts,
			cfg.Worker.EmbeddingBatchSize,
		)
		startWorker(ctx, &wg, "embedding-backfill", backfill.Run)
	}

	go func() {
		slog.Info("server starting", "address", addr)
		// ErrServerClosed is the expected error when Shutdown() is called gracefully.
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown initiated")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer shutdownCancel()

	// Drain in-flight requests before tearing down what they use.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	wg.Wait()

	closeAll([]namedCloser{
		{"automation sessions", clicker},
		{"automation browser", automationBrowser},
		{"fetch browser", fetchBrowser},
		{"store", db},
	})

	slog.Info("shutdown complete")
	return nil
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func storeOptions(db *config.DatabaseConfig) store.Options {
	return store.Options{
		Driver: db.Driver,
		Path:   db.Path,
		DSN:    db.DSN(),
	}
}

// newMatcher returns the configured matcher, plus the embedder backing it
// when the embedding vectorizer is selected.
func newMatcher(cfg *config.Config, s similarity.Scanner) (*similarity.Matcher, embedding.Embedder) {
	if cfg.Similarity.Vectorizer != similarity.VectorizerEmbedding {
		return similarity.NewTFIDFMatcher(s, cfg.Similarity.Threshold), nil
	}
	e := embedding.NewOpenAI(embedding.Options{
		APIKey:  cfg.Embedding.APIKey,
		Model:   cfg.Embedding.Model,
		BaseURL: cfg.Embedding.BaseURL,
	})
	return similarity.NewEmbeddingMatcher(s, e, cfg.Similarity.Threshold), e
}

// newFetcher returns the configured fetcher and the browser it owns, if any.
func newFetcher(cfg *config.Config) (pipeline.Fetcher, io.Closer) {
	if cfg.Fetch.Mode == fetch.ModeHTTP {
		return fetch.NewHTTPFetcher(&http.Client{Timeout: cfg.Fetch.Timeout.Std()}), nil
	}
	mgr := browser.NewManager(browser.Config{
		RemoteURL:         cfg.Fetch.BrowserURL,
		Headless:          true,
		NavigationTimeout: cfg.Fetch.Timeout.Std(),
		Name:              "fetch",
	})
	return fetch.NewBrowserFetcher(fetch.NewRodSource(mgr)), mgr
}

func newNarrator(cfg config.NarrationConfig) (*narrate.Narrator, error) {
	tts := narrate.NewElevenLabs(cfg.APIKey, cfg.VoiceID)

	var player narrate.Player
	var err error
	if cfg.PlayerCommand != "" {
		player, err = narrate.NewCommandPlayer(cfg.PlayerCommand)
	} else {
		player, err = narrate.NewFilePlayer(cfg.AudioDir)
	}
	if err != nil {
		return nil, fmt.Errorf("audio player: %w", err)
	}
	return narrate.New(tts, player), nil
}

type namedCloser struct {
	name string
	c    io.Closer
}

// closeAll closes resources in order, logging failures. Nil closers are skipped.
func closeAll(closers []namedCloser) {
	for _, nc := range closers {
		if nc.c == nil {
			continue
		}
		if err := nc.c.Close(); err != nil {
			slog.Error("close error", "resource", nc.name, "error", err)
		}
	}
}

// startWorker launches a background worker goroutine that respects context cancellation.
// Workers are tracked via WaitGroup for graceful shutdown.
func startWorker(ctx context.Context, wg *sync.WaitGroup, name string, fn func(ctx context.Context)) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("worker started", "worker", name)
		fn(ctx)
		slog.Info("worker stopped", "worker", name)
	}()
}
