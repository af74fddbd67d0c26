package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hyperengineering/pagesmith/internal/similarity"
	"github.com/hyperengineering/pagesmith/internal/types"
)

var errEmbeddingCount = errors.New("embedder returned a different number of vectors than inputs")

// EmbeddingStore defines the store operations needed by the embedding backfill worker.
type EmbeddingStore interface {
	GetPendingEmbeddings(ctx context.Context, limit int) ([]types.Transformation, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	MarkEmbeddingFailed(ctx context.Context, id string) error
}

// Embedder defines the embedding operations needed by the worker.
type Embedder interface {
	EmbedBatch(ctx context.Context, contents []string) ([][]float32, error)
}

// EmbeddingBackfillWorker embeds the original content of stored
// transformations so the embedding matcher can compare against them.
type EmbeddingBackfillWorker struct {
	store       EmbeddingStore
	embedder    Embedder
	interval    time.Duration
	maxAttempts int
	batchSize   int
	retryCount  map[string]int // tracks attempts per record ID
}

// NewEmbeddingBackfillWorker creates a new embedding backfill worker.
func NewEmbeddingBackfillWorker(
	s EmbeddingStore,
	e Embedder,
	interval time.Duration,
	maxAttempts int,
	batchSize int,
) *EmbeddingBackfillWorker {
	return &EmbeddingBackfillWorker{
		store:       s,
		embedder:    e,
		interval:    interval,
		maxAttempts: maxAttempts,
		batchSize:   batchSize,
		retryCount:  make(map[string]int),
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled.
func (w *EmbeddingBackfillWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Process immediately on start, then on each tick
	w.processPending(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

func (w *EmbeddingBackfillWorker) processPending(ctx context.Context) {
	records, err := w.store.GetPendingEmbeddings(ctx, w.batchSize)
	if err != nil {
		slog.Error("failed to get pending embeddings",
			"error", err,
			"component", "worker",
		)
		return
	}

	if len(records) == 0 {
		return
	}

	var toProcess []types.Transformation
	for _, r := range records {
		if w.retryCount[r.ID] >= w.maxAttempts {
			w.markAsFailed(ctx, r.ID)
			continue
		}
		toProcess = append(toProcess, r)
	}

	if len(toProcess) == 0 {
		return
	}

	contents := make([]string, len(toProcess))
	for i, r := range toProcess {
		contents[i] = similarity.EmbeddingText(r.Original)
	}

	embeddings, err := w.embedder.EmbedBatch(ctx, contents)
	if err == nil && len(embeddings) != len(toProcess) {
		err = errEmbeddingCount
	}
	if err != nil {
		slog.Warn("embedding batch failed, will retry",
			"error", err,
			"count", len(toProcess),
			"component", "worker",
		)
		for _, r := range toProcess {
			w.retryCount[r.ID]++
		}
		return
	}

	var successCount int
	for i, rec := range toProcess {
		if err := w.store.UpdateEmbedding(ctx, rec.ID, embeddings[i]); err != nil {
			slog.Error("failed to update embedding",
				"transformation_id", rec.ID,
				"error", err,
				"component", "worker",
			)
			w.retryCount[rec.ID]++
			continue
		}
		delete(w.retryCount, rec.ID)
		successCount++
	}

	if successCount > 0 {
		slog.Info("processed pending embeddings",
			"action", "embed_backfill",
			"count", successCount,
			"component", "worker",
		)
	}
}

func (w *EmbeddingBackfillWorker) markAsFailed(ctx context.Context, id string) {
	attempts := w.retryCount[id]

	if err := w.store.MarkEmbeddingFailed(ctx, id); err != nil {
		slog.Error("failed to mark embedding as failed",
			"transformation_id", id,
			"error", err,
			"component", "worker",
		)
		return
	}

	slog.Error("embedding permanently failed",
		"action", "embed_backfill",
		"transformation_id", id,
		"attempts", attempts,
		"component", "worker",
	)

	delete(w.retryCount, id)
}
