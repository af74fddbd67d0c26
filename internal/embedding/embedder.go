package embedding

import "context"

// DefaultModel is used when no embedding model is configured.
const DefaultModel = "text-embedding-3-small"

// Embedder turns page text into vectors for the similarity matcher and the
// backfill worker. Vectors from one Embedder share a single space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelName() string
}
