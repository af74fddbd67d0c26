package similarity

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/hyperengineering/pagesmith/internal/types"
)

// DefaultThreshold is the score a stored original must strictly exceed to be reused.
const DefaultThreshold = 0.8

// Vectorizer modes.
const (
	VectorizerTFIDF     = "tfidf"
	VectorizerEmbedding = "embedding"
)

// Scanner provides a restartable, insertion-ordered view of stored transformations.
type Scanner interface {
	ScanAll(ctx context.Context) iter.Seq2[types.Transformation, error]
}

// Embedder turns text into a dense vector.
type Embedder interface {
	Embed(ctx context.Context, content string) ([]float32, error)
}

// Matcher finds the stored transformation whose original content best
// resembles a freshly fetched page.
type Matcher struct {
	store      Scanner
	embedder   Embedder
	vectorizer string
	threshold  float64
}

// NewTFIDFMatcher scores candidates with a TF-IDF model fitted per lookup over
// every stored original plus the candidate.
func NewTFIDFMatcher(store Scanner, threshold float64) *Matcher {
	return &Matcher{
		store:      store,
		vectorizer: VectorizerTFIDF,
		threshold:  threshold,
	}
}

// NewEmbeddingMatcher scores candidates against the stored record embeddings.
// Records without an embedding can still match on identical content.
func NewEmbeddingMatcher(store Scanner, embedder Embedder, threshold float64) *Matcher {
	return &Matcher{
		store:      store,
		embedder:   embedder,
		vectorizer: VectorizerEmbedding,
		threshold:  threshold,
	}
}

// Vectorizer returns the scoring mode name.
func (m *Matcher) Vectorizer() string {
	return m.vectorizer
}

// Threshold returns the configured match threshold.
func (m *Matcher) Threshold() float64 {
	return m.threshold
}

// FindBestMatch returns the first record with the highest score, provided that
// score is strictly greater than the threshold. An empty store, or no record
// above the threshold, yields a zero MatchResult. Identical content always
// scores 1.
func (m *Matcher) FindBestMatch(ctx context.Context, candidate string) (types.MatchResult, error) {
	var (
		best  *types.Transformation
		score float64
		err   error
	)

	if m.vectorizer == VectorizerEmbedding {
		best, score, err = m.bestByEmbedding(ctx, candidate)
	} else {
		best, score, err = m.bestByTFIDF(ctx, candidate)
	}
	if err != nil {
		return types.MatchResult{}, err
	}

	if best == nil || score <= m.threshold {
		slog.Debug("no similar transformation",
			"component", "similarity",
			"vectorizer", m.vectorizer,
			"best_score", score,
		)
		return types.MatchResult{}, nil
	}

	slog.Debug("similar transformation found",
		"component", "similarity",
		"vectorizer", m.vectorizer,
		"id", best.ID,
		"score", score,
	)
	return types.MatchResult{Record: best, Score: score}, nil
}

func (m *Matcher) bestByTFIDF(ctx context.Context, candidate string) (*types.Transformation, float64, error) {
	var records []types.Transformation
	for rec, err := range m.store.ScanAll(ctx) {
		if err != nil {
			return nil, 0, fmt.Errorf("scan transformations: %w", err)
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, 0, nil
	}

	docs := make([]string, 0, len(records)+1)
	for _, rec := range records {
		docs = append(docs, rec.Original)
	}
	docs = append(docs, candidate)

	vectors, _ := FitTFIDF(docs)
	query := vectors[len(records)]

	bestIdx := -1
	var bestScore float64
	for i, rec := range records {
		var score float64
		if rec.Original == candidate {
			score = 1
		} else {
			score = Clamp01(query.Dot(vectors[i]))
		}
		if bestIdx < 0 || score > bestScore {
			bestIdx, bestScore = i, score
		}
		if bestScore == 1 {
			break
		}
	}

	return &records[bestIdx], bestScore, nil
}

func (m *Matcher) bestByEmbedding(ctx context.Context, candidate string) (*types.Transformation, float64, error) {
	var (
		best      *types.Transformation
		bestScore float64
		query     []float32
		embedded  bool
	)

	for rec, err := range m.store.ScanAll(ctx) {
		if err != nil {
			return nil, 0, fmt.Errorf("scan transformations: %w", err)
		}

		var score float64
		switch {
		case rec.Original == candidate:
			score = 1
		case len(rec.Embedding) > 0:
			if !embedded {
				query, err = m.embedder.Embed(ctx, EmbeddingText(candidate))
				if err != nil {
					return nil, 0, fmt.Errorf("embed candidate: %w", err)
				}
				embedded = true
			}
			score = Clamp01(CosineSimilarity(query, rec.Embedding))
		}

		if best == nil || score > bestScore {
			r := rec
			best, bestScore = &r, score
		}
		if bestScore == 1 {
			break
		}
	}

	return best, bestScore, nil
}
