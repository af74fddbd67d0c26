package types

import (
	"encoding/json"
	"time"
)

// Embedding status values for stored transformations.
const (
	EmbeddingPending  = "pending"
	EmbeddingComplete = "complete"
	EmbeddingFailed   = "failed"
)

// Transformation is one completed modification: the fetched page content and the
// rewritten HTML produced for it. Original, Transformed and CreatedAt never change
// once written.
type Transformation struct {
	ID              string    `json:"id"`
	Original        string    `json:"original"`
	Transformed     string    `json:"transformed"`
	Embedding       []float32 `json:"embedding,omitempty"`
	EmbeddingStatus string    `json:"embedding_status"`
	CreatedAt       time.Time `json:"created_at"`
}

// MarshalJSON omits the embedding vector, which is large and only useful to the matcher.
func (t Transformation) MarshalJSON() ([]byte, error) {
	type Alias Transformation
	return json.Marshal(&struct {
		Alias
		Embedding []float32 `json:"embedding,omitempty"`
	}{
		Alias: Alias(t),
	})
}

// MatchResult is the outcome of a similarity lookup. Record is nil when nothing
// cleared the threshold, in which case Score is 0.
type MatchResult struct {
	Record *Transformation
	Score  float64
}

// Matched reports whether the lookup produced a reusable transformation.
func (m MatchResult) Matched() bool {
	return m.Record != nil
}

// ModifyRequest is the body of POST /modify. Changes carries the user's instruction.
type ModifyRequest struct {
	URL     string `json:"url"`
	Changes string `json:"changes"`
}

// ModifyResponse is the envelope returned by POST /modify.
// Exactly one field is set.
type ModifyResponse struct {
	HTML    string `json:"html,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	Vectorizer        string `json:"vectorizer"`
	RecordCount       int64  `json:"record_count"`
	PendingEmbeddings int64  `json:"pending_embeddings"`
}

// StoreStats holds aggregate store statistics.
type StoreStats struct {
	RecordCount       int64      `json:"record_count"`
	PendingEmbeddings int64      `json:"pending_embeddings"`
	FailedEmbeddings  int64      `json:"failed_embeddings"`
	OldestRecord      *time.Time `json:"oldest_record,omitempty"`
	NewestRecord      *time.Time `json:"newest_record,omitempty"`
}
