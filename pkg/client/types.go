package client

import "time"

// Config holds the client configuration
type Config struct {
	BaseURL string        // Pagesmith server URL, e.g. http://localhost:8000
	APIKey  string        // Bearer token; empty when the server runs without auth
	Timeout time.Duration // Per-request timeout (default: 5 minutes)
}

// Result is a successful modification. Exactly one field is set: HTML for a
// rewritten page, Message for an acknowledgement such as "Playing audio...".
type Result struct {
	HTML    string `json:"html,omitempty"`
	Message string `json:"message,omitempty"`
}

// Health mirrors the server's health report.
type Health struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	Vectorizer        string `json:"vectorizer"`
	RecordCount       int64  `json:"record_count"`
	PendingEmbeddings int64  `json:"pending_embeddings"`
}

type modifyRequest struct {
	URL     string `json:"url"`
	Changes string `json:"changes"`
}

type envelope struct {
	HTML    string `json:"html"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type problem struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}
