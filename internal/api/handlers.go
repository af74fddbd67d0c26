package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hyperengineering/pagesmith/internal/pipeline"
	"github.com/hyperengineering/pagesmith/internal/types"
	"github.com/hyperengineering/pagesmith/internal/validation"
)

// DefaultMaxBodyBytes bounds a /modify request body when none is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

// Envelope texts for requests rejected before they reach the pipeline.
const (
	MsgInvalidJSON  = "Invalid JSON body"
	MsgBodyTooLarge = "Request body too large"
)

// Modifier runs a modification request end to end.
type Modifier interface {
	Handle(ctx context.Context, url, instruction string) (types.ModifyResponse, error)
}

// StatsSource reports store statistics for the health endpoint.
type StatsSource interface {
	GetStats(ctx context.Context) (*types.StoreStats, error)
}

// Handler implements the API handlers
type Handler struct {
	modifier     Modifier
	stats        StatsSource
	vectorizer   string
	version      string
	maxBodyBytes int64
}

// NewHandler creates a Handler. A non-positive maxBodyBytes uses DefaultMaxBodyBytes.
func NewHandler(m Modifier, s StatsSource, vectorizer, version string, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		modifier:     m,
		stats:        s,
		vectorizer:   vectorizer,
		version:      version,
		maxBodyBytes: maxBodyBytes,
	}
}

// Health returns the health status
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.GetStats(r.Context())
	if err != nil {
		slog.Error("health check failed", "component", "api", "error", err)
		MapStoreError(w, r, err)
		return
	}

	resp := types.HealthResponse{
		Status:            "healthy",
		Version:           h.version,
		Vectorizer:        h.vectorizer,
		RecordCount:       stats.RecordCount,
		PendingEmbeddings: stats.PendingEmbeddings,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Modify handles POST /modify. Every outcome, including a malformed request,
// is reported as a 200 envelope with exactly one field set.
func (h *Handler) Modify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req types.ModifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		msg := MsgInvalidJSON
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = MsgBodyTooLarge
		}
		slog.Warn("rejected modify request",
			"component", "api",
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		writeEnvelope(w, types.ModifyResponse{Error: msg})
		return
	}

	if errs := validation.ValidateModifyRequest(req); len(errs) > 0 {
		slog.Warn("invalid modify request",
			"component", "api",
			"request_id", GetRequestID(r.Context()),
			"errors", len(errs),
		)
		writeEnvelope(w, types.ModifyResponse{Error: validation.Summary(errs)})
		return
	}

	resp, err := h.modifier.Handle(r.Context(), strings.TrimSpace(req.URL), req.Changes)
	if err != nil {
		resp = types.ModifyResponse{Error: pipeline.Message(err)}
	}
	writeEnvelope(w, resp)
}

// writeEnvelope writes the response without HTML-escaping, so transformed
// pages reach the client byte for byte.
func writeEnvelope(w http.ResponseWriter, resp types.ModifyResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		slog.Error("failed to encode modify response", "component", "api", "error", err)
	}
}
