package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hyperengineering/pagesmith/internal/types"
)

// --- Mock Implementations ---

type mockStore struct {
	mu                   sync.Mutex
	pendingRecords       []types.Transformation
	getPendingErr        error
	updateEmbeddingErr   error
	markFailedErr        error
	updateEmbeddingCalls []string // IDs that had UpdateEmbedding called
	markFailedCalls      []string // IDs that had MarkEmbeddingFailed called
}

func (m *mockStore) GetPendingEmbeddings(ctx context.Context, limit int) ([]types.Transformation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getPendingErr != nil {
		return nil, m.getPendingErr
	}
	if limit > len(m.pendingRecords) {
		limit = len(m.pendingRecords)
	}
	return m.pendingRecords[:limit], nil
}

func (m *mockStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateEmbeddingErr != nil {
		return m.updateEmbeddingErr
	}
	m.updateEmbeddingCalls = append(m.updateEmbeddingCalls, id)
	// Remove from pending
	for i, e := range m.pendingRecords {
		if e.ID == id {
			m.pendingRecords = append(m.pendingRecords[:i], m.pendingRecords[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockStore) MarkEmbeddingFailed(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.markFailedErr != nil {
		return m.markFailedErr
	}
	m.markFailedCalls = append(m.markFailedCalls, id)
	// Remove from pending
	for i, e := range m.pendingRecords {
		if e.ID == id {
			m.pendingRecords = append(m.pendingRecords[:i], m.pendingRecords[i+1:]...)
			break
		}
	}
	return nil
}

type mockEmbedder struct {
	mu         sync.Mutex
	embedErr   error
	short      bool
	callCount  int
	lastInputs []string
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, contents []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	m.lastInputs = contents
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	n := len(contents)
	if m.short {
		n--
	}
	result := make([][]float32, n)
	for i := range result {
		result[i] = make([]float32, 1536)
	}
	return result, nil
}

// --- Tests ---

func TestEmbeddingBackfillWorker_ProcessesPending(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{
			{ID: "rec-1", Original: "content 1"},
			{ID: "rec-2", Original: "content 2"},
		},
	}
	embedder := &mockEmbedder{}

	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 10, 50)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Process once
	worker.processPending(ctx)

	if embedder.callCount != 1 {
		t.Errorf("Expected 1 embed call, got %d", embedder.callCount)
	}

	store.mu.Lock()
	if len(store.updateEmbeddingCalls) != 2 {
		t.Errorf("Expected 2 UpdateEmbedding calls, got %d", len(store.updateEmbeddingCalls))
	}
	store.mu.Unlock()
}

func TestEmbeddingBackfillWorker_UpdatesStatusOnSuccess(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{
			{ID: "rec-1", Original: "content 1"},
		},
	}
	embedder := &mockEmbedder{}

	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 10, 50)

	ctx := context.Background()
	worker.processPending(ctx)

	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.updateEmbeddingCalls) != 1 {
		t.Errorf("Expected 1 UpdateEmbedding call, got %d", len(store.updateEmbeddingCalls))
	}
	if len(store.updateEmbeddingCalls) > 0 && store.updateEmbeddingCalls[0] != "rec-1" {
		t.Errorf("Expected UpdateEmbedding for rec-1, got %s", store.updateEmbeddingCalls[0])
	}
}

func TestEmbeddingBackfillWorker_IncrementsRetryOnFailure(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{
			{ID: "rec-1", Original: "content 1"},
		},
	}
	embedder := &mockEmbedder{embedErr: errors.New("API unavailable")}

	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 10, 50)

	ctx := context.Background()

	// First attempt - should fail and increment retry count
	worker.processPending(ctx)

	if worker.retryCount["rec-1"] != 1 {
		t.Errorf("Expected retry count 1, got %d", worker.retryCount["rec-1"])
	}

	// Second attempt - should fail again and increment
	worker.processPending(ctx)

	if worker.retryCount["rec-1"] != 2 {
		t.Errorf("Expected retry count 2, got %d", worker.retryCount["rec-1"])
	}
}

func TestEmbeddingBackfillWorker_MarksFailedAfterMaxRetries(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{
			{ID: "rec-1", Original: "content 1"},
		},
	}
	embedder := &mockEmbedder{embedErr: errors.New("API unavailable")}

	// maxAttempts = 3
	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 3, 50)

	ctx := context.Background()

	// Simulate 3 failed attempts
	worker.retryCount["rec-1"] = 3

	// Next process should mark as failed
	worker.processPending(ctx)

	store.mu.Lock()
	defer store.mu.Unlock()

	if len(store.markFailedCalls) != 1 {
		t.Errorf("Expected 1 MarkEmbeddingFailed call, got %d", len(store.markFailedCalls))
	}
	if len(store.markFailedCalls) > 0 && store.markFailedCalls[0] != "rec-1" {
		t.Errorf("Expected MarkEmbeddingFailed for rec-1, got %s", store.markFailedCalls[0])
	}

	// Retry count should be cleared
	if _, exists := worker.retryCount["rec-1"]; exists {
		t.Error("Expected retry count to be cleared after marking failed")
	}
}

func TestEmbeddingBackfillWorker_GracefulShutdown(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{},
	}
	embedder := &mockEmbedder{}

	worker := NewEmbeddingBackfillWorker(store, embedder, 50*time.Millisecond, 10, 50)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	// Let it run briefly
	time.Sleep(100 * time.Millisecond)

	// Cancel and verify it stops
	cancel()

	select {
	case <-done:
		// Success - worker stopped
	case <-time.After(time.Second):
		t.Error("Worker did not stop within timeout after context cancellation")
	}
}

func TestEmbeddingBackfillWorker_EmptyPending(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{},
	}
	embedder := &mockEmbedder{}

	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 10, 50)

	ctx := context.Background()
	worker.processPending(ctx)

	// Should not call embedder if no pending records
	if embedder.callCount != 0 {
		t.Errorf("Expected 0 embed calls for empty pending, got %d", embedder.callCount)
	}
}

func TestEmbeddingBackfillWorker_ProcessesImmediatelyOnStart(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{
			{ID: "rec-1", Original: "content 1"},
		},
	}
	embedder := &mockEmbedder{}

	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 10, 50)

	ctx, cancel := context.WithCancel(context.Background())

	// Start worker in goroutine
	go func() {
		worker.Run(ctx)
	}()

	// Give it time to process immediately
	time.Sleep(50 * time.Millisecond)
	cancel()

	embedder.mu.Lock()
	defer embedder.mu.Unlock()

	// Should have processed immediately on start, before first tick
	if embedder.callCount < 1 {
		t.Error("Expected worker to process immediately on start")
	}
}

func TestEmbeddingBackfillWorker_ClearsRetryCountOnSuccess(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{
			{ID: "rec-1", Original: "content 1"},
		},
	}
	embedder := &mockEmbedder{}

	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 10, 50)

	// Pre-set some retry count
	worker.retryCount["rec-1"] = 5

	ctx := context.Background()
	worker.processPending(ctx)

	// After successful embedding, retry count should be cleared
	if _, exists := worker.retryCount["rec-1"]; exists {
		t.Error("Expected retry count to be cleared after successful embedding")
	}
}

func TestEmbeddingBackfillWorker_HandlesStoreError(t *testing.T) {
	store := &mockStore{
		getPendingErr: errors.New("database connection failed"),
	}
	embedder := &mockEmbedder{}

	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 10, 50)

	ctx := context.Background()

	// Should not panic on store error
	worker.processPending(ctx)

	// Should not have called embedder
	if embedder.callCount != 0 {
		t.Errorf("Expected 0 embed calls on store error, got %d", embedder.callCount)
	}
}

func TestEmbeddingBackfillWorker_EmbedsStrippedOriginal(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{
			{ID: "rec-1", Original: "<h1>Hello</h1>\n<p>world</p>", Transformed: "<p>x</p>"},
		},
	}
	embedder := &mockEmbedder{}

	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 10, 50)
	worker.processPending(context.Background())

	if len(embedder.lastInputs) != 1 || embedder.lastInputs[0] != "Hello world" {
		t.Errorf("embedded %q, want the page text", embedder.lastInputs)
	}
}

func TestEmbeddingBackfillWorker_ShortBatchCountsAsFailure(t *testing.T) {
	store := &mockStore{
		pendingRecords: []types.Transformation{
			{ID: "rec-1", Original: "content 1"},
			{ID: "rec-2", Original: "content 2"},
		},
	}
	embedder := &mockEmbedder{short: true}

	worker := NewEmbeddingBackfillWorker(store, embedder, time.Hour, 10, 50)
	worker.processPending(context.Background())

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.updateEmbeddingCalls) != 0 {
		t.Errorf("Expected no updates on a short batch, got %d", len(store.updateEmbeddingCalls))
	}
	if worker.retryCount["rec-1"] != 1 || worker.retryCount["rec-2"] != 1 {
		t.Errorf("retry counts = %v, want 1 each", worker.retryCount)
	}
}
