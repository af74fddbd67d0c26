package store

import (
	"context"
	"iter"

	"github.com/hyperengineering/pagesmith/internal/types"
)

// mockStore is a compile-time check that the Store interface can be implemented.
type mockStore struct{}

var _ Store = (*mockStore)(nil)

func (m *mockStore) Insert(ctx context.Context, original, transformed string) (*types.Transformation, error) {
	return nil, nil
}
func (m *mockStore) ScanAll(ctx context.Context) iter.Seq2[types.Transformation, error] {
	return func(yield func(types.Transformation, error) bool) {}
}
func (m *mockStore) List(ctx context.Context, limit int) ([]types.Transformation, error) {
	return nil, nil
}
func (m *mockStore) GetPendingEmbeddings(ctx context.Context, limit int) ([]types.Transformation, error) {
	return nil, nil
}
func (m *mockStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	return nil
}
func (m *mockStore) MarkEmbeddingFailed(ctx context.Context, id string) error {
	return nil
}
func (m *mockStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	return nil, nil
}
func (m *mockStore) Close() error {
	return nil
}
