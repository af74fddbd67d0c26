package store

import (
	"context"
	"fmt"
	"iter"

	"github.com/hyperengineering/pagesmith/internal/types"
)

// Store defines the interface contract for transformation storage.
// Records are append-only: Insert never overwrites, and only the derived
// embedding columns change after a record is written.
type Store interface {
	Insert(ctx context.Context, original, transformed string) (*types.Transformation, error)
	ScanAll(ctx context.Context) iter.Seq2[types.Transformation, error]
	List(ctx context.Context, limit int) ([]types.Transformation, error)
	GetPendingEmbeddings(ctx context.Context, limit int) ([]types.Transformation, error)
	UpdateEmbedding(ctx context.Context, id string, embedding []float32) error
	MarkEmbeddingFailed(ctx context.Context, id string) error
	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}

// Database drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures the backing database.
type Options struct {
	Driver string
	// Path is the SQLite database file.
	Path string
	// DSN is the Postgres connection string.
	DSN string
}

// Open creates the store for the configured driver and applies migrations.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return NewSQLiteStore(opts.Path)
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, opts.Driver)
	}
}

func validateTransformation(original, transformed string) error {
	if original == "" || transformed == "" {
		return ErrEmptyTransformation
	}
	return nil
}
