package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/hyperengineering/pagesmith/internal/types"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"
)

// Compile-time interface check
var _ Store = (*PostgresStore)(nil)

var newPool = pgxpool.NewWithConfig

// PostgresStore is the networked transformation store backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres, verifies the connection and runs migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := newPool(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()
	if err := RunMigrations(db, DriverPostgres); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the pool
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Insert appends a transformation record in a single statement.
func (s *PostgresStore) Insert(ctx context.Context, original, transformed string) (*types.Transformation, error) {
	if err := validateTransformation(original, transformed); err != nil {
		return nil, err
	}

	rec := types.Transformation{
		ID:              ulid.Make().String(),
		Original:        original,
		Transformed:     transformed,
		EmbeddingStatus: types.EmbeddingPending,
		CreatedAt:       time.Now().UTC(),
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO transformations (id, original, transformed, embedding, embedding_status, created_at)
		VALUES ($1, $2, $3, NULL, $4, $5)
	`, rec.ID, rec.Original, rec.Transformed, rec.EmbeddingStatus, rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert transformation: %w", err)
	}

	return &rec, nil
}

// ScanAll yields every record in insertion order from a fresh query.
func (s *PostgresStore) ScanAll(ctx context.Context) iter.Seq2[types.Transformation, error] {
	return func(yield func(types.Transformation, error) bool) {
		rows, err := s.pool.Query(ctx, `
			SELECT `+transformationColumns+`
			FROM transformations
			ORDER BY seq ASC
		`)
		if err != nil {
			yield(types.Transformation{}, fmt.Errorf("query transformations: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanPgTransformation(rows)
			if err != nil {
				yield(types.Transformation{}, fmt.Errorf("scan row: %w", err))
				return
			}
			if !yield(*rec, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Transformation{}, fmt.Errorf("iterate rows: %w", err))
		}
	}
}

// List returns the most recent records, newest first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]types.Transformation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+transformationColumns+`
		FROM transformations
		ORDER BY seq DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transformations: %w", err)
	}
	return collectPgTransformations(rows)
}

// GetPendingEmbeddings retrieves records that still need an embedding.
func (s *PostgresStore) GetPendingEmbeddings(ctx context.Context, limit int) ([]types.Transformation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+transformationColumns+`
		FROM transformations
		WHERE embedding_status = $1
		ORDER BY seq ASC
		LIMIT $2
	`, types.EmbeddingPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending embeddings: %w", err)
	}
	return collectPgTransformations(rows)
}

// UpdateEmbedding stores the embedding for a record and marks it complete.
func (s *PostgresStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transformations
		SET embedding = $1, embedding_status = $2
		WHERE id = $3
	`, packEmbedding(embedding), types.EmbeddingComplete, id)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	return requireTagAffected(tag)
}

// MarkEmbeddingFailed flags a record whose embedding could not be generated.
func (s *PostgresStore) MarkEmbeddingFailed(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE transformations
		SET embedding_status = $1
		WHERE id = $2
	`, types.EmbeddingFailed, id)
	if err != nil {
		return fmt.Errorf("mark embedding failed: %w", err)
	}
	return requireTagAffected(tag)
}

// GetStats returns aggregate store statistics
func (s *PostgresStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats
	var oldest, newest *time.Time

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE embedding_status = 'pending'),
			COUNT(*) FILTER (WHERE embedding_status = 'failed'),
			MIN(created_at),
			MAX(created_at)
		FROM transformations
	`).Scan(&stats.RecordCount, &stats.PendingEmbeddings, &stats.FailedEmbeddings, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	stats.OldestRecord = oldest
	stats.NewestRecord = newest
	return &stats, nil
}

func requireTagAffected(tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectPgTransformations(rows pgx.Rows) ([]types.Transformation, error) {
	defer rows.Close()

	var recs []types.Transformation
	for rows.Next() {
		rec, err := scanPgTransformation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		recs = append(recs, *rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return recs, nil
}

func scanPgTransformation(row pgx.Row) (*types.Transformation, error) {
	var rec types.Transformation
	var embeddingBlob []byte

	err := row.Scan(
		&rec.ID,
		&rec.Original,
		&rec.Transformed,
		&embeddingBlob,
		&rec.EmbeddingStatus,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if len(embeddingBlob) > 0 {
		rec.Embedding = unpackEmbedding(embeddingBlob)
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	return &rec, nil
}
