package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperengineering/pagesmith/internal/types"
	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"
)

// Compile-time interface check
var _ Store = (*SQLiteStore)(nil)

const transformationColumns = `id, original, transformed, embedding, embedding_status, created_at`

// timeLayout is fixed-width so that MIN/MAX over the TEXT column order chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore represents the SQLite-backed transformation database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore instance.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db, DriverSQLite); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// sqliteDSN appends per-connection pragmas. PRAGMA statements run through db.Exec
// only reach one pooled connection, so busy_timeout must also travel in the DSN.
func sqliteDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}

// enablePragmas sets SQLite pragmas for optimal performance and safety.
// WAL lets ScanAll readers proceed while an Insert commits.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// DB exposes the underlying handle for schema inspection.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Insert appends a transformation record. The write is a single INSERT, so
// concurrent readers observe either the old or the new record set.
func (s *SQLiteStore) Insert(ctx context.Context, original, transformed string) (*types.Transformation, error) {
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

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transformations (id, original, transformed, embedding, embedding_status, created_at)
		VALUES (?, ?, ?, NULL, ?, ?)
	`, rec.ID, rec.Original, rec.Transformed, rec.EmbeddingStatus, rec.CreatedAt.Format(timeLayout))
	if err != nil {
		return nil, fmt.Errorf("insert transformation: %w", err)
	}

	return &rec, nil
}

// ScanAll yields every record in insertion order. Each call runs a fresh query,
// so the sequence can be ranged over any number of times. A failure is yielded
// once as the error value and ends the sequence.
func (s *SQLiteStore) ScanAll(ctx context.Context) iter.Seq2[types.Transformation, error] {
	return func(yield func(types.Transformation, error) bool) {
		rows, err := s.db.QueryContext(ctx, `
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
			rec, err := scanTransformation(rows)
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
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]types.Transformation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transformationColumns+`
		FROM transformations
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transformations: %w", err)
	}
	defer rows.Close()

	return collectTransformations(rows)
}

// GetPendingEmbeddings retrieves records that still need an embedding.
func (s *SQLiteStore) GetPendingEmbeddings(ctx context.Context, limit int) ([]types.Transformation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transformationColumns+`
		FROM transformations
		WHERE embedding_status = ?
		ORDER BY seq ASC
		LIMIT ?
	`, types.EmbeddingPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending embeddings: %w", err)
	}
	defer rows.Close()

	return collectTransformations(rows)
}

// UpdateEmbedding stores the embedding for a record and marks it complete.
func (s *SQLiteStore) UpdateEmbedding(ctx context.Context, id string, embedding []float32) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE transformations
		SET embedding = ?, embedding_status = ?
		WHERE id = ?
	`, packEmbedding(embedding), types.EmbeddingComplete, id)
	if err != nil {
		return fmt.Errorf("update embedding: %w", err)
	}
	return requireAffected(result)
}

// MarkEmbeddingFailed flags a record whose embedding could not be generated.
func (s *SQLiteStore) MarkEmbeddingFailed(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE transformations
		SET embedding_status = ?
		WHERE id = ?
	`, types.EmbeddingFailed, id)
	if err != nil {
		return fmt.Errorf("mark embedding failed: %w", err)
	}
	return requireAffected(result)
}

// GetStats returns aggregate store statistics
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats
	var oldest, newest sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN embedding_status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN embedding_status = 'failed' THEN 1 ELSE 0 END), 0),
			MIN(created_at),
			MAX(created_at)
		FROM transformations
	`).Scan(&stats.RecordCount, &stats.PendingEmbeddings, &stats.FailedEmbeddings, &oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}

	stats.OldestRecord = parseNullTime(oldest)
	stats.NewestRecord = parseNullTime(newest)

	return &stats, nil
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func collectTransformations(rows *sql.Rows) ([]types.Transformation, error) {
	var recs []types.Transformation
	for rows.Next() {
		rec, err := scanTransformation(rows)
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

// scanTransformation scans a row into a Transformation, handling BLOB unpacking.
func scanTransformation(scanner interface{ Scan(...any) error }) (*types.Transformation, error) {
	var rec types.Transformation
	var embeddingBlob []byte
	var createdAt string

	err := scanner.Scan(
		&rec.ID,
		&rec.Original,
		&rec.Transformed,
		&embeddingBlob,
		&rec.EmbeddingStatus,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if len(embeddingBlob) > 0 {
		rec.Embedding = unpackEmbedding(embeddingBlob)
	}

	if t, err := time.Parse(timeLayout, createdAt); err == nil {
		rec.CreatedAt = t
	}

	return &rec, nil
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil
	}
	return &t
}

func packEmbedding(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func unpackEmbedding(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
