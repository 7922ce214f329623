// Package postgres persists labelled feature vectors in a PostgreSQL table
// with a pgvector HNSW index, so nearest-neighbour classification can run
// server-side over corpora too large to hold in memory.
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/Gasburger/BrainBox/pkg/classify"
	"github.com/Gasburger/BrainBox/pkg/event"
	"github.com/Gasburger/BrainBox/pkg/features"
)

// ddlFeaturePoints returns the DDL with the feature dimension substituted.
// The vector dimension is baked into the column type at schema creation time.
func ddlFeaturePoints(dim int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS feature_points (
    id        TEXT       PRIMARY KEY,
    label     TEXT       NOT NULL,
    features  vector(%d) NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_feature_points_label
    ON feature_points (label);

CREATE INDEX IF NOT EXISTS idx_feature_points_features
    ON feature_points USING hnsw (features vector_l2_ops);
`, dim)
}

// Migrate creates or ensures the feature table and pgvector extension exist.
// It is idempotent and safe to call on every start. dim must match
// [features.Dim] for the extractor in use; changing it after the first
// migration requires a manual schema change.
func Migrate(ctx context.Context, pool *pgxpool.Pool, dim int) error {
	if _, err := pool.Exec(ctx, ddlFeaturePoints(dim)); err != nil {
		return fmt.Errorf("postgres index: migrate: %w", err)
	}
	return nil
}

// Index is a PostgreSQL-backed nearest-neighbour store for labelled feature
// vectors. Distances are Euclidean, matching the in-memory [classify.KNN].
// All methods are safe for concurrent use.
type Index struct {
	pool *pgxpool.Pool
	dim  int
}

// NewIndex connects to the database at dsn, registers pgvector types on
// every connection, and ensures the schema exists for dim-dimensional
// vectors.
func NewIndex(ctx context.Context, dsn string, dim int) (*Index, error) {
	if dim < 1 {
		return nil, fmt.Errorf("postgres index: dimension must be positive, got %d", dim)
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres index: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres index: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres index: ping: %w", err)
	}
	if err := Migrate(ctx, pool, dim); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres index: %w", err)
	}
	return &Index{pool: pool, dim: dim}, nil
}

// Close releases all connections held by the underlying pool.
func (ix *Index) Close() {
	ix.pool.Close()
}

// Add upserts one labelled feature vector. An existing row with the same ID
// is completely replaced.
func (ix *Index) Add(ctx context.Context, id string, v features.Vector, label event.Label) error {
	if len(v) != ix.dim {
		return fmt.Errorf("postgres index: %w: got %d, want %d",
			classify.ErrDimensionMismatch, len(v), ix.dim)
	}
	const q = `
		INSERT INTO feature_points (id, label, features)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
		    label    = EXCLUDED.label,
		    features = EXCLUDED.features`

	if _, err := ix.pool.Exec(ctx, q, id, string(label), toVector(v)); err != nil {
		return fmt.Errorf("postgres index: add %q: %w", id, err)
	}
	return nil
}

// AddSamples upserts a batch of samples, validating dimensions up front so a
// partial batch is only possible on a database error.
func (ix *Index) AddSamples(ctx context.Context, samples []classify.Sample) error {
	for _, s := range samples {
		if len(s.Vector) != ix.dim {
			return fmt.Errorf("postgres index: sample %q: %w: got %d, want %d",
				s.ID, classify.ErrDimensionMismatch, len(s.Vector), ix.dim)
		}
	}
	for _, s := range samples {
		if err := ix.Add(ctx, s.ID, s.Vector, s.Label); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes every stored feature point.
func (ix *Index) Clear(ctx context.Context) error {
	if _, err := ix.pool.Exec(ctx, `TRUNCATE feature_points`); err != nil {
		return fmt.Errorf("postgres index: clear: %w", err)
	}
	return nil
}

// Count reports the number of stored feature points.
func (ix *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := ix.pool.QueryRow(ctx, `SELECT count(*) FROM feature_points`).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres index: count: %w", err)
	}
	return n, nil
}

// Neighbor is one nearest-neighbour result.
type Neighbor struct {
	ID       string
	Label    event.Label
	Distance float64
}

// Nearest returns the k stored points closest to v by Euclidean distance,
// nearest first.
func (ix *Index) Nearest(ctx context.Context, v features.Vector, k int) ([]Neighbor, error) {
	if len(v) != ix.dim {
		return nil, fmt.Errorf("postgres index: %w: got %d, want %d",
			classify.ErrDimensionMismatch, len(v), ix.dim)
	}
	if k < 1 {
		return nil, fmt.Errorf("postgres index: k must be positive, got %d", k)
	}
	const q = `
		SELECT id, label, features <-> $1 AS distance
		FROM   feature_points
		ORDER  BY distance, id
		LIMIT  $2`

	rows, err := ix.pool.Query(ctx, q, toVector(v), k)
	if err != nil {
		return nil, fmt.Errorf("postgres index: nearest: %w", err)
	}
	neighbors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Neighbor, error) {
		var (
			n     Neighbor
			label string
		)
		if err := row.Scan(&n.ID, &label, &n.Distance); err != nil {
			return Neighbor{}, err
		}
		n.Label = event.Label(label)
		return n, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres index: scan rows: %w", err)
	}
	return neighbors, nil
}

// Classify predicts a label for v by majority vote over its k nearest
// stored points. Ties break toward the smaller summed distance, then the
// lexically smaller label, the same rule the in-memory [classify.KNN] uses.
func (ix *Index) Classify(ctx context.Context, v features.Vector, k int) (event.Label, error) {
	if k < 1 {
		k = classify.DefaultK
	}
	neighbors, err := ix.Nearest(ctx, v, k)
	if err != nil {
		return "", err
	}
	if len(neighbors) == 0 {
		return "", fmt.Errorf("postgres index: %w", classify.ErrNotFitted)
	}

	counts := make(map[event.Label]int)
	dists := make(map[event.Label]float64)
	for _, n := range neighbors {
		counts[n.Label]++
		dists[n.Label] += n.Distance
	}

	labels := make([]event.Label, 0, len(counts))
	for l := range counts {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		a, b := labels[i], labels[j]
		if counts[a] != counts[b] {
			return counts[a] > counts[b]
		}
		if dists[a] != dists[b] {
			return dists[a] < dists[b]
		}
		return a < b
	})
	return labels[0], nil
}

// toVector converts a float64 feature vector to the float32 wire type
// pgvector stores.
func toVector(v features.Vector) pgvector.Vector {
	f32 := make([]float32, len(v))
	for i, x := range v {
		f32[i] = float32(x)
	}
	return pgvector.NewVector(f32)
}
