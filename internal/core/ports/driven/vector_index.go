package driven

import (
	"context"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// VectorIndex stores (id, vector, payload) points and answers
// nearest-neighbour queries. Two interchangeable implementations exist: an
// in-process exact index for small deployments and a networked ANN service
// for scale. Callers must not depend on which one is active.
type VectorIndex interface {
	// EnsureCollection creates the collection if absent and reports
	// whether it was created. A collection that already exists with the
	// same dimension is a no-op; a differing dimension is an error.
	EnsureCollection(ctx context.Context, dimension int, metric domain.Metric) (created bool, err error)

	// Upsert inserts or replaces points by id. After the call at most one
	// entry exists per id. Vectors whose dimension disagrees with the
	// collection are rejected with domain.ErrDimensionMismatch before any
	// backend call. An unreachable backend is an error: ingestion
	// failures must be visible, never swallowed.
	Upsert(ctx context.Context, points []domain.Point) error

	// Search returns at most k points sorted by descending score. Points
	// scoring below scoreThreshold are excluded; a zero threshold
	// disables the cut-off.
	Search(ctx context.Context, vector []float32, k int, scoreThreshold float64) ([]domain.ScoredPoint, error)

	// Delete removes points by id. Deleting an unknown id is a no-op.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of live points.
	Count(ctx context.Context) (int, error)

	// List scrolls through up to limit stored points with their payloads.
	// Scores in the result are zero; this exists for lexical scoring, not
	// similarity search.
	List(ctx context.Context, limit int) ([]domain.ScoredPoint, error)

	// Drop removes the whole collection. Used by full reindex.
	Drop(ctx context.Context) error

	// HealthCheck verifies the backend is reachable
	HealthCheck(ctx context.Context) error
}
