// Package memindex is an in-process exact-scan vector index. It exists for
// single-node deployments and tests: no network hop, no persistence, every
// search scans every point. Selection between this and the qdrant adapter
// happens in configuration, never by probing.
package memindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven"
)

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	id      string
	vector  []float32 // normalized for cosine collections
	payload domain.Payload
}

// Index stores points in memory and scores them exactly.
type Index struct {
	mu        sync.RWMutex
	dimension int
	metric    domain.Metric
	entries   map[string]*entry
	order     []string // insertion order, for deterministic scrolls
}

// New creates an empty in-memory index.
func New() *Index {
	return &Index{
		entries: make(map[string]*entry),
	}
}

// EnsureCollection creates the collection on first call. Calling again with
// the same dimension is a no-op; a different dimension is an error because
// stored vectors would become incomparable.
func (x *Index) EnsureCollection(ctx context.Context, dimension int, metric domain.Metric) (bool, error) {
	if dimension <= 0 {
		return false, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dimension)
	}
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension == 0 {
		x.dimension = dimension
		x.metric = metric
		return true, nil
	}
	if x.dimension != dimension {
		return false, fmt.Errorf("%w: collection has dimension %d, requested %d",
			domain.ErrDimensionMismatch, x.dimension, dimension)
	}
	return false, nil
}

// Upsert inserts or replaces points by id.
func (x *Index) Upsert(ctx context.Context, points []domain.Point) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dimension == 0 {
		return fmt.Errorf("collection not created: %w", domain.ErrNotConfigured)
	}

	for _, p := range points {
		if len(p.Vector) != x.dimension {
			return fmt.Errorf("%w: point %q has dimension %d, collection has %d",
				domain.ErrDimensionMismatch, p.ID, len(p.Vector), x.dimension)
		}
		vector := p.Vector
		if x.metric == domain.MetricCosine {
			vector = normalize(p.Vector)
		}
		if _, exists := x.entries[p.ID]; !exists {
			x.order = append(x.order, p.ID)
		}
		x.entries[p.ID] = &entry{id: p.ID, vector: vector, payload: p.Payload}
	}
	return nil
}

// Search scans every point, scores it against the query vector and returns
// up to k results above the threshold, best first. Ties break by id.
func (x *Index) Search(ctx context.Context, vector []float32, k int, scoreThreshold float64) ([]domain.ScoredPoint, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.dimension == 0 || len(x.entries) == 0 {
		return []domain.ScoredPoint{}, nil
	}
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, collection has %d",
			domain.ErrDimensionMismatch, len(vector), x.dimension)
	}

	query := vector
	if x.metric == domain.MetricCosine {
		query = normalize(vector)
	}

	results := make([]domain.ScoredPoint, 0, len(x.order))
	for _, id := range x.order {
		e := x.entries[id]
		score := x.score(query, e.vector)
		if scoreThreshold > 0 && score < scoreThreshold {
			continue
		}
		results = append(results, domain.ScoredPoint{ID: e.id, Payload: e.payload, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Delete removes points by id. Unknown ids are ignored.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, id := range ids {
		if _, ok := x.entries[id]; !ok {
			continue
		}
		delete(x.entries, id)
		for i, existing := range x.order {
			if existing == id {
				x.order = append(x.order[:i], x.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

// Count returns the number of stored points.
func (x *Index) Count(ctx context.Context) (int, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.entries), nil
}

// List scrolls stored points in insertion order, up to limit. Zero limit
// means everything.
func (x *Index) List(ctx context.Context, limit int) ([]domain.ScoredPoint, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]domain.ScoredPoint, 0, len(x.order))
	for _, id := range x.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		e := x.entries[id]
		out = append(out, domain.ScoredPoint{ID: e.id, Payload: e.payload})
	}
	return out, nil
}

// Drop discards the collection and all points.
func (x *Index) Drop(ctx context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	x.entries = make(map[string]*entry)
	x.order = nil
	x.dimension = 0
	x.metric = ""
	return nil
}

// HealthCheck always succeeds: the index lives in this process.
func (x *Index) HealthCheck(ctx context.Context) error {
	return nil
}

func (x *Index) score(query, stored []float32) float64 {
	switch x.metric {
	case domain.MetricEuclid:
		// Negated distance keeps "higher is more similar".
		var sum float64
		for i := range query {
			d := float64(query[i]) - float64(stored[i])
			sum += d * d
		}
		return -math.Sqrt(sum)
	default:
		// Cosine vectors are pre-normalized, so dot covers both.
		var sum float64
		for i := range query {
			sum += float64(query[i]) * float64(stored[i])
		}
		return sum
	}
}

func normalize(v []float32) []float32 {
	var norm float64
	for _, f := range v {
		norm += float64(f) * float64(f)
	}
	if norm == 0 {
		return v
	}
	norm = math.Sqrt(norm)
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}
