package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// MockVectorIndex is an in-memory mock implementation of VectorIndex for
// testing. It keeps insertion order for deterministic tie-breaks and can be
// told to fail to exercise degraded paths.
type MockVectorIndex struct {
	mu        sync.RWMutex
	dimension int
	points    map[string]domain.Point
	order     []string

	// FailSearch / FailList / FailWrites make the corresponding operations
	// return ErrBackendUnavailable.
	FailSearch bool
	FailList   bool
	FailWrites bool
}

// NewMockVectorIndex creates a new MockVectorIndex
func NewMockVectorIndex() *MockVectorIndex {
	return &MockVectorIndex{
		points: make(map[string]domain.Point),
	}
}

func (m *MockVectorIndex) EnsureCollection(ctx context.Context, dimension int, metric domain.Metric) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dimension == 0 {
		m.dimension = dimension
		return true, nil
	}
	if m.dimension != dimension {
		return false, domain.ErrDimensionMismatch
	}
	return false, nil
}

func (m *MockVectorIndex) Upsert(ctx context.Context, points []domain.Point) error {
	if m.FailWrites {
		return domain.ErrBackendUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range points {
		if m.dimension != 0 && len(p.Vector) != m.dimension {
			return domain.ErrDimensionMismatch
		}
		if _, exists := m.points[p.ID]; !exists {
			m.order = append(m.order, p.ID)
		}
		m.points[p.ID] = p
	}
	return nil
}

func (m *MockVectorIndex) Search(ctx context.Context, vector []float32, k int, scoreThreshold float64) ([]domain.ScoredPoint, error) {
	if m.FailSearch {
		return nil, domain.ErrBackendUnavailable
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]domain.ScoredPoint, 0, len(m.order))
	for _, id := range m.order {
		p := m.points[id]
		score := dot(p.Vector, vector)
		if scoreThreshold > 0 && score < scoreThreshold {
			continue
		}
		results = append(results, domain.ScoredPoint{ID: p.ID, Payload: p.Payload, Score: score})
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *MockVectorIndex) Delete(ctx context.Context, ids []string) error {
	if m.FailWrites {
		return domain.ErrBackendUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.points[id]; !ok {
			continue
		}
		delete(m.points, id)
		for i, existing := range m.order {
			if existing == id {
				m.order = append(m.order[:i], m.order[i+1:]...)
				break
			}
		}
	}
	return nil
}

func (m *MockVectorIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points), nil
}

func (m *MockVectorIndex) List(ctx context.Context, limit int) ([]domain.ScoredPoint, error) {
	if m.FailSearch || m.FailList {
		return nil, domain.ErrBackendUnavailable
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.ScoredPoint, 0, len(m.order))
	for _, id := range m.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		p := m.points[id]
		out = append(out, domain.ScoredPoint{ID: p.ID, Payload: p.Payload})
	}
	return out, nil
}

func (m *MockVectorIndex) Drop(ctx context.Context) error {
	if m.FailWrites {
		return domain.ErrBackendUnavailable
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points = make(map[string]domain.Point)
	m.order = nil
	m.dimension = 0
	return nil
}

func (m *MockVectorIndex) HealthCheck(ctx context.Context) error {
	if m.FailSearch {
		return domain.ErrBackendUnavailable
	}
	return nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
