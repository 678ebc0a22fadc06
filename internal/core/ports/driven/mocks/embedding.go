package mocks

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// MockEmbeddingService is a mock implementation of EmbeddingService for
// testing. Vectors are deterministic hashed bags of words, so texts that
// share more words score closer under cosine similarity. That keeps
// relevance-ordering tests meaningful without a real model.
type MockEmbeddingService struct {
	dimensions int
	model      string
	failNext   bool
	skipNext   bool
}

// NewMockEmbeddingService creates a new MockEmbeddingService
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{
		dimensions: 384,
		model:      "mock-embedding-model",
	}
}

// FailNext makes the next call return a systemic provider error.
func (m *MockEmbeddingService) FailNext() { m.failNext = true }

// SkipNext makes the next batch return a nil vector for its first item,
// simulating a single-item provider failure.
func (m *MockEmbeddingService) SkipNext() { m.skipNext = true }

func (m *MockEmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.failNext {
		m.failNext = false
		return nil, domain.ErrServiceUnavailable
	}

	result := make([][]float32, len(texts))
	for i, text := range texts {
		if m.skipNext && i == 0 {
			m.skipNext = false
			continue
		}
		result[i] = m.generateEmbedding(text)
	}
	return result, nil
}

func (m *MockEmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	if m.failNext {
		m.failNext = false
		return nil, domain.ErrServiceUnavailable
	}
	return m.generateEmbedding(query), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dimensions
}

func (m *MockEmbeddingService) Model() string {
	return m.model
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// generateEmbedding buckets each lowercased word into a hashed slot and
// L2-normalizes the counts.
func (m *MockEmbeddingService) generateEmbedding(text string) []float32 {
	vec := make([]float32, m.dimensions)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[int(h.Sum32())%m.dimensions]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}
