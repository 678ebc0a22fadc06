package mocks

import (
	"context"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// MockDocumentSource serves a fixed set of documents for testing.
type MockDocumentSource struct {
	Documents []domain.Document

	// Err makes Load fail.
	Err error
}

// NewMockDocumentSource creates a new MockDocumentSource
func NewMockDocumentSource(docs ...domain.Document) *MockDocumentSource {
	return &MockDocumentSource{Documents: docs}
}

func (m *MockDocumentSource) Load(ctx context.Context) ([]domain.Document, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]domain.Document(nil), m.Documents...), nil
}

func (m *MockDocumentSource) LoadOne(ctx context.Context, path string) (*domain.Document, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	for _, doc := range m.Documents {
		if doc.ID == path || doc.Metadata[domain.MetaRelativePath] == path {
			d := doc
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}
