// Package mocks provides in-memory implementations of the driven ports
// for use in service tests.
package mocks

import "github.com/lectern-ai/lectern-core/internal/core/ports/driven"

var (
	_ driven.EmbeddingService = (*MockEmbeddingService)(nil)
	_ driven.VectorIndex      = (*MockVectorIndex)(nil)
	_ driven.LLMService       = (*MockLLMService)(nil)
	_ driven.HistoryStore     = (*MockHistoryStore)(nil)
	_ driven.DocumentSource   = (*MockDocumentSource)(nil)
)
