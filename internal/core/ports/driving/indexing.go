package driving

import (
	"context"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// IndexingService coordinates chunking, embedding and vector-index writes
type IndexingService interface {
	// IndexAll loads every document from the configured source and
	// indexes it.
	IndexAll(ctx context.Context) (*domain.IndexReport, error)

	// IndexDocuments chunks, embeds and upserts the given documents.
	// Re-indexing a document with the same id leaves exactly one live
	// entry per chunk id (upsert, not append).
	IndexDocuments(ctx context.Context, docs []domain.Document) (*domain.IndexReport, error)

	// IndexIncremental indexes only the given new or updated documents
	// without touching the rest of the collection.
	IndexIncremental(ctx context.Context, docs []domain.Document) (*domain.IndexReport, error)

	// Ingest chunks and indexes one raw text under sourceID.
	Ingest(ctx context.Context, text, sourceID string, metadata map[string]string) (*domain.IngestResult, error)

	// Delete removes points by id. Unknown ids are no-ops.
	Delete(ctx context.Context, ids []string) error

	// Reindex drops the collection, recreates it and runs IndexAll.
	Reindex(ctx context.Context) (*domain.IndexReport, error)

	// Count returns the number of live points in the index.
	Count(ctx context.Context) (int, error)
}
