package driving

import (
	"context"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// SearchService retrieves relevant chunks for a query
type SearchService interface {
	// Search performs semantic retrieval: embed the query, look up the
	// vector index, filter by relevance and metadata, sort, truncate.
	// An unreachable backend or missing embedder yields empty results
	// and a degradation log, never an error.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.RankedSource, error)

	// HybridSearch fuses semantic and keyword relevance. Any failure in
	// the keyword leg falls back to plain Search; this never raises for
	// hybrid-specific reasons.
	HybridSearch(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.RankedSource, error)
}
