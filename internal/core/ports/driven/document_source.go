package driven

import (
	"context"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// DocumentSource produces documents for indexing. A malformed file skips
// that document with a logged warning instead of aborting the batch.
type DocumentSource interface {
	// Load returns every document the source currently has.
	Load(ctx context.Context) ([]domain.Document, error)

	// LoadOne loads a single document by source path or id. Returns
	// domain.ErrNotFound when the source does not have it.
	LoadOne(ctx context.Context, path string) (*domain.Document, error)
}
