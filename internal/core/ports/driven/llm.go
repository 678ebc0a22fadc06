package driven

import (
	"context"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// LLMService produces answers grounded in retrieved context
type LLMService interface {
	// Generate asks the model to answer question using contextStr, with
	// optional prior turns. The context string is built from retrieved
	// chunks by the caller; the model choice is the adapter's concern.
	Generate(ctx context.Context, systemPrompt, contextStr, question string, history []domain.HistoryEntry) (string, error)

	// Model returns the model name being used
	Model() string

	// Ping verifies the LLM service is available
	Ping(ctx context.Context) error

	// Close releases resources held by the LLM service
	Close() error
}
