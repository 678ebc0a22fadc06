package driving

import (
	"context"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// ChatService answers questions grounded in indexed textbook content
type ChatService interface {
	// Query runs the full pipeline: retrieve, generate, verify grounding,
	// persist history. "Nothing relevant found" and grounding rejections
	// are successful responses, not errors. Provider outages surface as
	// domain.ErrServiceUnavailable.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error)

	// History returns a user's past messages, oldest first.
	History(ctx context.Context, userID, sessionID string, limit int) ([]*domain.ChatMessage, error)

	// SubmitFeedback records a rating for a previous answer.
	SubmitFeedback(ctx context.Context, fb *domain.Feedback) error

	// Validate runs the standalone grounding check with the strict
	// threshold against arbitrary source contents.
	Validate(ctx context.Context, query, response string, sources []string) domain.GroundingVerdict
}
