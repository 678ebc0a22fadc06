package driven

import (
	"context"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// HistoryStore persists chat messages and feedback. It is an append-only
// sink: the core saves and reads, never updates or deletes.
type HistoryStore interface {
	// SaveMessage appends a chat turn.
	SaveMessage(ctx context.Context, msg *domain.ChatMessage) error

	// GetMessages returns up to limit messages for a user, oldest first.
	// An empty sessionID means all sessions.
	GetMessages(ctx context.Context, userID, sessionID string, limit int) ([]*domain.ChatMessage, error)

	// SaveFeedback records a rating for a previous answer.
	SaveFeedback(ctx context.Context, fb *domain.Feedback) error
}
