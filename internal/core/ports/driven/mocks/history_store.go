package mocks

import (
	"context"
	"sync"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// MockHistoryStore is an in-memory mock implementation of HistoryStore
// for testing.
type MockHistoryStore struct {
	mu       sync.Mutex
	messages []*domain.ChatMessage
	feedback []*domain.Feedback

	// Err makes every operation fail.
	Err error
}

// NewMockHistoryStore creates a new MockHistoryStore
func NewMockHistoryStore() *MockHistoryStore {
	return &MockHistoryStore{}
}

func (m *MockHistoryStore) SaveMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *msg
	saved.ID = int64(len(m.messages) + 1)
	m.messages = append(m.messages, &saved)
	return nil
}

func (m *MockHistoryStore) GetMessages(ctx context.Context, userID, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.ChatMessage
	for _, msg := range m.messages {
		if msg.UserID != userID {
			continue
		}
		if sessionID != "" && msg.SessionID != sessionID {
			continue
		}
		out = append(out, msg)
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (m *MockHistoryStore) SaveFeedback(ctx context.Context, fb *domain.Feedback) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	saved := *fb
	m.feedback = append(m.feedback, &saved)
	return nil
}

// Messages returns a copy of everything saved so far.
func (m *MockHistoryStore) Messages() []*domain.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.ChatMessage(nil), m.messages...)
}

// FeedbackEntries returns a copy of all saved feedback.
func (m *MockHistoryStore) FeedbackEntries() []*domain.Feedback {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Feedback(nil), m.feedback...)
}
