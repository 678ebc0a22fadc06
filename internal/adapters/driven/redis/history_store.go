package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.HistoryStore = (*HistoryStore)(nil)

const (
	// Key prefixes for Redis
	historyPrefix  = "chat:history:"  // list of messages per user+session
	sessionsPrefix = "chat:sessions:" // set of a user's session ids
	feedbackPrefix = "chat:feedback:" // list of feedback per query id
	messageSeqKey  = "chat:message_seq"

	// defaultTTL is how long conversations stay around. Redis is the
	// ephemeral history backend; durable history lives in postgres.
	defaultTTL = 7 * 24 * time.Hour
)

// HistoryStore implements driven.HistoryStore using Redis lists.
// Conversations expire automatically via TTL.
type HistoryStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewHistoryStore creates a new Redis-backed HistoryStore
func NewHistoryStore(client *redis.Client) *HistoryStore {
	return &HistoryStore{client: client, ttl: defaultTTL}
}

func historyKey(userID, sessionID string) string {
	return historyPrefix + userID + ":" + sessionID
}

// SaveMessage appends a chat turn to the user's session list
func (s *HistoryStore) SaveMessage(ctx context.Context, msg *domain.ChatMessage) error {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if msg.ID == 0 {
		id, err := s.client.Incr(ctx, messageSeqKey).Result()
		if err != nil {
			return fmt.Errorf("failed to allocate message id: %w", err)
		}
		msg.ID = id
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	key := historyKey(msg.UserID, msg.SessionID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	pipe.SAdd(ctx, sessionsPrefix+msg.UserID, msg.SessionID)
	pipe.Expire(ctx, sessionsPrefix+msg.UserID, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// GetMessages returns up to limit of the user's most recent messages,
// oldest first. An empty sessionID merges all of the user's sessions.
func (s *HistoryStore) GetMessages(ctx context.Context, userID, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	sessions := []string{sessionID}
	if sessionID == "" {
		var err error
		sessions, err = s.client.SMembers(ctx, sessionsPrefix+userID).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list sessions: %w", err)
		}
	}

	var messages []*domain.ChatMessage
	for _, session := range sessions {
		raw, err := s.client.LRange(ctx, historyKey(userID, session), int64(-limit), -1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read history: %w", err)
		}
		for _, item := range raw {
			var msg domain.ChatMessage
			if err := json.Unmarshal([]byte(item), &msg); err != nil {
				return nil, fmt.Errorf("failed to unmarshal message: %w", err)
			}
			messages = append(messages, &msg)
		}
	}

	// Merging session lists loses global order; the sequence id restores it.
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// SaveFeedback records a rating for a previous answer
func (s *HistoryStore) SaveFeedback(ctx context.Context, fb *domain.Feedback) error {
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now()
	}
	data, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	key := feedbackPrefix + fb.QueryID
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}
