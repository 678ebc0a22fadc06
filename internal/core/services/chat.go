package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driving"
	"github.com/lectern-ai/lectern-core/internal/runtime"
)

// Ensure chatService implements ChatService
var _ driving.ChatService = (*chatService)(nil)

const (
	// maxContextChars truncates each source passage in the LLM context.
	maxContextChars = 1000

	defaultSystemPrompt = "You are a teaching assistant for a textbook. " +
		"Answer the question using only the provided textbook context. " +
		"If the context does not contain the answer, say that you do not know."

	noResultsMessage = "I couldn't find anything relevant to your question in the textbook. " +
		"Try rephrasing it or asking about a different topic."

	ungroundedMessage = "I'm not confident the generated answer is supported by the textbook, " +
		"so I'd rather not guess. Please rephrase your question or consult the cited sections directly."
)

// ChatConfig tunes the chat pipeline. Zero values take the defaults below.
type ChatConfig struct {
	TopK                int     // sources retrieved per question (default 5)
	MinRelevance        float64 // relevance cut for retrieval (default 0.3)
	HistoryLimit        int     // prior turns passed to the LLM (default 4)
	ValidationThreshold float64 // strict cut for the standalone validator (default 0.30)
	SystemPrompt        string
	DisableGrounding    bool // bypass the verifier entirely
	Logger              *slog.Logger
}

// chatService implements the ChatService interface
type chatService struct {
	search   driving.SearchService
	verifier *GroundingVerifier
	history  driven.HistoryStore
	services *runtime.Services // Dynamic AI services

	topK                int
	minRelevance        float64
	historyLimit        int
	validationThreshold float64
	systemPrompt        string
	groundingEnabled    bool
	logger              *slog.Logger
}

// NewChatService creates a new ChatService.
// The LLM service is accessed dynamically via runtime.Services.
func NewChatService(
	search driving.SearchService,
	verifier *GroundingVerifier,
	history driven.HistoryStore,
	services *runtime.Services,
	cfg ChatConfig,
) driving.ChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.MinRelevance <= 0 {
		cfg.MinRelevance = 0.3
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 4
	}
	if cfg.ValidationThreshold <= 0 {
		cfg.ValidationThreshold = 0.30
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &chatService{
		search:              search,
		verifier:            verifier,
		history:             history,
		services:            services,
		topK:                cfg.TopK,
		minRelevance:        cfg.MinRelevance,
		historyLimit:        cfg.HistoryLimit,
		validationThreshold: cfg.ValidationThreshold,
		systemPrompt:        cfg.SystemPrompt,
		groundingEnabled:    !cfg.DisableGrounding,
		logger:              cfg.Logger,
	}
}

// Query runs the full pipeline: retrieve, generate, verify grounding,
// persist history. "Nothing relevant found" and grounding rejections are
// successful responses with an explanatory answer, never errors.
func (s *chatService) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	queryID := uuid.NewString()

	// Selected text rides along in the retrieval query and lifts the
	// relevance cut: the user explicitly pointed at this passage.
	searchText := req.Question
	opts := domain.SearchOptions{K: s.topK, MinRelevance: s.minRelevance}
	if req.SelectedText != "" {
		searchText = req.SelectedText + "\n\n" + req.Question
		opts.MinRelevance = 0
	}

	sources, err := s.search.HybridSearch(ctx, searchText, opts)
	if err != nil {
		return nil, fmt.Errorf("retrieving sources: %w", err)
	}
	if len(sources) == 0 {
		return s.finishQuery(ctx, req, queryID, noResultsMessage, nil, 0), nil
	}

	llmService := s.services.LLMService()
	if llmService == nil {
		return nil, fmt.Errorf("llm service: %w", domain.ErrNotConfigured)
	}

	history := req.History
	if len(history) == 0 && req.UserID != "" && s.history != nil {
		history = s.recentHistory(ctx, req.UserID, req.SessionID)
	}
	if len(history) > s.historyLimit {
		history = history[len(history)-s.historyLimit:]
	}

	answer, err := llmService.Generate(ctx, s.systemPrompt, buildContext(sources), req.Question, history)
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	if s.groundingEnabled {
		contents := make([]string, len(sources))
		for i, src := range sources {
			contents[i] = src.Content
		}
		verdict := s.verifier.Verify(ctx, req.Question, answer, contents)
		if !verdict.IsValid {
			s.logger.Warn("answer failed grounding check, substituting fallback",
				"query_id", queryID,
				"confidence", verdict.Confidence,
				"issues", strings.Join(verdict.Issues, "; "))
			answer = ungroundedMessage
		}
	}

	return s.finishQuery(ctx, req, queryID, answer, sources, answerConfidence(sources)), nil
}

// History returns a user's past messages, oldest first.
func (s *chatService) History(ctx context.Context, userID, sessionID string, limit int) ([]*domain.ChatMessage, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	if s.history == nil {
		return nil, fmt.Errorf("history store: %w", domain.ErrNotConfigured)
	}
	return s.history.GetMessages(ctx, userID, sessionID, limit)
}

// SubmitFeedback records a rating for a previous answer.
func (s *chatService) SubmitFeedback(ctx context.Context, fb *domain.Feedback) error {
	if fb == nil || fb.QueryID == "" {
		return fmt.Errorf("%w: feedback needs a query id", domain.ErrInvalidInput)
	}
	if fb.Rating != nil && (*fb.Rating < 1 || *fb.Rating > 5) {
		return fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrInvalidInput)
	}
	if s.history == nil {
		return fmt.Errorf("history store: %w", domain.ErrNotConfigured)
	}
	if fb.Timestamp.IsZero() {
		fb.Timestamp = time.Now()
	}
	return s.history.SaveFeedback(ctx, fb)
}

// Validate runs the standalone grounding check with the strict threshold
// against caller-supplied source contents.
func (s *chatService) Validate(ctx context.Context, query, response string, sources []string) domain.GroundingVerdict {
	return s.verifier.VerifyWithThreshold(ctx, query, response, sources, s.validationThreshold)
}

// finishQuery persists the exchange and assembles the response. Persistence
// failures are logged, never surfaced: the user already has their answer.
func (s *chatService) finishQuery(ctx context.Context, req domain.QueryRequest, queryID, answer string, sources []domain.RankedSource, confidence float64) *domain.QueryResponse {
	refs := make([]domain.SourceRef, len(sources))
	for i, src := range sources {
		refs[i] = src.Ref()
	}
	now := time.Now()

	if req.UserID != "" && s.history != nil {
		userMsg := &domain.ChatMessage{
			SessionID: req.SessionID,
			UserID:    req.UserID,
			Role:      domain.RoleUser,
			Content:   req.Question,
			Timestamp: now,
		}
		assistantMsg := &domain.ChatMessage{
			SessionID:  req.SessionID,
			UserID:     req.UserID,
			Role:       domain.RoleAssistant,
			Content:    answer,
			Sources:    refs,
			Confidence: &confidence,
			Timestamp:  now,
		}
		if err := s.history.SaveMessage(ctx, userMsg); err != nil {
			s.logger.Warn("failed to save user message", "query_id", queryID, "error", err)
		} else if err := s.history.SaveMessage(ctx, assistantMsg); err != nil {
			s.logger.Warn("failed to save assistant message", "query_id", queryID, "error", err)
		}
	}

	return &domain.QueryResponse{
		Answer:     answer,
		Sources:    refs,
		Confidence: confidence,
		QueryID:    queryID,
		Timestamp:  now,
	}
}

// recentHistory replays the user's stored messages as LLM history entries.
func (s *chatService) recentHistory(ctx context.Context, userID, sessionID string) []domain.HistoryEntry {
	msgs, err := s.history.GetMessages(ctx, userID, sessionID, s.historyLimit)
	if err != nil {
		s.logger.Warn("failed to load chat history", "user", userID, "error", err)
		return nil
	}
	entries := make([]domain.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, domain.HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return entries
}

// buildContext renders retrieved passages for the LLM prompt, each tagged
// with its chapter and section and truncated to a bounded length.
func buildContext(sources []domain.RankedSource) string {
	parts := make([]string, 0, len(sources))
	for _, src := range sources {
		content := src.Content
		if len(content) > maxContextChars {
			content = content[:maxContextChars]
		}
		header := fmt.Sprintf("[Source: Chapter %s, Section %s]",
			orUnknown(src.Metadata[domain.MetaChapter]),
			orUnknown(src.Metadata[domain.MetaSection]))
		parts = append(parts, header+"\n"+content)
	}
	return strings.Join(parts, "\n\n")
}

// answerConfidence is the mean retrieval score of the cited sources,
// capped at 1.
func answerConfidence(sources []domain.RankedSource) float64 {
	if len(sources) == 0 {
		return 0
	}
	var sum float64
	for _, src := range sources {
		sum += src.Score
	}
	confidence := sum / float64(len(sources))
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
