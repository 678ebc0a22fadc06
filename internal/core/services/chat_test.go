package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven/mocks"
	"github.com/lectern-ai/lectern-core/internal/runtime"
)

type chatFixture struct {
	index    *mocks.MockVectorIndex
	emb      *mocks.MockEmbeddingService
	llm      *mocks.MockLLMService
	history  *mocks.MockHistoryStore
	services *runtime.Services
	chat     *chatService
}

func newChatFixture(t *testing.T, cfg ChatConfig) *chatFixture {
	t.Helper()

	index := mocks.NewMockVectorIndex()
	emb := mocks.NewMockEmbeddingService()
	llm := mocks.NewMockLLMService()
	history := mocks.NewMockHistoryStore()

	services := createTestServices(emb)
	services.SetLLMService(llm)

	search := NewSearchService(index, services, SearchConfig{})
	verifier := NewGroundingVerifier(services, GroundingConfig{})
	chat := NewChatService(search, verifier, history, services, cfg).(*chatService)

	return &chatFixture{
		index:    index,
		emb:      emb,
		llm:      llm,
		history:  history,
		services: services,
		chat:     chat,
	}
}

func (f *chatFixture) indexTextbook(t *testing.T) {
	t.Helper()
	indexTexts(t, f.index, f.emb, []string{
		"Photosynthesis is the process by which plants convert sunlight into chemical energy.",
		"The mitochondria is the powerhouse of the cell.",
	}, []map[string]string{
		{domain.MetaTitle: "Photosynthesis", domain.MetaChapter: "3", domain.MetaSection: "3.1"},
		{domain.MetaTitle: "Cells", domain.MetaChapter: "1", domain.MetaSection: "1.2"},
	})
}

func TestChatService_QueryPipeline(t *testing.T) {
	f := newChatFixture(t, ChatConfig{MinRelevance: 0.01})
	f.indexTextbook(t)
	f.llm.Response = "Photosynthesis is the process by which plants convert sunlight into chemical energy."

	resp, err := f.chat.Query(context.Background(), domain.QueryRequest{
		Question:  "What is photosynthesis?",
		UserID:    "user-1",
		SessionID: "session-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Answer != f.llm.Response {
		t.Errorf("expected the generated answer to pass grounding, got %q", resp.Answer)
	}
	if len(resp.Sources) == 0 {
		t.Fatal("expected cited sources")
	}
	if resp.Sources[0].Chapter != "3" || resp.Sources[0].Section != "3.1" {
		t.Errorf("expected the photosynthesis chunk cited first, got %+v", resp.Sources[0])
	}
	if resp.Confidence <= 0 || resp.Confidence > 1 {
		t.Errorf("expected confidence in (0,1], got %f", resp.Confidence)
	}
	if resp.QueryID == "" {
		t.Error("expected a query id")
	}

	if !strings.Contains(f.llm.LastContext, "[Source: Chapter 3, Section 3.1]") {
		t.Errorf("expected tagged context, got %q", f.llm.LastContext)
	}
	if f.llm.LastQuestion != "What is photosynthesis?" {
		t.Errorf("unexpected question passed to the llm: %q", f.llm.LastQuestion)
	}

	// Both sides of the exchange were persisted.
	msgs := f.history.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 persisted messages, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleUser || msgs[1].Role != domain.RoleAssistant {
		t.Errorf("unexpected roles: %s, %s", msgs[0].Role, msgs[1].Role)
	}
	if msgs[1].Confidence == nil {
		t.Error("expected the assistant message to carry a confidence")
	}
}

func TestChatService_NoRelevantSources(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	// Nothing indexed at all.

	resp, err := f.chat.Query(context.Background(), domain.QueryRequest{
		Question: "What is photosynthesis?",
	})
	if err != nil {
		t.Fatalf("no-results must be a successful response, got %v", err)
	}
	if resp.Answer != noResultsMessage {
		t.Errorf("expected the no-results message, got %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("expected no sources, got %d", len(resp.Sources))
	}
	if resp.Confidence != 0 {
		t.Errorf("expected zero confidence, got %f", resp.Confidence)
	}
	if f.llm.GenerateCalls != 0 {
		t.Error("expected the llm to be skipped with no sources")
	}
}

func TestChatService_UngroundedAnswerGetsFallback(t *testing.T) {
	f := newChatFixture(t, ChatConfig{MinRelevance: 0.01})
	f.indexTextbook(t)
	// Fluent but entirely off-topic: zero query coverage fails grounding.
	f.llm.Response = "Bananas are a yellow tropical fruit rich in potassium and fiber."

	resp, err := f.chat.Query(context.Background(), domain.QueryRequest{
		Question: "What is photosynthesis?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != ungroundedMessage {
		t.Errorf("expected the fallback message, got %q", resp.Answer)
	}
	// Sources are still cited so the user can read the material themselves.
	if len(resp.Sources) == 0 {
		t.Error("expected sources on a fallback response")
	}
}

func TestChatService_GroundingCanBeDisabled(t *testing.T) {
	f := newChatFixture(t, ChatConfig{MinRelevance: 0.01, DisableGrounding: true})
	f.indexTextbook(t)
	f.llm.Response = "Bananas are a yellow tropical fruit rich in potassium and fiber."

	resp, err := f.chat.Query(context.Background(), domain.QueryRequest{
		Question: "What is photosynthesis?",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Answer != f.llm.Response {
		t.Errorf("expected the raw answer with grounding disabled, got %q", resp.Answer)
	}
}

func TestChatService_SelectedTextLiftsRelevanceCut(t *testing.T) {
	// An absurdly high cut would normally return nothing.
	f := newChatFixture(t, ChatConfig{MinRelevance: 0.99})
	f.indexTextbook(t)
	f.llm.Response = "The mitochondria is the powerhouse of the cell, producing most of its energy."

	resp, err := f.chat.Query(context.Background(), domain.QueryRequest{
		Question:     "What is the mitochondria and what does the powerhouse do in the cell?",
		SelectedText: "The mitochondria is the powerhouse of the cell.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Sources) == 0 {
		t.Fatal("expected selected text to bypass the relevance cut")
	}
	if resp.Answer == noResultsMessage {
		t.Error("expected a generated answer, not the no-results message")
	}
}

func TestChatService_RequiresQuestionAndLLM(t *testing.T) {
	f := newChatFixture(t, ChatConfig{MinRelevance: 0.01})
	f.indexTextbook(t)
	ctx := context.Background()

	if _, err := f.chat.Query(ctx, domain.QueryRequest{Question: "  "}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for a blank question, got %v", err)
	}

	f.services.SetLLMService(nil)
	_, err := f.chat.Query(ctx, domain.QueryRequest{Question: "What is photosynthesis?"})
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured without an llm, got %v", err)
	}
}

func TestChatService_HistoryReplay(t *testing.T) {
	f := newChatFixture(t, ChatConfig{MinRelevance: 0.01, HistoryLimit: 4})
	f.indexTextbook(t)
	f.llm.Response = "Photosynthesis is the process by which plants convert sunlight into chemical energy."
	ctx := context.Background()

	// Seed more stored turns than the limit.
	for i := 0; i < 3; i++ {
		_ = f.history.SaveMessage(ctx, &domain.ChatMessage{
			UserID: "user-1", SessionID: "s1", Role: domain.RoleUser, Content: "earlier question",
		})
		_ = f.history.SaveMessage(ctx, &domain.ChatMessage{
			UserID: "user-1", SessionID: "s1", Role: domain.RoleAssistant, Content: "earlier answer",
		})
	}

	_, err := f.chat.Query(ctx, domain.QueryRequest{
		Question:  "What is photosynthesis?",
		UserID:    "user-1",
		SessionID: "s1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.llm.LastHistory) != 4 {
		t.Errorf("expected history trimmed to 4 turns, got %d", len(f.llm.LastHistory))
	}

	msgs, err := f.chat.History(ctx, "user-1", "s1", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 8 {
		t.Errorf("expected 6 seeded + 2 new messages, got %d", len(msgs))
	}

	if _, err := f.chat.History(ctx, "", "", 10); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput without a user id, got %v", err)
	}
}

func TestChatService_SubmitFeedback(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	ctx := context.Background()

	rating := 4
	if err := f.chat.SubmitFeedback(ctx, &domain.Feedback{QueryID: "q1", UserID: "user-1", Rating: &rating}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(f.history.FeedbackEntries()); got != 1 {
		t.Fatalf("expected 1 feedback entry, got %d", got)
	}
	if f.history.FeedbackEntries()[0].Timestamp.IsZero() {
		t.Error("expected a timestamp to be stamped on save")
	}

	bad := 6
	if err := f.chat.SubmitFeedback(ctx, &domain.Feedback{QueryID: "q1", Rating: &bad}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for rating 6, got %v", err)
	}
	if err := f.chat.SubmitFeedback(ctx, &domain.Feedback{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput without a query id, got %v", err)
	}
}

func TestChatService_ValidateUsesStrictThreshold(t *testing.T) {
	f := newChatFixture(t, ChatConfig{})
	ctx := context.Background()

	good := f.chat.Validate(ctx,
		"What is photosynthesis?",
		"Photosynthesis is the process by which plants convert sunlight into chemical energy.",
		[]string{"Photosynthesis is the process by which plants convert sunlight into chemical energy."},
	)
	if !good.IsValid {
		t.Errorf("expected a well-grounded response to validate, confidence %f", good.Confidence)
	}

	bad := f.chat.Validate(ctx,
		"What is photosynthesis?",
		"I don't know.",
		[]string{"Photosynthesis is the process by which plants convert sunlight into chemical energy."},
	)
	if bad.IsValid {
		t.Errorf("expected a non-answer to fail validation, confidence %f", bad.Confidence)
	}
}
