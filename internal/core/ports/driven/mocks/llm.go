package mocks

import (
	"context"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// MockLLMService is a mock implementation of LLMService for testing.
// It replays a canned answer and records the last prompt it saw.
type MockLLMService struct {
	// Response is returned from Generate when set; otherwise a default
	// echo of the question is produced.
	Response string

	// Err makes Generate and Ping fail.
	Err error

	LastSystemPrompt string
	LastContext      string
	LastQuestion     string
	LastHistory      []domain.HistoryEntry
	GenerateCalls    int
	closed           bool
}

// NewMockLLMService creates a new MockLLMService
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{}
}

func (m *MockLLMService) Generate(ctx context.Context, systemPrompt, contextStr, question string, history []domain.HistoryEntry) (string, error) {
	m.GenerateCalls++
	m.LastSystemPrompt = systemPrompt
	m.LastContext = contextStr
	m.LastQuestion = question
	m.LastHistory = history

	if m.Err != nil {
		return "", m.Err
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return "Answer to: " + question, nil
}

func (m *MockLLMService) Model() string {
	return "mock-llm-model"
}

func (m *MockLLMService) Ping(ctx context.Context) error {
	return m.Err
}

func (m *MockLLMService) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockLLMService) Closed() bool { return m.closed }
