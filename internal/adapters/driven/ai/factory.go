package ai

import (
	"fmt"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven"
)

// Supported AI providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Settings selects and configures an AI provider.
type Settings struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// IsConfigured reports whether the settings carry enough to build a service.
func (s Settings) IsConfigured() bool {
	if s.Provider == "" {
		return false
	}
	// Ollama runs locally without credentials.
	return s.Provider == ProviderOllama || s.APIKey != ""
}

// NewEmbeddingService creates an embedding service from settings.
// Returns (nil, nil) when no provider is configured: the caller runs in
// degraded mode rather than failing to start.
func NewEmbeddingService(settings Settings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAIEmbedding(settings.APIKey, settings.Model, settings.BaseURL)
	case ProviderOllama:
		return NewOllamaEmbedding(settings.BaseURL, settings.Model)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}

// NewLLMService creates an LLM service from settings.
// Returns (nil, nil) when no provider is configured.
func NewLLMService(settings Settings) (driven.LLMService, error) {
	if !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case ProviderOpenAI:
		return NewOpenAILLM(settings.APIKey, settings.Model, settings.BaseURL)
	case ProviderOllama:
		return NewOllamaLLM(settings.BaseURL, settings.Model)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
}
