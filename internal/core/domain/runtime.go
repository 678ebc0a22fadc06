package domain

import "sync"

// RuntimeConfig tracks which services are available at runtime.
// This is determined at startup and can be updated dynamically for AI services.
// Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	VectorBackend  string // "memory" or "qdrant"
	HistoryBackend string // "redis" or "postgres"

	// Dynamic capability flags (updated when AI services change)
	embeddingAvailable bool
	llmAvailable       bool

	// groundingEnabled reports whether generated answers are checked
	// against their sources before being returned.
	groundingEnabled bool

	// searchDegraded is latched when a search had to return empty results
	// because the embedder or the index backend was unavailable. Surfaced
	// in readiness output so degraded mode is never a silent change.
	searchDegraded bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(vectorBackend, historyBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		VectorBackend:  vectorBackend,
		HistoryBackend: historyBackend,
	}
}

// EmbeddingAvailable returns whether the embedding service is available
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// LLMAvailable returns whether the LLM service is available
func (c *RuntimeConfig) LLMAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.llmAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetLLMAvailable updates the LLM availability flag
func (c *RuntimeConfig) SetLLMAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.llmAvailable = available
}

// GroundingEnabled returns whether answer grounding checks are active
func (c *RuntimeConfig) GroundingEnabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groundingEnabled
}

// SetGroundingEnabled updates the grounding flag
func (c *RuntimeConfig) SetGroundingEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groundingEnabled = enabled
}

// SearchDegraded returns whether any search has run in degraded mode
func (c *RuntimeConfig) SearchDegraded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.searchDegraded
}

// MarkSearchDegraded latches the degraded-search flag
func (c *RuntimeConfig) MarkSearchDegraded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.searchDegraded = true
}

// CanDoSemanticSearch returns true if semantic search is possible
func (c *RuntimeConfig) CanDoSemanticSearch() bool {
	return c.EmbeddingAvailable()
}

// Status is a point-in-time capability snapshot for readiness output.
type Status struct {
	VectorBackend      string `json:"vector_backend"`
	HistoryBackend     string `json:"history_backend"`
	EmbeddingAvailable bool   `json:"embedding_available"`
	LLMAvailable       bool   `json:"llm_available"`
	GroundingEnabled   bool   `json:"grounding_enabled"`
	SearchDegraded     bool   `json:"search_degraded"`
}

// Snapshot returns the current capability flags
func (c *RuntimeConfig) Snapshot() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		VectorBackend:      c.VectorBackend,
		HistoryBackend:     c.HistoryBackend,
		EmbeddingAvailable: c.embeddingAvailable,
		LLMAvailable:       c.llmAvailable,
		GroundingEnabled:   c.groundingEnabled,
		SearchDegraded:     c.searchDegraded,
	}
}
