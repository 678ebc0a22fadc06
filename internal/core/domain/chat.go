package domain

import "time"

// Message roles in a chat exchange.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// HistoryEntry is one prior turn of a conversation, as supplied by the
// caller or replayed from the history store.
type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMessage is a persisted chat turn. The history store is append-only;
// messages are never updated or deleted by the core.
type ChatMessage struct {
	ID         int64       `json:"id,omitempty"`
	SessionID  string      `json:"session_id"`
	UserID     string      `json:"user_id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	Sources    []SourceRef `json:"sources,omitempty"`
	Confidence *float64    `json:"confidence,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// Feedback is a user rating of a previous answer.
type Feedback struct {
	QueryID   string    `json:"query_id"`
	UserID    string    `json:"user_id"`
	Rating    *int      `json:"rating,omitempty"` // 1-5
	Useful    *bool     `json:"useful,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// QueryRequest is the caller-facing query operation input.
type QueryRequest struct {
	Question     string         `json:"question"`
	UserID       string         `json:"user_id,omitempty"`
	SessionID    string         `json:"session_id,omitempty"`
	History      []HistoryEntry `json:"history,omitempty"`
	SelectedText string         `json:"selected_text,omitempty"`
}

// QueryResponse is the caller-facing query result. It is always a valid
// response object: "nothing relevant found" and grounding rejections are
// successful outcomes with an explanatory answer, not errors.
type QueryResponse struct {
	Answer     string      `json:"answer"`
	Sources    []SourceRef `json:"sources"`
	Confidence float64     `json:"confidence"`
	QueryID    string      `json:"query_id"`
	Timestamp  time.Time   `json:"timestamp"`
}

// IngestResult reports a raw-text ingestion.
type IngestResult struct {
	ChunksProcessed int    `json:"chunks_processed"`
	VectorsStored   int    `json:"vectors_stored"`
	DocumentID      string `json:"document_id"`
}

// IndexReport summarises an indexing run.
type IndexReport struct {
	IndexedCount   int           `json:"indexed_count"`
	TotalDocuments int           `json:"total_documents"`
	ProcessingTime time.Duration `json:"processing_time" swaggertype:"integer"`
	Success        bool          `json:"success"`
	Message        string        `json:"message"`
}
