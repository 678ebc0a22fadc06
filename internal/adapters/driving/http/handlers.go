package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// ReadyResponse reports readiness plus the runtime capability snapshot
// @Description Readiness status with capability flags
type ReadyResponse struct {
	Status       string        `json:"status" example:"ready"`
	Capabilities domain.Status `json:"capabilities"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Returns readiness plus which backends and AI services are usable. Degraded search is reported here, never as a query error.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse  "A configured backend is unreachable"
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := ReadyResponse{Status: "ready"}
	if s.runtimeConfig != nil {
		resp.Capabilities = s.runtimeConfig.Snapshot()
	}

	status := http.StatusOK
	if s.historyDB != nil && s.historyDB.Ping(r.Context()) != nil {
		resp.Status = "history backend unreachable"
		status = http.StatusServiceUnavailable
	} else if s.vectorDB != nil && s.vectorDB.Ping(r.Context()) != nil {
		resp.Status = "vector backend unreachable"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

// Chat endpoints

// handleQuery godoc
// @Summary      Ask a question
// @Description  Runs the full retrieval-augmented pipeline and returns a grounded answer with source citations. "Nothing relevant found" is a 200 with an explanatory answer.
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      domain.QueryRequest  true  "Question and optional conversation context"
// @Success      200      {object}  domain.QueryResponse
// @Failure      400      {object}  ErrorResponse  "Empty question or invalid request body"
// @Failure      503      {object}  ErrorResponse  "LLM provider unavailable or not configured"
// @Router       /api/v1/query [post]
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.chatService.Query(r.Context(), req)
	if err != nil {
		writeServiceError(w, err, "query failed")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleHistory godoc
// @Summary      Get chat history
// @Description  Returns a user's past messages, oldest first. An empty session_id spans all of the user's sessions.
// @Tags         Chat
// @Produce      json
// @Param        user_id     query     string  true   "User identifier"
// @Param        session_id  query     string  false  "Session identifier"
// @Param        limit       query     int     false  "Maximum number of messages"
// @Success      200  {array}   domain.ChatMessage
// @Failure      400  {object}  ErrorResponse  "Missing user_id"
// @Router       /api/v1/history [get]
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := s.chatService.History(r.Context(), userID, sessionID, limit)
	if err != nil {
		writeServiceError(w, err, "failed to load history")
		return
	}
	if messages == nil {
		messages = []*domain.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, messages)
}

// handleFeedback godoc
// @Summary      Submit answer feedback
// @Description  Records a rating for a previous answer, keyed by its query id
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      domain.Feedback  true  "Feedback"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Missing query id or rating out of range"
// @Router       /api/v1/feedback [post]
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var fb domain.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.chatService.SubmitFeedback(r.Context(), &fb); err != nil {
		writeServiceError(w, err, "failed to save feedback")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ValidateRequest asks for a grounding check of an arbitrary answer
// @Description Grounding validation request
type ValidateRequest struct {
	Query    string   `json:"query"`
	Response string   `json:"response"`
	Sources  []string `json:"sources"`
}

// handleValidate godoc
// @Summary      Validate answer grounding
// @Description  Scores how well a response is supported by the given source texts, using the strict standalone threshold
// @Tags         Chat
// @Accept       json
// @Produce      json
// @Param        request  body      ValidateRequest  true  "Query, response and source texts"
// @Success      200      {object}  domain.GroundingVerdict
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Router       /api/v1/validate [post]
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	verdict := s.chatService.Validate(r.Context(), req.Query, req.Response, req.Sources)
	writeJSON(w, http.StatusOK, verdict)
}

// Search endpoint

// SearchRequest is a direct retrieval request against the index
// @Description Search request
type SearchRequest struct {
	Query        string         `json:"query"`
	K            int            `json:"k,omitempty"`
	MinRelevance float64        `json:"min_relevance,omitempty"`
	Filters      domain.Filters `json:"filters,omitempty"`
	Hybrid       bool           `json:"hybrid,omitempty"`
}

// SearchResponse wraps ranked search hits
// @Description Search results
type SearchResponse struct {
	Results []domain.RankedSource `json:"results"`
	Count   int                   `json:"count"`
}

// handleSearch godoc
// @Summary      Search the index
// @Description  Retrieves relevant chunks for a query. Set hybrid to fuse semantic and keyword relevance. A degraded backend yields an empty result set, not an error.
// @Tags         Search
// @Accept       json
// @Produce      json
// @Param        request  body      SearchRequest  true  "Search parameters"
// @Success      200      {object}  SearchResponse
// @Failure      400      {object}  ErrorResponse  "Missing query"
// @Router       /api/v1/search [post]
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	opts := domain.SearchOptions{
		K:            req.K,
		MinRelevance: req.MinRelevance,
		Filters:      req.Filters,
	}

	var (
		results []domain.RankedSource
		err     error
	)
	if req.Hybrid {
		results, err = s.searchService.HybridSearch(r.Context(), req.Query, opts)
	} else {
		results, err = s.searchService.Search(r.Context(), req.Query, opts)
	}
	if err != nil {
		writeServiceError(w, err, "search failed")
		return
	}
	if results == nil {
		results = []domain.RankedSource{}
	}

	writeJSON(w, http.StatusOK, SearchResponse{Results: results, Count: len(results)})
}

// Indexing endpoints

// IndexRequest triggers an indexing run
// @Description Indexing request
type IndexRequest struct {
	// Reindex drops the collection before indexing everything again.
	Reindex bool `json:"reindex,omitempty"`
}

// handleIndex godoc
// @Summary      Index the document source
// @Description  Loads every document from the configured source and indexes it. With reindex set, the collection is dropped and rebuilt first.
// @Tags         Indexing
// @Accept       json
// @Produce      json
// @Param        request  body      IndexRequest  false  "Indexing options"
// @Success      200      {object}  domain.IndexReport
// @Failure      503      {object}  ErrorResponse  "Embedding service not configured"
// @Router       /api/v1/index [post]
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req IndexRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var (
		report *domain.IndexReport
		err    error
	)
	if req.Reindex {
		report, err = s.indexingService.Reindex(r.Context())
	} else {
		report, err = s.indexingService.IndexAll(r.Context())
	}
	if err != nil {
		writeServiceError(w, err, "indexing failed")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// IngestRequest submits one raw text for indexing
// @Description Raw text ingestion request
type IngestRequest struct {
	Text     string            `json:"text"`
	SourceID string            `json:"source_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// handleIngest godoc
// @Summary      Ingest raw text
// @Description  Chunks, embeds and indexes one raw text. A generated document id is returned when source_id is omitted.
// @Tags         Indexing
// @Accept       json
// @Produce      json
// @Param        request  body      IngestRequest  true  "Text and optional metadata"
// @Success      200      {object}  domain.IngestResult
// @Failure      400      {object}  ErrorResponse  "Empty text"
// @Failure      503      {object}  ErrorResponse  "Embedding service not configured"
// @Router       /api/v1/ingest [post]
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.indexingService.Ingest(r.Context(), req.Text, req.SourceID, req.Metadata)
	if err != nil {
		writeServiceError(w, err, "ingestion failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// DeleteDocumentsRequest names the point ids to remove
// @Description Point deletion request
type DeleteDocumentsRequest struct {
	IDs []string `json:"ids"`
}

// handleDeleteDocuments godoc
// @Summary      Delete indexed points
// @Description  Removes points by id. Unknown ids are ignored.
// @Tags         Indexing
// @Accept       json
// @Produce      json
// @Param        request  body      DeleteDocumentsRequest  true  "Point ids"
// @Success      200      {object}  StatusResponse
// @Failure      400      {object}  ErrorResponse  "Missing ids"
// @Router       /api/v1/documents [delete]
func (s *Server) handleDeleteDocuments(w http.ResponseWriter, r *http.Request) {
	var req DeleteDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		writeError(w, http.StatusBadRequest, "ids are required")
		return
	}

	if err := s.indexingService.Delete(r.Context(), req.IDs); err != nil {
		writeServiceError(w, err, "deletion failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// CountResponse reports the number of live points in the index
// @Description Point count
type CountResponse struct {
	Count int `json:"count"`
}

// handleCount godoc
// @Summary      Count indexed points
// @Tags         Indexing
// @Produce      json
// @Success      200  {object}  CountResponse
// @Failure      503  {object}  ErrorResponse  "Vector backend unreachable"
// @Router       /api/v1/documents/count [get]
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.indexingService.Count(r.Context())
	if err != nil {
		writeServiceError(w, err, "count failed")
		return
	}

	writeJSON(w, http.StatusOK, CountResponse{Count: count})
}

// Helpers

// writeServiceError maps domain sentinel errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNotConfigured),
		errors.Is(err, domain.ErrServiceUnavailable),
		errors.Is(err, domain.ErrBackendUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
