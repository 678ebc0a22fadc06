package http

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driving"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	version    string

	// Services
	chatService     driving.ChatService
	searchService   driving.SearchService
	indexingService driving.IndexingService

	// Infrastructure
	runtimeConfig *domain.RuntimeConfig
	historyDB     Pinger // history backend health check (optional)
	vectorDB      Pinger // vector backend health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:    "0.0.0.0",
		Port:    8080,
		Version: "dev",
	}
}

// NewServer creates a new HTTP server
func NewServer(
	cfg Config,
	chatService driving.ChatService,
	searchService driving.SearchService,
	indexingService driving.IndexingService,
	runtimeConfig *domain.RuntimeConfig,
	historyDB Pinger, // can be nil
	vectorDB Pinger, // can be nil
) *Server {
	s := &Server{
		router:          http.NewServeMux(),
		version:         cfg.Version,
		chatService:     chatService,
		searchService:   searchService,
		indexingService: indexingService,
		runtimeConfig:   runtimeConfig,
		historyDB:       historyDB,
		vectorDB:        vectorDB,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      NewRecoveryMiddleware().Handler(NewLoggingMiddleware().Handler(s.router)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second, // LLM generation can be slow
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)

	// Chat endpoints
	s.router.HandleFunc("POST /api/v1/query", s.handleQuery)
	s.router.HandleFunc("GET /api/v1/history", s.handleHistory)
	s.router.HandleFunc("POST /api/v1/feedback", s.handleFeedback)
	s.router.HandleFunc("POST /api/v1/validate", s.handleValidate)

	// Search endpoint
	s.router.HandleFunc("POST /api/v1/search", s.handleSearch)

	// Indexing endpoints
	s.router.HandleFunc("POST /api/v1/index", s.handleIndex)
	s.router.HandleFunc("POST /api/v1/ingest", s.handleIngest)
	s.router.HandleFunc("DELETE /api/v1/documents", s.handleDeleteDocuments)
	s.router.HandleFunc("GET /api/v1/documents/count", s.handleCount)
}

// Start starts the HTTP server with graceful shutdown
func (s *Server) Start() error {
	// Channel to listen for OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		log.Printf("Starting server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-stop
	log.Println("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
