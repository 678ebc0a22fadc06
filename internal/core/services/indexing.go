package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern-core/internal/chunker"
	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driving"
	"github.com/lectern-ai/lectern-core/internal/runtime"
)

// Ensure indexingService implements IndexingService
var _ driving.IndexingService = (*indexingService)(nil)

// IndexingConfig tunes the indexer. Zero values take the defaults below.
type IndexingConfig struct {
	ChunkSize    int // characters per chunk (default 512)
	ChunkOverlap int // characters shared between neighbours (default 50)
	Logger       *slog.Logger
}

// indexingService implements the IndexingService interface
type indexingService struct {
	index    driven.VectorIndex
	source   driven.DocumentSource
	services *runtime.Services // Dynamic AI services

	chunkSize    int
	chunkOverlap int
	logger       *slog.Logger
}

// NewIndexingService creates a new IndexingService.
// The embedding service is accessed dynamically via runtime.Services; the
// write paths fail loudly when it is absent.
func NewIndexingService(index driven.VectorIndex, source driven.DocumentSource, services *runtime.Services, cfg IndexingConfig) driving.IndexingService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 512
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		cfg.ChunkOverlap = 50
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &indexingService{
		index:        index,
		source:       source,
		services:     services,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		logger:       cfg.Logger,
	}
}

// IndexAll loads every document from the configured source and indexes it.
func (s *indexingService) IndexAll(ctx context.Context) (*domain.IndexReport, error) {
	docs, err := s.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading documents: %w", err)
	}
	return s.IndexDocuments(ctx, docs)
}

// IndexDocuments chunks, embeds and upserts the given documents. Chunk ids
// are derived from the document id and position, so re-indexing the same
// document replaces its points instead of duplicating them.
func (s *indexingService) IndexDocuments(ctx context.Context, docs []domain.Document) (*domain.IndexReport, error) {
	start := time.Now()

	embeddingService, err := s.requireEmbedder()
	if err != nil {
		return nil, err
	}
	if _, err := s.index.EnsureCollection(ctx, embeddingService.Dimensions(), domain.MetricCosine); err != nil {
		return nil, fmt.Errorf("ensuring collection: %w", err)
	}

	indexed := 0
	for _, doc := range docs {
		stored, err := s.indexOne(ctx, embeddingService, doc)
		if err != nil {
			return nil, err
		}
		if stored > 0 {
			indexed++
		}
	}

	return &domain.IndexReport{
		IndexedCount:   indexed,
		TotalDocuments: len(docs),
		ProcessingTime: time.Since(start),
		Success:        true,
		Message:        fmt.Sprintf("indexed %d of %d documents", indexed, len(docs)),
	}, nil
}

// IndexIncremental indexes only the given documents. Untouched points in the
// collection are left as they are; that is already how IndexDocuments
// behaves, this name just makes the intent explicit at call sites.
func (s *indexingService) IndexIncremental(ctx context.Context, docs []domain.Document) (*domain.IndexReport, error) {
	return s.IndexDocuments(ctx, docs)
}

// Ingest chunks and indexes one raw text under sourceID. An empty sourceID
// gets a generated one.
func (s *indexingService) Ingest(ctx context.Context, text, sourceID string, metadata map[string]string) (*domain.IngestResult, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: ingest text is empty", domain.ErrInvalidInput)
	}
	if sourceID == "" {
		sourceID = uuid.NewString()
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	if metadata[domain.MetaSource] == "" {
		metadata[domain.MetaSource] = "ingest"
	}

	embeddingService, err := s.requireEmbedder()
	if err != nil {
		return nil, err
	}
	if _, err := s.index.EnsureCollection(ctx, embeddingService.Dimensions(), domain.MetricCosine); err != nil {
		return nil, fmt.Errorf("ensuring collection: %w", err)
	}

	doc := domain.Document{ID: sourceID, Content: text, Metadata: metadata}
	chunks, err := chunker.ChunkDocument(doc, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return nil, err
	}

	stored, err := s.storeChunks(ctx, embeddingService, doc, chunks)
	if err != nil {
		return nil, err
	}

	return &domain.IngestResult{
		ChunksProcessed: len(chunks),
		VectorsStored:   stored,
		DocumentID:      sourceID,
	}, nil
}

// Delete removes points by id. Unknown ids are no-ops, so deleting the same
// set twice is safe.
func (s *indexingService) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.index.Delete(ctx, ids); err != nil {
		return fmt.Errorf("deleting points: %w", err)
	}
	return nil
}

// Reindex drops the collection and rebuilds it from the document source.
func (s *indexingService) Reindex(ctx context.Context) (*domain.IndexReport, error) {
	if err := s.index.Drop(ctx); err != nil {
		return nil, fmt.Errorf("dropping collection: %w", err)
	}
	s.logger.Info("collection dropped, rebuilding index")
	return s.IndexAll(ctx)
}

// Count returns the number of live points in the index.
func (s *indexingService) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

func (s *indexingService) indexOne(ctx context.Context, embeddingService driven.EmbeddingService, doc domain.Document) (int, error) {
	chunks, err := chunker.ChunkDocument(doc, s.chunkSize, s.chunkOverlap)
	if err != nil {
		return 0, fmt.Errorf("chunking document %q: %w", doc.ID, err)
	}
	if len(chunks) == 0 {
		s.logger.Warn("document has no content, skipping", "document", doc.ID)
		return 0, nil
	}
	return s.storeChunks(ctx, embeddingService, doc, chunks)
}

// storeChunks embeds a document's chunks and upserts the resulting points.
// A nil vector means the provider failed for that chunk alone: the chunk is
// skipped with a warning. A batch error is systemic and aborts the run.
func (s *indexingService) storeChunks(ctx context.Context, embeddingService driven.EmbeddingService, doc domain.Document, chunks []domain.Chunk) (int, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := embeddingService.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	points := make([]domain.Point, 0, len(chunks))
	for i, c := range chunks {
		if i >= len(vectors) || vectors[i] == nil {
			s.logger.Warn("no embedding for chunk, skipping", "chunk", c.ID)
			continue
		}
		points = append(points, domain.Point{
			ID:     c.ID,
			Vector: vectors[i],
			Payload: domain.Payload{
				Content:  c.Content,
				Metadata: doc.Metadata,
			},
		})
	}
	if len(points) == 0 {
		return 0, nil
	}

	if err := s.index.Upsert(ctx, points); err != nil {
		return 0, fmt.Errorf("upserting points for document %q: %w", doc.ID, err)
	}
	return len(points), nil
}

func (s *indexingService) requireEmbedder() (driven.EmbeddingService, error) {
	embeddingService := s.services.EmbeddingService()
	if embeddingService == nil {
		return nil, fmt.Errorf("embedding service: %w", domain.ErrNotConfigured)
	}
	return embeddingService, nil
}
