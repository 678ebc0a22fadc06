package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven/mocks"
)

func testDocuments() []domain.Document {
	return []domain.Document{
		{
			ID:      "docs/bio/photosynthesis.md",
			Content: "Photosynthesis is the process by which plants convert sunlight into chemical energy.",
			Metadata: map[string]string{
				domain.MetaTitle:   "Photosynthesis",
				domain.MetaChapter: "3",
			},
		},
		{
			ID:      "docs/bio/cells.md",
			Content: "The mitochondria is the powerhouse of the cell.",
			Metadata: map[string]string{
				domain.MetaTitle:   "Cells",
				domain.MetaChapter: "1",
			},
		},
	}
}

func TestIndexingService_IndexDocuments(t *testing.T) {
	index := mocks.NewMockVectorIndex()
	emb := mocks.NewMockEmbeddingService()
	source := mocks.NewMockDocumentSource(testDocuments()...)
	svc := NewIndexingService(index, source, createTestServices(emb), IndexingConfig{})

	report, err := svc.IndexDocuments(context.Background(), testDocuments())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !report.Success {
		t.Error("expected a successful report")
	}
	if report.IndexedCount != 2 || report.TotalDocuments != 2 {
		t.Errorf("expected 2/2 indexed, got %d/%d", report.IndexedCount, report.TotalDocuments)
	}

	count, err := svc.Count(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Both documents fit in a single chunk at the default size.
	if count != 2 {
		t.Errorf("expected 2 points, got %d", count)
	}
}

func TestIndexingService_ReindexingIsIdempotent(t *testing.T) {
	index := mocks.NewMockVectorIndex()
	emb := mocks.NewMockEmbeddingService()
	source := mocks.NewMockDocumentSource(testDocuments()...)
	svc := NewIndexingService(index, source, createTestServices(emb), IndexingConfig{})
	ctx := context.Background()

	if _, err := svc.IndexAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	first, _ := svc.Count(ctx)

	// Indexing the same source again must replace points, not append.
	if _, err := svc.IndexAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := svc.Count(ctx)

	if first != second {
		t.Errorf("expected point count unchanged after re-index: %d then %d", first, second)
	}
}

func TestIndexingService_Ingest(t *testing.T) {
	index := mocks.NewMockVectorIndex()
	emb := mocks.NewMockEmbeddingService()
	svc := NewIndexingService(index, mocks.NewMockDocumentSource(), createTestServices(emb), IndexingConfig{
		ChunkSize:    40,
		ChunkOverlap: 10,
	})

	text := strings.Repeat("energy flows through living systems. ", 6)
	result, err := svc.Ingest(context.Background(), text, "notes/energy", map[string]string{domain.MetaTitle: "Energy"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DocumentID != "notes/energy" {
		t.Errorf("unexpected document id %q", result.DocumentID)
	}
	if result.ChunksProcessed < 2 {
		t.Errorf("expected the text to span multiple chunks, got %d", result.ChunksProcessed)
	}
	if result.VectorsStored != result.ChunksProcessed {
		t.Errorf("expected all chunks stored, got %d of %d", result.VectorsStored, result.ChunksProcessed)
	}
}

func TestIndexingService_IngestGeneratesID(t *testing.T) {
	index := mocks.NewMockVectorIndex()
	emb := mocks.NewMockEmbeddingService()
	svc := NewIndexingService(index, mocks.NewMockDocumentSource(), createTestServices(emb), IndexingConfig{})

	result, err := svc.Ingest(context.Background(), "a short note about enzymes", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.DocumentID == "" {
		t.Error("expected a generated document id")
	}

	if _, err := svc.Ingest(context.Background(), "", "x", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty text, got %v", err)
	}
}

func TestIndexingService_SkipsChunkWhenEmbeddingMissing(t *testing.T) {
	index := mocks.NewMockVectorIndex()
	emb := mocks.NewMockEmbeddingService()
	svc := NewIndexingService(index, mocks.NewMockDocumentSource(), createTestServices(emb), IndexingConfig{
		ChunkSize:    40,
		ChunkOverlap: 0,
	})

	emb.SkipNext()

	text := strings.Repeat("cells divide through mitosis and meiosis. ", 3)
	result, err := svc.Ingest(context.Background(), text, "notes/division", nil)
	if err != nil {
		t.Fatalf("per-chunk failures must not abort, got %v", err)
	}
	if result.VectorsStored != result.ChunksProcessed-1 {
		t.Errorf("expected exactly one chunk skipped: stored %d of %d",
			result.VectorsStored, result.ChunksProcessed)
	}
}

func TestIndexingService_SystemicEmbeddingFailureAborts(t *testing.T) {
	index := mocks.NewMockVectorIndex()
	emb := mocks.NewMockEmbeddingService()
	svc := NewIndexingService(index, mocks.NewMockDocumentSource(), createTestServices(emb), IndexingConfig{})

	emb.FailNext()

	_, err := svc.IndexDocuments(context.Background(), testDocuments())
	if !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected ErrServiceUnavailable, got %v", err)
	}

	count, _ := svc.Count(context.Background())
	if count != 0 {
		t.Errorf("expected nothing stored after an aborted run, got %d points", count)
	}
}

func TestIndexingService_RequiresEmbedder(t *testing.T) {
	index := mocks.NewMockVectorIndex()
	svc := NewIndexingService(index, mocks.NewMockDocumentSource(), createTestServices(nil), IndexingConfig{})

	_, err := svc.IndexDocuments(context.Background(), testDocuments())
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured without an embedder, got %v", err)
	}

	_, err = svc.Ingest(context.Background(), "some text", "id", nil)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured without an embedder, got %v", err)
	}
}

func TestIndexingService_DeleteUnknownIDsIsNoOp(t *testing.T) {
	index := mocks.NewMockVectorIndex()
	emb := mocks.NewMockEmbeddingService()
	svc := NewIndexingService(index, mocks.NewMockDocumentSource(), createTestServices(emb), IndexingConfig{})
	ctx := context.Background()

	if _, err := svc.IndexDocuments(ctx, testDocuments()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, _ := svc.Count(ctx)

	if err := svc.Delete(ctx, []string{"never-indexed:0", "also-unknown:1"}); err != nil {
		t.Fatalf("deleting unknown ids must be a no-op, got %v", err)
	}

	after, _ := svc.Count(ctx)
	if before != after {
		t.Errorf("expected count unchanged, got %d then %d", before, after)
	}

	// Deleting a real point still works.
	if err := svc.Delete(ctx, []string{"docs/bio/cells.md:0"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	final, _ := svc.Count(ctx)
	if final != after-1 {
		t.Errorf("expected one point removed, got %d then %d", after, final)
	}
}

func TestIndexingService_Reindex(t *testing.T) {
	index := mocks.NewMockVectorIndex()
	emb := mocks.NewMockEmbeddingService()
	source := mocks.NewMockDocumentSource(testDocuments()...)
	svc := NewIndexingService(index, source, createTestServices(emb), IndexingConfig{})
	ctx := context.Background()

	if _, err := svc.IndexAll(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Shrink the source; a full reindex must not keep stale points around.
	source.Documents = source.Documents[:1]

	report, err := svc.Reindex(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.IndexedCount != 1 {
		t.Errorf("expected 1 document indexed, got %d", report.IndexedCount)
	}

	count, _ := svc.Count(ctx)
	if count != 1 {
		t.Errorf("expected stale points dropped, got %d", count)
	}
}
