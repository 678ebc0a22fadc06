// Package chunker splits document text into fixed-size overlapping windows.
//
// The splitter is deliberately unaware of word and sentence boundaries: a
// window may cut a word in half. That keeps chunking a pure O(n) pass with
// predictable chunk counts, at the cost of occasionally awkward chunk edges.
package chunker

import (
	"fmt"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

// Split cuts text into windows of at most size characters where consecutive
// windows overlap by exactly overlap characters. Sizes are measured in runes,
// not bytes, so a window never cuts a multi-byte character in half. The final
// window may be shorter than size. Requires 0 <= overlap < size.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidInput, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got %d", domain.ErrInvalidInput, overlap)
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// ChunkDocument splits a document's content and wraps each window in a
// domain.Chunk with a deterministic id ("docID:position"). Deterministic ids
// are what make re-indexing idempotent: the same document always produces
// the same chunk ids, so upserts replace instead of duplicating.
func ChunkDocument(doc domain.Document, size, overlap int) ([]domain.Chunk, error) {
	windows, err := Split(doc.Content, size, overlap)
	if err != nil {
		return nil, err
	}

	step := size - overlap
	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		chunks = append(chunks, domain.Chunk{
			ID:         fmt.Sprintf("%s:%d", doc.ID, i),
			DocumentID: doc.ID,
			Content:    w,
			Position:   i,
			StartChar:  i * step,
		})
	}
	return chunks, nil
}
