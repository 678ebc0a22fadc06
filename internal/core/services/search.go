package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driving"
	"github.com/lectern-ai/lectern-core/internal/runtime"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// keywordScanLimit caps how many points the keyword leg scrolls through.
const keywordScanLimit = 1000

// SearchConfig tunes the searcher. Zero values take the defaults below.
type SearchConfig struct {
	DefaultK       int     // result count when the caller passes none (default 5)
	SemanticWeight float64 // hybrid weight for the semantic score (default 0.7)
	KeywordWeight  float64 // hybrid weight for the keyword score (default 0.3)
	Logger         *slog.Logger
}

// searchService implements the SearchService interface
type searchService struct {
	index    driven.VectorIndex
	services *runtime.Services // Dynamic AI services

	defaultK       int
	semanticWeight float64
	keywordWeight  float64
	logger         *slog.Logger
}

// NewSearchService creates a new SearchService.
// The embedding service is accessed dynamically via runtime.Services.
func NewSearchService(index driven.VectorIndex, services *runtime.Services, cfg SearchConfig) driving.SearchService {
	if cfg.DefaultK <= 0 {
		cfg.DefaultK = 5
	}
	if cfg.SemanticWeight <= 0 {
		cfg.SemanticWeight = 0.7
	}
	if cfg.KeywordWeight <= 0 {
		cfg.KeywordWeight = 0.3
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &searchService{
		index:          index,
		services:       services,
		defaultK:       cfg.DefaultK,
		semanticWeight: cfg.SemanticWeight,
		keywordWeight:  cfg.KeywordWeight,
		logger:         cfg.Logger,
	}
}

// Search performs semantic retrieval over the vector index.
// Reads degrade to empty results when the embedder or the backend is
// unavailable; the degradation is latched in the runtime config and logged.
func (s *searchService) Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.RankedSource, error) {
	if opts.K <= 0 {
		opts.K = s.defaultK
	}

	embeddingService := s.services.EmbeddingService()
	if embeddingService == nil {
		s.degrade("embedding service not configured", nil)
		return []domain.RankedSource{}, nil
	}

	queryEmbedding, err := embeddingService.EmbedQuery(ctx, query)
	if err != nil {
		s.degrade("query embedding failed", err)
		return []domain.RankedSource{}, nil
	}

	// Over-fetch when metadata filters will discard results afterwards.
	fetchK := opts.K
	if len(opts.Filters) > 0 {
		fetchK = opts.K * 4
	}

	hits, err := s.index.Search(ctx, queryEmbedding, fetchK, opts.MinRelevance)
	if err != nil {
		s.degrade("vector index unreachable", err)
		return []domain.RankedSource{}, nil
	}

	results := make([]domain.RankedSource, 0, len(hits))
	for _, hit := range hits {
		if !opts.Filters.Match(hit.Payload.Metadata) {
			continue
		}
		results = append(results, domain.RankedSource{
			ID:       hit.ID,
			Content:  hit.Payload.Content,
			Metadata: hit.Payload.Metadata,
			Score:    hit.Score,
		})
	}

	sortRanked(results)
	if len(results) > opts.K {
		results = results[:opts.K]
	}
	return results, nil
}

// HybridSearch fuses semantic similarity with lexical matching on titles and
// content. Any failure in the keyword leg falls back to plain Search.
func (s *searchService) HybridSearch(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.RankedSource, error) {
	if opts.K <= 0 {
		opts.K = s.defaultK
	}

	// Semantic leg casts a wider net without a relevance cut; the merged
	// scores are re-filtered below.
	semOpts := opts
	semOpts.K = opts.K * 2
	semOpts.MinRelevance = 0
	semOpts.Filters = nil
	semantic, err := s.Search(ctx, query, semOpts)
	if err != nil {
		return nil, err
	}

	keyword, err := s.keywordSearch(ctx, query, opts.K*2)
	if err != nil {
		s.logger.Warn("keyword search failed, falling back to semantic only", "error", err)
		return s.Search(ctx, query, opts)
	}

	merged := make([]domain.RankedSource, 0, len(semantic)+len(keyword))
	seen := make(map[string]int, len(semantic))
	for _, r := range semantic {
		r.Score = s.semanticWeight * r.Score
		seen[r.ID] = len(merged)
		merged = append(merged, r)
	}
	for _, r := range keyword {
		if i, ok := seen[r.ID]; ok {
			merged[i].Score += s.keywordWeight * r.Score
		} else {
			r.Score = s.keywordWeight * r.Score
			merged = append(merged, r)
		}
	}

	results := make([]domain.RankedSource, 0, len(merged))
	for _, r := range merged {
		if r.Score > 1.0 {
			r.Score = 1.0
		}
		if opts.MinRelevance > 0 && r.Score < opts.MinRelevance {
			continue
		}
		if !opts.Filters.Match(r.Metadata) {
			continue
		}
		results = append(results, r)
	}

	sortRanked(results)
	if len(results) > opts.K {
		results = results[:opts.K]
	}
	return results, nil
}

// keywordSearch scores stored chunks by occurrences of the whole query
// phrase: title hits weigh 0.3 each, content hits 0.1, clipped at 1.0. The
// top limit matches are returned. Matching the full phrase rather than
// individual words keeps stop words like "is" from saturating every score.
func (s *searchService) keywordSearch(ctx context.Context, query string, limit int) ([]domain.RankedSource, error) {
	phrase := strings.ToLower(strings.TrimSpace(query))
	if phrase == "" {
		return nil, nil
	}

	points, err := s.index.List(ctx, keywordScanLimit)
	if err != nil {
		return nil, fmt.Errorf("listing index points: %w", err)
	}

	var results []domain.RankedSource
	for _, p := range points {
		title := strings.ToLower(p.Payload.Metadata[domain.MetaTitle])
		content := strings.ToLower(p.Payload.Content)

		titleHits := strings.Count(title, phrase)
		contentHits := strings.Count(content, phrase)
		score := float64(titleHits)*0.3 + float64(contentHits)*0.1
		if score == 0 {
			continue
		}
		if score > 1.0 {
			score = 1.0
		}
		results = append(results, domain.RankedSource{
			ID:       p.ID,
			Content:  p.Payload.Content,
			Metadata: p.Payload.Metadata,
			Score:    score,
		})
	}

	sortRanked(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// degrade latches the degraded-search flag and logs why the read path
// returned nothing. Write paths never come through here.
func (s *searchService) degrade(reason string, err error) {
	s.services.Config().MarkSearchDegraded()
	if err != nil {
		s.logger.Warn("search degraded to empty results", "reason", reason, "error", err)
	} else {
		s.logger.Warn("search degraded to empty results", "reason", reason)
	}
}

// sortRanked orders by score descending; equal scores break ties by
// ascending id so result order is deterministic.
func sortRanked(results []domain.RankedSource) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
}
