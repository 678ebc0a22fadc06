package domain

// Filters restricts search results by metadata. A result matches when, for
// every key, its metadata value equals one of the listed values. A result
// whose metadata lacks a filter key is excluded.
type Filters map[string][]string

// Match reports whether the given metadata satisfies all filters.
func (f Filters) Match(metadata map[string]string) bool {
	for key, allowed := range f {
		value, ok := metadata[key]
		if !ok {
			return false
		}
		found := false
		for _, v := range allowed {
			if v == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SearchOptions configures a search request.
type SearchOptions struct {
	// K is the maximum number of results. Zero or negative means the
	// configured default.
	K int `json:"k"`

	// MinRelevance drops results scoring below it. Zero disables the
	// filter; callers wanting the configured default resolve it before
	// calling.
	MinRelevance float64 `json:"min_relevance"`

	// Filters restricts results by metadata (see Filters).
	Filters Filters `json:"filters,omitempty"`
}

// RankedSource is one search hit: the stored chunk's content and metadata
// plus its relevance score. Ephemeral, constructed per query.
type RankedSource struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
	Score    float64           `json:"score"`
}

// SourceRef is the citation form of a search hit attached to chat responses
// and persisted alongside assistant messages.
type SourceRef struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Chapter      string  `json:"chapter"`
	Section      string  `json:"section"`
	RelativePath string  `json:"relative_path"`
	Score        float64 `json:"similarity_score"`
}

// Ref converts a ranked source into its citation form.
func (r RankedSource) Ref() SourceRef {
	return SourceRef{
		ID:           r.ID,
		Title:        r.Metadata[MetaTitle],
		Chapter:      r.Metadata[MetaChapter],
		Section:      r.Metadata[MetaSection],
		RelativePath: r.Metadata[MetaRelativePath],
		Score:        r.Score,
	}
}
