package domain

// Well-known metadata keys. The loader guarantees these are present on every
// document it produces; other keys are passed through untouched.
const (
	MetaTitle        = "title"
	MetaChapter      = "chapter"
	MetaSection      = "section"
	MetaRelativePath = "relative_path"
	MetaSource       = "source"
)

// Document is a unit of ingested content. Documents are immutable once
// produced by the loader and are consumed exactly once by the indexer.
type Document struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Title returns the document title from metadata, or "" if unset.
func (d *Document) Title() string {
	return d.Metadata[MetaTitle]
}

// Chunk is a bounded substring of a document's content, produced at indexing
// time. Consecutive chunks from the same document overlap by the configured
// overlap, except possibly the final chunk.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Content    string `json:"content"`
	Position   int    `json:"position"`
	StartChar  int    `json:"start_char"`
}

// Metric identifies the distance metric of a vector collection.
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricDot    Metric = "dot"
	MetricEuclid Metric = "euclid"
)

// Payload carries a chunk's content and metadata alongside its vector in the
// index. It is what search returns to callers.
type Payload struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// Point is the unit stored in the vector index. Points are owned by the
// index: created on upsert, replaced by re-upsert with the same id, removed
// by explicit delete or collection drop.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// ScoredPoint is a point returned by a similarity search together with its
// metric-native score. Higher is always more similar.
type ScoredPoint struct {
	ID      string  `json:"id"`
	Payload Payload `json:"payload"`
	Score   float64 `json:"score"`
}
