// Package qdrant is a REST adapter for a networked Qdrant collection.
// Qdrant only accepts integer or UUID point ids, so the chunk id is mapped
// to a deterministic UUID and kept verbatim in the payload; the mapping is
// stable, which preserves upsert idempotence.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
	"github.com/lectern-ai/lectern-core/internal/core/ports/driven"
)

// Ensure Index implements VectorIndex
var _ driven.VectorIndex = (*Index)(nil)

// payloadKeyID carries the original chunk id inside the qdrant payload.
const payloadKeyID = "id"

var qdrantDistances = map[domain.Metric]string{
	domain.MetricCosine: "Cosine",
	domain.MetricDot:    "Dot",
	domain.MetricEuclid: "Euclid",
}

// Config configures the qdrant adapter.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// Index talks to one Qdrant collection over its REST API.
type Index struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// New creates a new qdrant-backed vector index.
func New(cfg Config) (*Index, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrNotConfigured)
	}
	if cfg.Collection == "" {
		cfg.Collection = "lectern"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Index{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// EnsureCollection creates the collection if it does not exist. An existing
// collection with a different vector size is an error.
func (x *Index) EnsureCollection(ctx context.Context, dimension int, metric domain.Metric) (bool, error) {
	if dimension <= 0 {
		return false, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidInput, dimension)
	}
	distance, ok := qdrantDistances[metric]
	if !ok {
		return false, fmt.Errorf("%w: unsupported metric %q", domain.ErrInvalidInput, metric)
	}

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := x.do(ctx, http.MethodGet, x.collectionPath(""), nil, &info)
	if err != nil {
		return false, err
	}
	if status == http.StatusOK {
		if got := info.Result.Config.Params.Vectors.Size; got != dimension {
			return false, fmt.Errorf("%w: collection %q has dimension %d, requested %d",
				domain.ErrDimensionMismatch, x.collection, got, dimension)
		}
		return false, nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": distance,
		},
	}
	if _, err := x.do(ctx, http.MethodPut, x.collectionPath(""), body, nil); err != nil {
		return false, err
	}
	return true, nil
}

// Upsert inserts or replaces points. The write waits for durability so a
// following search sees the points.
func (x *Index) Upsert(ctx context.Context, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}
	qdrantPoints := make([]map[string]any, len(points))
	for i, p := range points {
		payload := map[string]any{
			payloadKeyID: p.ID,
			"content":    p.Payload.Content,
			"metadata":   p.Payload.Metadata,
		}
		qdrantPoints[i] = map[string]any{
			"id":      pointUUID(p.ID),
			"vector":  p.Vector,
			"payload": payload,
		}
	}
	_, err := x.do(ctx, http.MethodPut, x.collectionPath("/points?wait=true"),
		map[string]any{"points": qdrantPoints}, nil)
	return err
}

type scoredPayload struct {
	ID       string            `json:"id"`
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

func (p scoredPayload) toDomain(score float64) domain.ScoredPoint {
	return domain.ScoredPoint{
		ID:      p.ID,
		Payload: domain.Payload{Content: p.Content, Metadata: p.Metadata},
		Score:   score,
	}
}

// Search runs an ANN query, best first.
func (x *Index) Search(ctx context.Context, vector []float32, k int, scoreThreshold float64) ([]domain.ScoredPoint, error) {
	if k <= 0 {
		k = 5
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if scoreThreshold > 0 {
		body["score_threshold"] = scoreThreshold
	}

	var resp struct {
		Result []struct {
			Score   float64       `json:"score"`
			Payload scoredPayload `json:"payload"`
		} `json:"result"`
	}
	if _, err := x.do(ctx, http.MethodPost, x.collectionPath("/points/search"), body, &resp); err != nil {
		return nil, err
	}

	results := make([]domain.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, r.Payload.toDomain(r.Score))
	}
	return results, nil
}

// Delete removes points by chunk id. Qdrant ignores unknown ids.
func (x *Index) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	qdrantIDs := make([]string, len(ids))
	for i, id := range ids {
		qdrantIDs[i] = pointUUID(id)
	}
	_, err := x.do(ctx, http.MethodPost, x.collectionPath("/points/delete?wait=true"),
		map[string]any{"points": qdrantIDs}, nil)
	return err
}

// Count returns the exact number of points in the collection.
func (x *Index) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if _, err := x.do(ctx, http.MethodPost, x.collectionPath("/points/count"),
		map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

// List scrolls stored points with their payloads, up to limit.
func (x *Index) List(ctx context.Context, limit int) ([]domain.ScoredPoint, error) {
	if limit <= 0 {
		limit = 1000
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload scoredPayload `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if _, err := x.do(ctx, http.MethodPost, x.collectionPath("/points/scroll"),
		map[string]any{"limit": limit, "with_payload": true}, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.ScoredPoint, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		out = append(out, p.Payload.toDomain(0))
	}
	return out, nil
}

// Drop deletes the whole collection.
func (x *Index) Drop(ctx context.Context) error {
	_, err := x.do(ctx, http.MethodDelete, x.collectionPath(""), nil, nil)
	return err
}

// HealthCheck verifies the qdrant server is reachable.
func (x *Index) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, x.url+"/readyz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := x.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: qdrant readyz returned %s", domain.ErrBackendUnavailable, resp.Status)
	}
	return nil
}

func (x *Index) collectionPath(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", x.url, x.collection, suffix)
}

// do issues one JSON request. Transport failures and 5xx wrap
// ErrBackendUnavailable; a 404 is returned as the status without an error so
// callers can treat "collection missing" as a state, not a failure.
func (x *Index) do(ctx context.Context, method, url string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if x.apiKey != "" {
		req.Header.Set("api-key", x.apiKey)
	}

	resp, err := x.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return resp.StatusCode, fmt.Errorf("%w: qdrant %s %s returned %s",
			domain.ErrBackendUnavailable, method, url, resp.Status)
	}
	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse qdrant response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

// pointUUID derives a stable UUID for a chunk id.
func pointUUID(id string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)).String()
}
