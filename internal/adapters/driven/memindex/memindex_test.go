package memindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectern-ai/lectern-core/internal/core/domain"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	x := New()
	created, err := x.EnsureCollection(context.Background(), 3, domain.MetricCosine)
	require.NoError(t, err)
	require.True(t, created)
	return x
}

func point(id string, vector []float32) domain.Point {
	return domain.Point{
		ID:      id,
		Vector:  vector,
		Payload: domain.Payload{Content: "content of " + id},
	}
}

func TestIndex_EnsureCollection(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	created, err := x.EnsureCollection(ctx, 3, domain.MetricCosine)
	require.NoError(t, err)
	assert.False(t, created, "second ensure must be a no-op")

	_, err = x.EnsureCollection(ctx, 5, domain.MetricCosine)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndex_UpsertReplacesByID(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Upsert(ctx, []domain.Point{point("a", []float32{1, 0, 0})}))
	require.NoError(t, x.Upsert(ctx, []domain.Point{point("a", []float32{0, 1, 0})}))

	count, err := x.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "upsert with the same id must replace")

	// The replacement vector is live: a query along the new axis wins.
	results, err := x.Search(ctx, []float32{0, 1, 0}, 1, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestIndex_UpsertValidatesDimension(t *testing.T) {
	x := newTestIndex(t)
	err := x.Upsert(context.Background(), []domain.Point{point("a", []float32{1, 0})})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestIndex_UpsertRequiresCollection(t *testing.T) {
	x := New()
	err := x.Upsert(context.Background(), []domain.Point{point("a", []float32{1, 0, 0})})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestIndex_SearchOrdersByCosine(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Upsert(ctx, []domain.Point{
		point("aligned", []float32{2, 0, 0}), // normalization makes magnitude irrelevant
		point("diagonal", []float32{1, 1, 0}),
		point("orthogonal", []float32{0, 0, 1}),
	}))

	results, err := x.Search(ctx, []float32{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "aligned", results[0].ID)
	assert.Equal(t, "diagonal", results[1].ID)
	assert.Equal(t, "orthogonal", results[2].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 0.7071, results[1].Score, 1e-3)
}

func TestIndex_SearchThresholdAndK(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Upsert(ctx, []domain.Point{
		point("a", []float32{1, 0, 0}),
		point("b", []float32{1, 1, 0}),
		point("c", []float32{0, 0, 1}),
	}))

	results, err := x.Search(ctx, []float32{1, 0, 0}, 10, 0.9)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)

	results, err = x.Search(ctx, []float32{1, 0, 0}, 2, 0)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestIndex_SearchTieBreaksByID(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Upsert(ctx, []domain.Point{
		point("zebra", []float32{1, 0, 0}),
		point("alpha", []float32{1, 0, 0}),
	}))

	results, err := x.Search(ctx, []float32{1, 0, 0}, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "alpha", results[0].ID)
	assert.Equal(t, "zebra", results[1].ID)
}

func TestIndex_SearchEmptyCollection(t *testing.T) {
	x := newTestIndex(t)
	results, err := x.Search(context.Background(), []float32{1, 0, 0}, 5, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestIndex_DeleteUnknownIsNoOp(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Upsert(ctx, []domain.Point{point("a", []float32{1, 0, 0})}))

	require.NoError(t, x.Delete(ctx, []string{"missing", "also-missing"}))
	count, err := x.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, x.Delete(ctx, []string{"a"}))
	count, err = x.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestIndex_ListInsertionOrder(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Upsert(ctx, []domain.Point{
		point("first", []float32{1, 0, 0}),
		point("second", []float32{0, 1, 0}),
		point("third", []float32{0, 0, 1}),
	}))

	points, err := x.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "first", points[0].ID)
	assert.Equal(t, "third", points[2].ID)

	limited, err := x.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestIndex_DropResetsEverything(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, x.Upsert(ctx, []domain.Point{point("a", []float32{1, 0, 0})}))
	require.NoError(t, x.Drop(ctx))

	count, err := x.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	// A new collection with a different dimension is now fine.
	created, err := x.EnsureCollection(ctx, 8, domain.MetricCosine)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestIndex_EuclideanMetric(t *testing.T) {
	x := New()
	ctx := context.Background()
	_, err := x.EnsureCollection(ctx, 2, domain.MetricEuclid)
	require.NoError(t, err)

	require.NoError(t, x.Upsert(ctx, []domain.Point{
		point("near", []float32{1, 1}),
		point("far", []float32{10, 10}),
	}))

	results, err := x.Search(ctx, []float32{0, 0}, 2, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "near", results[0].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestIndex_SearchValidatesQueryDimension(t *testing.T) {
	x := newTestIndex(t)
	ctx := context.Background()
	require.NoError(t, x.Upsert(ctx, []domain.Point{point("a", []float32{1, 0, 0})}))

	_, err := x.Search(ctx, []float32{1, 0}, 5, 0)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}
