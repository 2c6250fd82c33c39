package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

func f(v float64) *float64 { return &v }

func TestDedupeByID_FirstWinsAndNilLast(t *testing.T) {
	in := []model.ItemMetadata{
		{ID: "a", URL: "first-a", SimilarityScore: f(0.5)},
		{ID: "b", SimilarityScore: nil},
		{ID: "a", URL: "second-a", SimilarityScore: f(0.99)},
		{ID: "c", SimilarityScore: f(0.7)},
	}
	out := DedupeByID(in)
	require.Len(t, out, 3)
	assert.Equal(t, "c", out[0].ID)
	assert.Equal(t, "first-a", out[1].URL)
	assert.Equal(t, "b", out[2].ID)
}

func TestSearch_HybridAndSemantic(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t)
	require.NoError(t, idx.AddChunks(ctx, []model.Chunk{
		{Content: "golang channels", Title: "Go", URL: "https://go.test", OwnerID: "u1", SourceID: "go"},
		{Content: "more golang", Title: "Go", URL: "https://go.test", OwnerID: "u1", SourceID: "go", Index: 1},
		{Content: "bread recipes", Title: "Bread", URL: "https://bread.test", OwnerID: "u1", SourceID: "bread"},
		{Content: "golang for someone else", OwnerID: "u2", SourceID: "other"},
	}, [][]float32{{1, 0}, {1, 0}, {1, 0}, {1, 0}}))
	svc := NewSearchService(constEmbedder{}, idx)

	got, err := svc.Search(ctx, "u1", SearchRequest{Query: "golang", UseHybrid: true, Alpha: DefaultSearchAlpha, Limit: DefaultSearchLimit})
	require.NoError(t, err)
	require.Len(t, got, 2, "one entry per document")
	assert.Equal(t, "go", got[0].ID)

	got, err = svc.Search(ctx, "u1", SearchRequest{Query: "golang", Certainty: DefaultSearchCertainty, Limit: DefaultSearchLimit})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	for _, m := range got {
		assert.NotEqual(t, "other", m.ID)
	}
}

func TestSearch_Errors(t *testing.T) {
	svc := NewSearchService(constEmbedder{}, newTestIndex(t))
	_, err := svc.Search(context.Background(), "u1", SearchRequest{Query: "  "})
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))

	svc = NewSearchService(constEmbedder{err: errors.New("ollama down")}, newTestIndex(t))
	_, err = svc.Search(context.Background(), "u1", SearchRequest{Query: "q"})
	assert.True(t, errors.Is(err, model.ErrRetrievalFailure))
}
