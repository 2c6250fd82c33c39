package searchindex

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarkai/bookmark-server/internal/model"
)

func newChromem(t *testing.T) *Chromem {
	t.Helper()
	idx, err := NewChromemIndex("", "Document", zerolog.Nop())
	require.NoError(t, err)
	return idx
}

func chunk(owner, source, content string, i int) model.Chunk {
	return model.Chunk{Content: content, Title: "title-" + source, URL: "https://example.com/" + source, OwnerID: owner, SourceID: source, Index: i}
}

// Query vector (1,0). (0.8,0.6) has cos 0.8 -> certainty 0.9; (0.5,0.866) has cos 0.5 -> certainty 0.75.
var (
	queryVec = []float32{1, 0}
	vecA     = []float32{0.8, 0.6}
	vecB     = []float32{0.5, 0.8660254}
)

func TestChromem_CertaintyThresholdAndLimit(t *testing.T) {
	ctx := context.Background()
	idx := newChromem(t)
	require.NoError(t, idx.AddChunks(ctx,
		[]model.Chunk{chunk("u1", "A", "alpha text", 0), chunk("u1", "B", "beta text", 0)},
		[][]float32{vecA, vecB}))

	got, err := idx.Search(ctx, Query{Text: "q", Vector: queryVec, OwnerID: "u1", Mode: ModeSemantic, Certainty: 0.8, Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].SourceID)
	require.NotNil(t, got[0].Score)
	assert.InDelta(t, 0.9, *got[0].Score, 1e-3)
}

func TestChromem_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	idx := newChromem(t)
	require.NoError(t, idx.AddChunks(ctx,
		[]model.Chunk{chunk("u1", "A", "shared words here", 0), chunk("u2", "B", "shared words here", 0)},
		[][]float32{vecA, vecA}))

	for _, mode := range []Mode{ModeSemantic, ModeHybrid} {
		got, err := idx.Search(ctx, Query{Text: "shared words", Vector: queryVec, OwnerID: "u2", Mode: mode, Certainty: 0.1, Alpha: 0.25, Limit: 10})
		require.NoError(t, err)
		require.Len(t, got, 1, mode.String())
		assert.Equal(t, "B", got[0].SourceID, mode.String())
	}
}

func TestChromem_SourceFilter(t *testing.T) {
	ctx := context.Background()
	idx := newChromem(t)
	require.NoError(t, idx.AddChunks(ctx,
		[]model.Chunk{chunk("u1", "A", "a", 0), chunk("u1", "B", "b", 0), chunk("u1", "C", "c", 0)},
		[][]float32{vecA, vecA, vecA}))

	got, err := idx.Search(ctx, Query{Vector: queryVec, OwnerID: "u1", Certainty: 0.5, SourceIDs: []string{"B"}, FilterBySource: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "B", got[0].SourceID)

	_, err = idx.Search(ctx, Query{Vector: queryVec, OwnerID: "u1", Certainty: 0.5, FilterBySource: true})
	assert.True(t, errors.Is(err, model.ErrInvalidArgument))
}

func TestChromem_HybridBlendsLexical(t *testing.T) {
	ctx := context.Background()
	idx := newChromem(t)
	require.NoError(t, idx.AddChunks(ctx,
		[]model.Chunk{chunk("u1", "vec", "nothing relevant", 0), chunk("u1", "lex", "golang channels explained", 0)},
		[][]float32{vecA, vecB}))

	got, err := idx.Search(ctx, Query{Text: "golang channels", Vector: queryVec, OwnerID: "u1", Mode: ModeHybrid, Alpha: 0.25})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "lex", got[0].SourceID)
	assert.GreaterOrEqual(t, *got[0].Score, *got[1].Score)
}

func TestChromem_DeleteBySources(t *testing.T) {
	ctx := context.Background()
	idx := newChromem(t)
	require.NoError(t, idx.AddChunks(ctx,
		[]model.Chunk{chunk("u1", "A", "a0", 0), chunk("u1", "A", "a1", 1), chunk("u1", "B", "b", 0), chunk("u2", "A", "other owner", 0)},
		[][]float32{vecA, vecA, vecA, vecA}))
	require.Equal(t, 4, idx.Count())

	require.NoError(t, idx.DeleteBySources(ctx, "u1", []string{"A"}))
	assert.Equal(t, 2, idx.Count())

	got, err := idx.Search(ctx, Query{Vector: queryVec, OwnerID: "u2", Certainty: 0.1})
	require.NoError(t, err)
	require.Len(t, got, 1, "other owner's chunk with the same source id must survive")

	require.NoError(t, idx.DeleteBySources(ctx, "u1", nil))
	assert.True(t, errors.Is(idx.DeleteBySources(ctx, "", []string{"B"}), model.ErrInvalidArgument))
}

func TestChromem_ReindexOverwrites(t *testing.T) {
	ctx := context.Background()
	idx := newChromem(t)
	c := chunk("u1", "A", "v1", 0)
	require.NoError(t, idx.AddChunks(ctx, []model.Chunk{c}, [][]float32{vecA}))
	c.Content = "v2"
	require.NoError(t, idx.AddChunks(ctx, []model.Chunk{c}, [][]float32{vecA}))
	assert.Equal(t, 1, idx.Count())
}

func TestQueryValidate(t *testing.T) {
	base := Query{Vector: queryVec, OwnerID: "u1"}
	assert.NoError(t, base.Validate())

	q := base
	q.OwnerID = ""
	assert.True(t, errors.Is(q.Validate(), model.ErrInvalidArgument))

	q = base
	q.Mode, q.Alpha = ModeHybrid, 1.2
	assert.True(t, errors.Is(q.Validate(), model.ErrInvalidArgument))

	q = base
	q.Vector = nil
	assert.True(t, errors.Is(q.Validate(), model.ErrInvalidArgument))
}
