package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_OverlapCarriesTrailingPiece(t *testing.T) {
	s := New(WithChunkSize(9), WithOverlap(4))
	got := s.Split("aaaa.bbbb.cccc")
	assert.Equal(t, []string{"aaaa.bbbb", "bbbb.cccc"}, got)
}

func TestSplit_NoOverlap(t *testing.T) {
	s := New(WithChunkSize(9), WithOverlap(0))
	got := s.Split("aaaa.bbbb.cccc")
	assert.Equal(t, []string{"aaaa.bbbb", "cccc"}, got)
}

func TestSplit_EmptyAndSeparatorOnly(t *testing.T) {
	s := New()
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("..."))
	assert.Equal(t, []string{"x"}, s.Split("..x.."))
}

func TestSplit_OversizedPieceStandsAlone(t *testing.T) {
	s := New(WithChunkSize(5), WithOverlap(0))
	got := s.Split("abcdefghij.xy")
	assert.Equal(t, []string{"abcdefghij", "xy"}, got)
}

func TestSplit_ChunksRespectSizeWhenPiecesFit(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps. ", 50)
	s := New(WithChunkSize(120), WithOverlap(30))
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 120)
		assert.Equal(t, strings.TrimSpace(c), c)
	}
}

func TestNew_ClampsOverlap(t *testing.T) {
	s := New(WithChunkSize(100), WithOverlap(100))
	assert.Equal(t, 25, s.overlap)
}

func TestChunk_StampsIdentity(t *testing.T) {
	s := New(WithChunkSize(9), WithOverlap(0))
	chunks := s.Chunk("aaaa.bbbb.cccc", "T", "https://x", "owner-1", "src-1")
	require.Len(t, chunks, 2)
	for i, c := range chunks {
		assert.Equal(t, "owner-1", c.OwnerID)
		assert.Equal(t, "src-1", c.SourceID)
		assert.Equal(t, "T", c.Title)
		assert.Equal(t, "https://x", c.URL)
		assert.Equal(t, i, c.Index)
	}
}
