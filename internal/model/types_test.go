package model

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUsedContext_Shapes(t *testing.T) {
	objects := `[{"url":"https://a","title":"A","id":"s1","similarity_score":0.9}]`
	got, err := DecodeUsedContext(&objects)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)
	require.NotNil(t, got[0].SimilarityScore)
	assert.InDelta(t, 0.9, *got[0].SimilarityScore, 1e-9)

	urls := `["https://a","https://b"]`
	got, err = DecodeUsedContext(&urls)
	require.NoError(t, err)
	assert.Equal(t, []ItemMetadata{{URL: "https://a"}, {URL: "https://b"}}, got)

	got, err = DecodeUsedContext(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestEncodeUsedContext_NilStaysNil(t *testing.T) {
	s, err := EncodeUsedContext(nil)
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = EncodeUsedContext([]ItemMetadata{})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "[]", *s)
}

func TestWrapKeepsKindAndCause(t *testing.T) {
	err := Wrap(ErrRetrievalFailure, "search", io.ErrUnexpectedEOF)
	assert.True(t, errors.Is(err, ErrRetrievalFailure))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	assert.Nil(t, Wrap(ErrRetrievalFailure, "search", nil))

	inner := Invalid("alpha %v", 2)
	wrapped := Wrap(ErrInvalidArgument, "search", inner)
	assert.True(t, errors.Is(wrapped, ErrInvalidArgument))
	assert.Contains(t, wrapped.Error(), "alpha 2")
}
