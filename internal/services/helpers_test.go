package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/bookmarkai/bookmark-server/internal/searchindex"
	"github.com/bookmarkai/bookmark-server/internal/store"
	"github.com/bookmarkai/bookmark-server/internal/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "services.db"), "test_")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func newTestIndex(t *testing.T) *searchindex.Chromem {
	t.Helper()
	idx, err := searchindex.NewChromemIndex("", "Document", zerolog.Nop())
	require.NoError(t, err)
	return idx
}

// constEmbedder maps every text onto the same unit vector.
type constEmbedder struct{ err error }

func (e constEmbedder) Embed(context.Context, string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return []float32{1, 0}, nil
}
