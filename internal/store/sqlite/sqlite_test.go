package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarkai/bookmark-server/internal/store"
	"github.com/bookmarkai/bookmark-server/internal/store/storetest"
)

func makeSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	s, err := New(context.Background(), filepath.Join(t.TempDir(), "nested", "bookmarks.db"), "test_")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Compliance(t *testing.T) {
	storetest.Run(t, makeSQLiteStore)
}

func TestSQLiteStore_SchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookmarks.db")
	s, err := New(ctx, path, "test_")
	require.NoError(t, err)
	require.NoError(t, s.ApplySchema(ctx, schema))
	require.NoError(t, s.Close())

	s, err = New(ctx, path, "test_")
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.HealthPing(ctx))
}

func TestSQLiteStore_PrefixesIsolate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bookmarks.db")
	testStore, err := New(ctx, path, "test_")
	require.NoError(t, err)
	require.NoError(t, testStore.Users().Ensure(ctx, "u1"))
	require.NoError(t, testStore.Close())

	prod, err := New(ctx, path, "")
	require.NoError(t, err)
	defer prod.Close()
	_, err = prod.Users().Get(ctx, "u1")
	assert.Error(t, err)
}
