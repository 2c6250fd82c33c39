package bookmarkservice

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookmarkai/bookmark-server/internal/config"
	"github.com/bookmarkai/bookmark-server/internal/health"
	"github.com/bookmarkai/bookmark-server/internal/searchindex"
	"github.com/bookmarkai/bookmark-server/internal/store"
	"github.com/bookmarkai/bookmark-server/internal/store/sqlite"
	"github.com/bookmarkai/bookmark-server/internal/tokenizer"
)

func TestCalculateStartupHealthTimeout(t *testing.T) {
	assert.Equal(t, 60, calculateStartupHealthTimeout(5))
	assert.Equal(t, 60, calculateStartupHealthTimeout(30))
	assert.Equal(t, 120, calculateStartupHealthTimeout(60))
}

func TestWaitUntilHealthy_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := health.NewServiceHealthChecker(zerolog.Nop())
	err := waitUntilHealthy(ctx, config.NewForTesting(), svc)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewHTTPServer_AllowsLongStreams(t *testing.T) {
	srv := newHTTPServer(context.Background(), config.NewForTesting(), http.NotFoundHandler())
	assert.Equal(t, ":8080", srv.Addr)
	assert.Zero(t, srv.WriteTimeout)
}

type pingEmbedder struct{}

func (pingEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{1, 0}, nil }
func (pingEmbedder) HealthPing(context.Context) error                 { return nil }

func TestBuildRouter_ServesHealthAndRequiresOwner(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := config.NewForTesting()

	st, err := sqlite.New(ctx, filepath.Join(t.TempDir(), "run.db"), cfg.TablePrefix())
	require.NoError(t, err)
	idx, err := searchindex.NewChromemIndex("", "Document", zerolog.Nop())
	require.NoError(t, err)
	d := &dependencies{store: st, index: idx, embedder: pingEmbedder{}, tok: tokenizer.Whitespace{}}
	defer d.close(zerolog.Nop())

	handles, err := store.NewHandles(st, cfg.OwnerCacheSize)
	require.NoError(t, err)

	cfg.HealthIntervalSeconds = 1
	svc := startHealthCheckers(ctx, cfg, zerolog.Nop(), d)
	require.Eventually(t, svc.IsHealthy, 5*time.Second, 50*time.Millisecond)
	assert.Len(t, svc.Components(), 3, "generator without a probe is skipped")

	router, err := buildRouter(cfg, zerolog.Nop(), d, handles, svc)
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"healthy"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/conversations", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
