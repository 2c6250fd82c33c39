package bookmarkservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/api"
	"github.com/bookmarkai/bookmark-server/internal/chat"
	"github.com/bookmarkai/bookmark-server/internal/chunker"
	"github.com/bookmarkai/bookmark-server/internal/config"
	"github.com/bookmarkai/bookmark-server/internal/contextwindow"
	emb "github.com/bookmarkai/bookmark-server/internal/embeddings"
	"github.com/bookmarkai/bookmark-server/internal/factory"
	"github.com/bookmarkai/bookmark-server/internal/health"
	"github.com/bookmarkai/bookmark-server/internal/ingest"
	"github.com/bookmarkai/bookmark-server/internal/llm"
	"github.com/bookmarkai/bookmark-server/internal/logger"
	"github.com/bookmarkai/bookmark-server/internal/metrics"
	"github.com/bookmarkai/bookmark-server/internal/searchindex"
	"github.com/bookmarkai/bookmark-server/internal/services"
	"github.com/bookmarkai/bookmark-server/internal/store"
	"github.com/bookmarkai/bookmark-server/internal/store/sqlstore"
	"github.com/bookmarkai/bookmark-server/internal/tokenizer"
)

// Run starts the bookmark service HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("bookmark-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("build_target", cfg.BuildTarget).
		Str("db_driver", cfg.DBDriver).
		Str("vector_store", cfg.VectorStore).
		Int("http_port", cfg.HTTPPort).
		Str("llm_provider", cfg.LLMProvider).
		Str("embed_provider", cfg.EmbedProvider).
		Msg("Bookmark service starting")

	// Create cancellable root context bound to SIGINT/SIGTERM
	ctx, stop := newServerContext()
	defer stop()

	// Initialize dependencies (store, index, embedder, generator, tokenizer)
	deps, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.close(log)

	// Owner handles live for the process and are dropped at shutdown
	handles, err := store.NewHandles(deps.store, cfg.OwnerCacheSize)
	if err != nil {
		return err
	}
	defer handles.Purge()

	// Start health checkers
	svcHealth := startHealthCheckers(ctx, cfg, log, deps)

	// Build router
	router, err := buildRouter(cfg, log, deps, handles, svcHealth)
	if err != nil {
		return err
	}

	// Block startup until dependencies report healthy; fail fast otherwise
	if err := waitUntilHealthy(ctx, cfg, svcHealth); err != nil {
		log.Error().Stack().Err(err).Msg("startup health check failed")
		return err
	}

	// HTTP server and serve
	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	// Graceful shutdown on context cancel or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Stack().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Stack().Err(err).Msg("HTTP server failed")
		return err
	}
}

type dependencies struct {
	store    *sqlstore.Store
	index    searchindex.Index
	embedder emb.Provider
	gen      llm.Generator
	tok      tokenizer.Tokenizer
}

func (d *dependencies) close(log zerolog.Logger) {
	for name, v := range map[string]any{"embedder": d.embedder, "generator": d.gen} {
		if c, ok := v.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Warn().Err(err).Str("component", name).Msg("close failed")
			}
		}
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			log.Warn().Err(err).Msg("store close failed")
		}
	}
}

// initDependencies constructs required components and enforces fail-fast on missing deps.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*dependencies, error) {
	d := &dependencies{}
	var err error

	d.store, err = factory.NewStore(ctx, cfg, logger.Component(log, "store"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("Store adapter unavailable")
		return nil, err
	}

	d.index, err = factory.NewSearchIndex(ctx, cfg, logger.Component(log, "searchindex"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("Search index adapter unavailable")
		d.close(log)
		return nil, err
	}

	d.embedder, err = factory.NewEmbeddingProvider(ctx, cfg, logger.Component(log, "embeddings"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("Embedding provider unavailable")
		d.close(log)
		return nil, err
	}

	d.gen, err = factory.NewGenerator(ctx, cfg, logger.Component(log, "llm"))
	if err != nil {
		log.Error().Stack().Err(err).Msg("Generation provider unavailable")
		d.close(log)
		return nil, err
	}

	d.tok = factory.NewTokenizer(cfg, log)
	return d, nil
}

// buildRouter wires services into the HTTP routes.
func buildRouter(cfg *config.Config, log zerolog.Logger, d *dependencies, handles *store.Handles, svcHealth *health.ServiceHealthChecker) (http.Handler, error) {
	conversations := services.NewConversationService(d.store, logger.Component(log, "conversations"))

	assembler := contextwindow.New(d.embedder, d.index, d.tok, contextwindow.Options{
		Budget:    cfg.MaxContextTokens,
		Certainty: cfg.ContextCertainty,
		Limit:     cfg.RetrievalLimit,
	}, logger.Component(log, "contextwindow"), metrics.ObserveRetrieval)

	orch := chat.New(assembler, d.gen, conversations, logger.Component(log, "chat"),
		chat.WithDrainTimeout(time.Duration(cfg.GenerationDrainTimeoutSeconds)*time.Second))

	splitter := chunker.New(chunker.WithChunkSize(cfg.ChunkSize), chunker.WithOverlap(cfg.ChunkOverlap))
	ingester := ingest.New(handles, splitter, d.embedder, d.index, logger.Component(log, "ingest"),
		ingest.WithRetryWindow(time.Duration(cfg.IndexRetryMaxElapsedSeconds)*time.Second))

	limiter, err := api.NewOwnerLimiter(cfg.ChatRatePerMinute, cfg.OwnerCacheSize*4)
	if err != nil {
		return nil, err
	}

	return api.NewRouter(api.Deps{
		Chat:          orch,
		Search:        services.NewSearchService(d.embedder, d.index),
		Conversations: conversations,
		Bookmarks:     services.NewBookmarkService(handles, d.index, logger.Component(log, "bookmarks")),
		Ingester:      ingester,
		Users:         services.NewUserService(d.store),
		Limiter:       limiter,
		SearchAlpha:   cfg.SearchAlpha,
		IsHealthy:     svcHealth.IsHealthy,
		Components:    svcHealth.Components,
	}), nil
}

// startHealthCheckers starts component checkers and the service-level aggregator.
// Components without a probe are not checked.
func startHealthCheckers(ctx context.Context, cfg *config.Config, log zerolog.Logger, d *dependencies) *health.ServiceHealthChecker {
	var checkers []health.HealthChecker
	probeTimeout := time.Duration(cfg.HealthProbeTimeoutSeconds) * time.Second
	interval := time.Duration(cfg.HealthIntervalSeconds) * time.Second

	add := func(name string, v any) {
		p, ok := v.(health.HealthPinger)
		if !ok {
			log.Debug().Str("component", name).Msg("no health probe; skipping")
			return
		}
		c := health.NewPingChecker(name, p, log, probeTimeout)
		go c.Start(ctx, interval)
		checkers = append(checkers, c)
	}
	add("store", d.store)
	add("index", d.index)
	add("embeddings", d.embedder)
	add("llm", d.gen)

	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	go svcHealth.Start(ctx, interval)
	return svcHealth
}

// newHTTPServer leaves WriteTimeout unset: chat responses stream for as long as generation runs.
func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.GetHTTPAddr(),
		Handler:           handler,
		ReadTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// calculateStartupHealthTimeout returns the startup health timeout in seconds,
// calculated as interval*2 with a minimum of 60 seconds.
func calculateStartupHealthTimeout(healthIntervalSeconds int) int {
	timeout := healthIntervalSeconds * 2
	if timeout < 60 {
		return 60
	}
	return timeout
}

// waitUntilHealthy blocks until service health is healthy or the startup window expires.
func waitUntilHealthy(ctx context.Context, cfg *config.Config, svcHealth *health.ServiceHealthChecker) error {
	// Health checkers start as unhealthy and need time to run their first check
	timeoutSeconds := calculateStartupHealthTimeout(cfg.HealthIntervalSeconds)
	deadline := time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within %d seconds", timeoutSeconds)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context that is cancelled on SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
