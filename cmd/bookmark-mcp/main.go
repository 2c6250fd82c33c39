package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	zlog "github.com/rs/zerolog/log"

	"github.com/bookmarkai/bookmark-server/internal/config"
	"github.com/bookmarkai/bookmark-server/internal/factory"
	"github.com/bookmarkai/bookmark-server/internal/logger"
	"github.com/bookmarkai/bookmark-server/internal/mcpserver"
	"github.com/bookmarkai/bookmark-server/internal/services"
)

func main() {
	_ = godotenv.Load()
	// stdout carries the MCP protocol; logs go to stderr
	log := logger.NewWithWriter("bookmark-mcp", os.Stderr)
	zlog.Logger = log

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := factory.NewStore(ctx, cfg, logger.Component(log, "store"))
	if err != nil {
		log.Fatal().Err(err).Msg("Store adapter unavailable")
	}
	defer func() { _ = st.Close() }()

	idx, err := factory.NewSearchIndex(ctx, cfg, logger.Component(log, "searchindex"))
	if err != nil {
		log.Fatal().Err(err).Msg("Search index adapter unavailable")
	}
	embedder, err := factory.NewEmbeddingProvider(ctx, cfg, logger.Component(log, "embeddings"))
	if err != nil {
		log.Fatal().Err(err).Msg("Embedding provider unavailable")
	}

	h := mcpserver.NewHandler(
		services.NewSearchService(embedder, idx),
		services.NewConversationService(st, logger.Component(log, "conversations")),
	)
	s, err := mcpserver.NewServer("bookmark-mcp", "0.1.0", h)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register tools")
	}

	log.Info().Msg("Starting bookmark MCP server (stdio transport)")
	if err := server.ServeStdio(s); err != nil {
		log.Error().Err(err).Msg("Stdio server error")
	}
}
