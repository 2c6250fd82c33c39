package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/config"
	emb "github.com/bookmarkai/bookmark-server/internal/embeddings"
	"github.com/bookmarkai/bookmark-server/internal/embeddings/gemini"
	"github.com/bookmarkai/bookmark-server/internal/embeddings/ollama"
	"github.com/bookmarkai/bookmark-server/internal/embeddings/openai"
)

// NewEmbeddingProvider creates an embedding provider based on config.
// Launches optional async warmup; returns provider immediately for fast startup.
func NewEmbeddingProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (emb.Provider, error) {
	var provider emb.Provider

	switch cfg.EmbedProvider {
	case "", "ollama":
		provider = ollama.New(cfg.OllamaURL, cfg.EmbedModel)
	case "openai":
		provider = openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbedModel)
	case "gemini":
		p, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, fmt.Errorf("unknown EMBED_PROVIDER: %s", cfg.EmbedProvider)
	}

	// Optional async warmup with configurable timeout; don't block startup
	go func() {
		warmupTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
		warmupCtx, cancel := context.WithTimeout(ctx, warmupTimeout)
		defer cancel()

		if vec, err := provider.Embed(warmupCtx, "factory-warmup-check"); err != nil || len(vec) == 0 {
			log.Warn().Err(err).Int("vec_len", len(vec)).
				Str("provider", cfg.EmbedProvider).Str("model", cfg.EmbedModel).
				Msg("embedding provider warmup failed")
		} else {
			log.Debug().Str("provider", cfg.EmbedProvider).Str("model", cfg.EmbedModel).
				Msg("embedding provider warmup completed")
		}
	}()

	return provider, nil
}
