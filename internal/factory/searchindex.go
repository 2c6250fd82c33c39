package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/config"
	"github.com/bookmarkai/bookmark-server/internal/searchindex"
)

// NewSearchIndex creates the vector index selected by cfg.VectorStore.
// Weaviate bootstraps its class asynchronously with a short timeout; the index is
// returned immediately for fast startup.
func NewSearchIndex(ctx context.Context, cfg *config.Config, log zerolog.Logger) (searchindex.Index, error) {
	switch cfg.VectorStore {
	case "chromem":
		return searchindex.NewChromemIndex(cfg.ChromemPath, cfg.WeaviateClass, log)

	case "weaviate":
		if cfg.WeaviateURL == "" {
			return nil, fmt.Errorf("search index URL not configured - required for service operation")
		}
		idx, err := searchindex.NewWeaviateIndex(cfg.WeaviateURL, cfg.WeaviateAPIKey, cfg.WeaviateClass, log)
		if err != nil {
			return nil, err
		}

		// Async bootstrap with configurable timeout; don't block startup
		go func() {
			bootstrapTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
			bootstrapCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
			defer cancel()

			if err := idx.Bootstrap(bootstrapCtx); err != nil {
				log.Warn().Err(err).Str("url", cfg.WeaviateURL).Msg("search index bootstrap failed")
			} else {
				log.Debug().Str("url", cfg.WeaviateURL).Msg("search index bootstrap completed")
			}
		}()
		return idx, nil

	default:
		return nil, fmt.Errorf("unknown VECTOR_STORE: %s", cfg.VectorStore)
	}
}
