package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookmarkai/bookmark-server/internal/config"
	storepg "github.com/bookmarkai/bookmark-server/internal/store/postgres"
	storesqlite "github.com/bookmarkai/bookmark-server/internal/store/sqlite"
	"github.com/bookmarkai/bookmark-server/internal/store/sqlstore"
)

// NewStore returns the document store selected by cfg.DBDriver with its schema applied.
// Tables are namespaced with cfg.TablePrefix().
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sqlstore.Store, error) {
	bootstrapTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
	if bootstrapTimeout <= 0 {
		bootstrapTimeout = 5 * time.Second
	}

	switch cfg.DBDriver {
	case "sqlite":
		bctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
		defer cancel()
		st, err := storesqlite.New(bctx, cfg.SQLitePath, cfg.TablePrefix())
		if err != nil {
			return nil, fmt.Errorf("open sqlite store at %s: %w", cfg.SQLitePath, err)
		}
		log.Debug().Str("driver", cfg.DBDriver).Str("path", cfg.SQLitePath).Msg("store ready")
		return st, nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("BOOKMARK_SERVER_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		// Open connection synchronously since health checks need it immediately
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		st := storepg.NewWithDB(db, cfg.TablePrefix())
		bctx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
		defer cancel()
		if err := storepg.Bootstrap(bctx, st); err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("postgres schema bootstrap: %w", err)
		}
		log.Debug().Str("driver", cfg.DBDriver).Str("prefix", cfg.TablePrefix()).Msg("store bootstrap completed")
		return st, nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
