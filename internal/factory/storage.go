package factory

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/config"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/health"
	storepkg "github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
	storepg "github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store/postgres"
	storesqlite "github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store/sqlite"
)

// connectRetries bounds how often opening a dependency is retried at startup.
const connectRetries = 5

// NewStore opens the store selected by cfg.DBDriver, retrying the
// connection with exponential backoff, and migrates its schema.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	var st storepkg.Store
	switch cfg.DBDriver {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("TRAIL_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}
		db, err := openWithRetry(ctx, log, cfg.DBDriver, func() (*sql.DB, error) { return storepg.Open(cfg.PostgresDSN) })
		if err != nil {
			return nil, err
		}
		st = storepg.NewWithDB(db)

		// Async bootstrap check; don't block startup
		go func() {
			bootstrapCtx, cancel := context.WithTimeout(ctx, cfg.BootstrapTimeout())
			defer cancel()
			if err := storepg.Bootstrap(bootstrapCtx, cfg.PostgresDSN); err != nil {
				log.Warn().Err(err).Str("driver", cfg.DBDriver).Msg("store bootstrap check failed")
			} else {
				log.Debug().Str("driver", cfg.DBDriver).Msg("store bootstrap check completed")
			}
		}()
	case "sqlite":
		db, err := openWithRetry(ctx, log, cfg.DBDriver, func() (*sql.DB, error) { return storesqlite.Open(cfg.SQLitePath) })
		if err != nil {
			return nil, err
		}
		st = storesqlite.NewWithDB(db)
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, cfg.BootstrapTimeout())
	defer cancel()
	if err := st.Migrate(migrateCtx); err != nil {
		_ = st.Close()
		return nil, err
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("store ready")
	return st, nil
}

// StorePinger returns the store's health probe, if it has one.
func StorePinger(st storepkg.Store) (health.HealthPinger, bool) {
	p, ok := st.(health.HealthPinger)
	return p, ok
}

func openWithRetry(ctx context.Context, log zerolog.Logger, driver string, open func() (*sql.DB, error)) (*sql.DB, error) {
	var db *sql.DB
	op := func() error {
		var err error
		db, err = open()
		return err
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Str("driver", driver).Dur("retry_in", wait).Msg("store open failed")
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, connectRetries), ctx), notify); err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	return db, nil
}
