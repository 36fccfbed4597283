// Package ledgerworker runs the relay that drains the ordered queue into
// ledger blocks.
package ledgerworker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/config"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/factory"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/keys"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/logger"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/relay"
)

// Run starts the ledger worker and blocks until shutdown or error.
func Run() error {
	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("config")
		return err
	}
	lg := logger.NewWithWriter(os.Stdout, "ledger-worker", cfg.LogLevel)
	log.Logger = lg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := factory.NewStore(ctx, cfg, lg)
	if err != nil {
		lg.Error().Stack().Err(err).Msg("store")
		return err
	}
	defer func() { _ = st.Close() }()

	q, err := factory.NewQueue(ctx, cfg, st, lg)
	if err != nil {
		lg.Error().Stack().Err(err).Msg("queue")
		return err
	}
	defer func() { _ = q.Close() }()

	w := relay.NewWorker(q.Queue, st.Ledger(), keys.NewSource(st.Keys()), relay.Config{
		BatchSize: cfg.RelayBatchSize,
		Interval:  cfg.RelayInterval(),
	}, lg)

	lg.Info().
		Str("db_driver", cfg.DBDriver).
		Str("queue_driver", cfg.QueueDriver).
		Int("batch_size", cfg.RelayBatchSize).
		Dur("interval", cfg.RelayInterval()).
		Msg("Ledger worker starting")

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Error().Err(err).Msg("ledger worker exit")
		return err
	}
	return nil
}
