// Package relay drains the transaction queue into the ledger, one block per
// owner group per cycle.
package relay

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/metrics"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/repository"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/txn"
)

// Config controls batch size and polling cadence.
type Config struct {
	BatchSize int           // number of messages to lease per cycle
	Interval  time.Duration // poll interval
}

// KeyLookup resolves an owner's public signing key.
type KeyLookup interface {
	Lookup(ctx context.Context, owner model.Owner) (ed25519.PublicKey, error)
}

// Worker applies queued transactions to the ledger.
type Worker struct {
	consumer queue.Consumer
	ledger   store.Ledger
	keys     KeyLookup
	log      zerolog.Logger
	cfg      Config
}

// NewWorker constructs a Worker from dependencies.
func NewWorker(consumer queue.Consumer, ledger store.Ledger, keys KeyLookup, cfg Config, log zerolog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	return &Worker{consumer: consumer, ledger: ledger, keys: keys, log: log, cfg: cfg}
}

// Run starts the polling loop until ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info().Int("batch", w.cfg.BatchSize).Dur("interval", w.cfg.Interval).Msg("ledger relay starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ledger relay stopping")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil {
				// Log and continue; per-group backoff prevents hot-looping
				w.log.Error().Err(err).Msg("relay processOnce")
			}
		}
	}
}

// ProcessOnce runs a single lease-and-apply cycle.
func (w *Worker) ProcessOnce(ctx context.Context) (int, error) {
	return w.consumer.Process(ctx, w.cfg.BatchSize, w.apply)
}

func (w *Worker) apply(ctx context.Context, groupKey string, msgs []queue.Message) error {
	if err := w.applyGroup(ctx, groupKey, msgs); err != nil {
		metrics.RelayFailuresTotal.Inc()
		w.log.Error().Err(err).Str("group", groupKey).Int("messages", len(msgs)).Msg("relay group failed")
		return err
	}
	return nil
}

func (w *Worker) applyGroup(ctx context.Context, groupKey string, msgs []queue.Message) error {
	var owner model.Owner
	var fresh []model.Transaction
	seen := map[string]bool{}
	for i, m := range msgs {
		env, err := repository.DecodeEnvelope(m.Body)
		if err != nil {
			return fmt.Errorf("message %s: %w", m.ID, err)
		}
		if queue.TxnGroupKey(env.Owner) != groupKey {
			return fmt.Errorf("message %s: owner %s does not belong to group %s", m.ID, env.Owner, groupKey)
		}
		if i == 0 {
			owner = env.Owner
		}
		t := env.Transaction
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		exists, err := w.ledger.HasTransaction(ctx, t.ID)
		if err != nil {
			return err
		}
		if exists {
			w.log.Debug().Str("txn", t.ID).Msg("transaction already on ledger")
			continue
		}
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		return nil
	}

	pub, err := w.keys.Lookup(ctx, owner)
	if err != nil {
		return fmt.Errorf("signer key for %s: %w", owner, err)
	}
	for i := range fresh {
		if err := txn.Verify(pub, owner, &fresh[i]); err != nil {
			return err
		}
	}

	md, err := w.ledger.Metadata(ctx, owner)
	if err != nil {
		return err
	}
	block := &model.Block{Seq: int64(len(md.Blocks)) + 1, Transactions: fresh}
	if n := len(md.Blocks); n > 0 {
		block.Previous = md.Blocks[n-1]
	}
	if block.ID, err = store.BlockID(block.Previous, fresh); err != nil {
		return err
	}
	if err := w.ledger.AppendBlock(ctx, owner, block); err != nil {
		return err
	}
	metrics.RelayBlocksTotal.Inc()
	w.log.Info().Str("owner", owner.String()).Str("block", block.ID).Int64("seq", block.Seq).
		Int("transactions", len(fresh)).Msg("block appended")
	return nil
}
