package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/config"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/health"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue/natsqueue"
	storepkg "github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
)

// Queue is an ordered queue driver usable by both the endpoint and the relay.
type Queue interface {
	queue.Producer
	queue.Consumer
}

// OrderedQueue is the driver selected by cfg.QueueDriver. Pinger is nil
// when the queue lives in the store.
type OrderedQueue struct {
	Queue  Queue
	Pinger health.HealthPinger
	close  func() error
}

// Close releases the driver's connection, if it owns one.
func (q *OrderedQueue) Close() error {
	if q.close == nil {
		return nil
	}
	return q.close()
}

// NewQueue returns the outbox table of st or a JetStream-backed queue.
func NewQueue(ctx context.Context, cfg *config.Config, st storepkg.Store, log zerolog.Logger) (*OrderedQueue, error) {
	switch cfg.QueueDriver {
	case "outbox":
		return &OrderedQueue{Queue: st.Outbox()}, nil
	case "nats":
		var q *natsqueue.Queue
		op := func() error {
			var err error
			q, err = natsqueue.Connect(ctx, natsqueue.Config{
				URL:     cfg.NATSURL,
				Stream:  cfg.NATSStream,
				Subject: cfg.NATSSubject,
			})
			return err
		}
		b := backoff.NewExponentialBackOff()
		b.MaxInterval = 5 * time.Second
		notify := func(err error, wait time.Duration) {
			log.Warn().Err(err).Str("url", cfg.NATSURL).Dur("retry_in", wait).Msg("nats connect failed")
		}
		if err := backoff.RetryNotify(op, backoff.WithContext(backoff.WithMaxRetries(b, connectRetries), ctx), notify); err != nil {
			return nil, fmt.Errorf("connect queue: %w", err)
		}
		log.Info().Str("stream", cfg.NATSStream).Str("subject", cfg.NATSSubject).Msg("nats queue ready")
		return &OrderedQueue{Queue: q, Pinger: q, close: q.Close}, nil
	default:
		return nil, fmt.Errorf("unknown QUEUE_DRIVER: %s", cfg.QueueDriver)
	}
}
