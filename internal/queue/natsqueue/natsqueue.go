// Package natsqueue is a queue driver on NATS JetStream. Each group key
// publishes on its own subject of a work-queue stream and is read by its own
// durable pull consumer that allows one unacknowledged message.
package natsqueue

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"golang.org/x/crypto/sha3"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue"
)

// HeaderGroupKey carries queue.Message.GroupKey.
const HeaderGroupKey = "Trail-Group-Key"

// Config selects the stream and subject prefix.
type Config struct {
	URL      string
	Stream   string
	Subject  string        // prefix; messages go to <Subject>.<hex(group key)>
	Consumer string        // prefix of the per-group durable consumer names
	MaxWait  time.Duration // fetch wait per message
}

// Queue implements queue.Producer and queue.Consumer.
type Queue struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream jetstream.Stream
	cfg    Config
}

// groupConsumerIdle is how long an idle per-group consumer survives on the server.
const groupConsumerIdle = time.Hour

// Connect dials NATS and ensures the work-queue stream exists.
func Connect(ctx context.Context, cfg Config) (*Queue, error) {
	if cfg.Stream == "" || cfg.Subject == "" {
		return nil, errors.New("natsqueue: stream and subject are required")
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "ledger-relay"
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = time.Second
	}
	nc, err := nats.Connect(cfg.URL, nats.Name("trail-endpoint"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	q, err := newQueue(ctx, nc, cfg)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return q, nil
}

func newQueue(ctx context.Context, nc *nats.Conn, cfg Config) (*Queue, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}
	// Work-queue retention removes acknowledged messages, so the stream's
	// subject state lists exactly the groups with pending work.
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.Subject + ".>"},
		Retention:  jetstream.WorkQueuePolicy,
		Storage:    jetstream.FileStorage,
		Duplicates: 10 * time.Minute,
	})
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", cfg.Stream, err)
	}
	return &Queue{nc: nc, js: js, stream: stream, cfg: cfg}, nil
}

// groupConsumer returns the durable consumer bound to one group subject.
// One unacknowledged message per consumer keeps the group ordered while
// other groups proceed.
func (q *Queue) groupConsumer(ctx context.Context, subject string) (jetstream.Consumer, error) {
	sum := sha3.Sum256([]byte(subject))
	c, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:           q.cfg.Consumer + "-" + hex.EncodeToString(sum[:16]),
		FilterSubject:     subject,
		AckPolicy:         jetstream.AckExplicitPolicy,
		DeliverPolicy:     jetstream.DeliverAllPolicy,
		MaxAckPending:     1,
		AckWait:           60 * time.Second,
		InactiveThreshold: groupConsumerIdle,
	})
	if err != nil {
		return nil, fmt.Errorf("create consumer for %s: %w", subject, err)
	}
	return c, nil
}

// pendingSubjects lists group subjects that hold unacknowledged messages.
func (q *Queue) pendingSubjects(ctx context.Context) ([]string, error) {
	info, err := q.stream.Info(ctx, jetstream.WithSubjectFilter(q.cfg.Subject+".>"))
	if err != nil {
		return nil, fmt.Errorf("stream info: %w", err)
	}
	subjects := make([]string, 0, len(info.State.Subjects))
	for s, count := range info.State.Subjects {
		if count > 0 {
			subjects = append(subjects, s)
		}
	}
	sort.Strings(subjects)
	return subjects, nil
}

// SubjectFor returns the subject a group's messages are published on. The
// group key is hex encoded because owners may contain subject separators.
func (q *Queue) SubjectFor(groupKey string) string {
	return subjectFor(q.cfg.Subject, groupKey)
}

func subjectFor(prefix, groupKey string) string {
	return prefix + "." + hex.EncodeToString([]byte(groupKey))
}

// Enqueue publishes msg; JetStream drops duplicates of msg.ID within the
// stream's duplicate window.
func (q *Queue) Enqueue(ctx context.Context, msg queue.Message) error {
	m := nats.NewMsg(q.SubjectFor(msg.GroupKey))
	m.Header.Set(HeaderGroupKey, msg.GroupKey)
	m.Data = msg.Body
	if _, err := q.js.PublishMsg(ctx, m, jetstream.WithMsgID(msg.ID)); err != nil {
		return fmt.Errorf("publish %s: %w", msg.ID, err)
	}
	return nil
}

// Process visits every group with pending messages and drains each in
// order until limit messages were handled. A failed message is negatively
// acknowledged with a delay; only its own group waits for the redelivery.
func (q *Queue) Process(ctx context.Context, limit int, h queue.Handler) (int, error) {
	subjects, err := q.pendingSubjects(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, subject := range subjects {
		if n >= limit {
			break
		}
		c, err := q.groupConsumer(ctx, subject)
		if err != nil {
			return n, err
		}
		got, err := q.drain(ctx, c, limit-n, h)
		n += got
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// drain handles up to limit messages of one group, stopping at the first
// failure or when the group has nothing deliverable.
func (q *Queue) drain(ctx context.Context, c jetstream.Consumer, limit int, h queue.Handler) (int, error) {
	n := 0
	for n < limit {
		info := c.CachedInfo()
		if info != nil && info.NumAckPending > 0 {
			// an earlier message is waiting for redelivery
			return n, nil
		}
		batch, err := c.Fetch(1, jetstream.FetchMaxWait(q.cfg.MaxWait))
		if err != nil {
			return n, fmt.Errorf("fetch: %w", err)
		}
		got := 0
		for msg := range batch.Messages() {
			got++
			n++
			ok, err := q.handle(ctx, msg, h)
			if err != nil {
				return n, err
			}
			if !ok {
				return n, nil
			}
		}
		if err := batch.Error(); err != nil && !errors.Is(err, nats.ErrTimeout) && !errors.Is(err, context.DeadlineExceeded) {
			return n, fmt.Errorf("fetch: %w", err)
		}
		if got == 0 {
			break
		}
	}
	return n, nil
}

// handle reports false when h rejected the message.
func (q *Queue) handle(ctx context.Context, msg jetstream.Msg, h queue.Handler) (bool, error) {
	m := queue.Message{
		ID:       msg.Headers().Get(nats.MsgIdHdr),
		GroupKey: msg.Headers().Get(HeaderGroupKey),
		Body:     msg.Data(),
	}
	if err := h(ctx, m.GroupKey, []queue.Message{m}); err != nil {
		delivered := uint64(1)
		if md, err := msg.Metadata(); err == nil {
			delivered = md.NumDelivered
		}
		if err := msg.NakWithDelay(nakDelay(delivered)); err != nil {
			return false, fmt.Errorf("nak %s: %w", m.ID, err)
		}
		return false, nil
	}
	if err := msg.Ack(); err != nil {
		return false, fmt.Errorf("ack %s: %w", m.ID, err)
	}
	return true, nil
}

// nakDelay mirrors the outbox backoff: 2^n seconds capped at five minutes.
func nakDelay(delivered uint64) time.Duration {
	if delivered >= 8 {
		return 300 * time.Second
	}
	d := time.Duration(1<<delivered) * time.Second
	if d > 300*time.Second {
		d = 300 * time.Second
	}
	return d
}

// HealthPing implements health.HealthPinger.
func (q *Queue) HealthPing(ctx context.Context) error {
	if !q.nc.IsConnected() {
		return fmt.Errorf("nats not connected: %s", q.nc.Status())
	}
	return q.nc.FlushWithContext(ctx)
}

// Close drains the connection.
func (q *Queue) Close() error { return q.nc.Drain() }
