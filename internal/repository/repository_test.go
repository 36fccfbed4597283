package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue"
)

type captureProducer struct {
	msgs []queue.Message
	err  error
}

func (c *captureProducer) Enqueue(_ context.Context, m queue.Message) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, m)
	return nil
}

func TestWriterSubmitUsesOwnerGroup(t *testing.T) {
	p := &captureProducer{}
	w := NewWriter(p)
	owner := model.Owner{Provider: "prov", Address: "addr"}
	txn := &model.Transaction{ID: "t1", Timestamp: time.Unix(100, 0).UTC(), AssetRef: "AA==", Contents: "AwA="}

	if err := w.Submit(context.Background(), owner, txn); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if len(p.msgs) != 1 {
		t.Fatalf("expected one message, got %d", len(p.msgs))
	}
	m := p.msgs[0]
	if m.GroupKey != "txn:prov:addr" || m.ID != "t1" {
		t.Fatalf("unexpected message %+v", m)
	}
	env, err := DecodeEnvelope(m.Body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Owner != owner || env.Transaction.ID != "t1" || !env.Transaction.Timestamp.Equal(txn.Timestamp) {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestWriterPropagatesQueueError(t *testing.T) {
	boom := errors.New("queue down")
	w := NewWriter(&captureProducer{err: boom})
	err := w.Submit(context.Background(), model.Owner{Provider: "p", Address: "a"}, &model.Transaction{ID: "x"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected queue error, got %v", err)
	}
}

func TestDecodeEnvelopeRejectsMissingOwner(t *testing.T) {
	if _, err := DecodeEnvelope([]byte(`{"transaction":{"id":"t"}}`)); err == nil {
		t.Fatalf("expected error for envelope without owner")
	}
	if _, err := DecodeEnvelope([]byte(`{`)); err == nil {
		t.Fatalf("expected error for malformed envelope")
	}
}
