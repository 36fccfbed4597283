// Package repository reads ledger state and submits transactions through
// the ordered queue.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
)

// Envelope is the queued form of a transaction.
type Envelope struct {
	Owner       model.Owner       `json:"owner"`
	Transaction model.Transaction `json:"transaction"`
}

// DecodeEnvelope parses a queued message body.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if err := env.Owner.Validate(); err != nil {
		return nil, err
	}
	return &env, nil
}

// Reader retrieves ledger metadata and blocks. It does not cache.
type Reader struct {
	ledger store.Ledger
}

func NewReader(ledger store.Ledger) *Reader { return &Reader{ledger: ledger} }

func (r *Reader) Metadata(ctx context.Context, owner model.Owner) (*model.Metadata, error) {
	return r.ledger.Metadata(ctx, owner)
}

func (r *Reader) Block(ctx context.Context, owner model.Owner, blockID string) (*model.Block, error) {
	return r.ledger.Block(ctx, owner, blockID)
}

// Writer submits transactions; an owner's transactions are delivered in
// submission order.
type Writer struct {
	producer queue.Producer
}

func NewWriter(producer queue.Producer) *Writer { return &Writer{producer: producer} }

// Submit enqueues txn under the owner's ordering key. It returns once the
// queue accepted the message, before the transaction reaches the ledger.
func (w *Writer) Submit(ctx context.Context, owner model.Owner, txn *model.Transaction) error {
	body, err := json.Marshal(Envelope{Owner: owner, Transaction: *txn})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	msg := queue.Message{ID: txn.ID, GroupKey: queue.TxnGroupKey(owner), Body: body}
	if err := w.producer.Enqueue(ctx, msg); err != nil {
		return fmt.Errorf("submit %s: %w", txn.ID, err)
	}
	return nil
}
