// Package queue defines the ordered delivery contract between the API
// process, which enqueues ledger transactions, and the relay, which applies
// them.
package queue

import (
	"context"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
)

// Message is one queued item. ID deduplicates enqueues; GroupKey orders
// delivery.
type Message struct {
	ID       string
	GroupKey string
	Body     []byte
}

// Handler receives the leased messages of one group, oldest first. A non-nil
// error leaves every message of the group for redelivery.
type Handler func(ctx context.Context, groupKey string, msgs []Message) error

// Producer enqueues messages.
type Producer interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Consumer drains messages in group order. Process returns the number of
// messages handed to h.
type Consumer interface {
	Process(ctx context.Context, limit int, h Handler) (int, error)
}

// TxnGroupKey is the ordering key for an owner's transactions.
func TxnGroupKey(o model.Owner) string {
	return "txn:" + o.Provider + ":" + o.Address
}

// Groups splits msgs by GroupKey. Groups appear in the order their first
// message appears and keep their messages in order.
func Groups(msgs []Message) [][]Message {
	index := map[string]int{}
	var out [][]Message
	for _, m := range msgs {
		i, ok := index[m.GroupKey]
		if !ok {
			i = len(out)
			index[m.GroupKey] = i
			out = append(out, nil)
		}
		out[i] = append(out[i], m)
	}
	return out
}
