package store

import (
	"context"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue"
)

// Store exposes persistence operations required by services and the relay.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Ledger() Ledger
	Keys() Keys
	Outbox() Outbox
	Migrate(ctx context.Context) error
	Close() error
}

// Ledger holds the per-owner chain of blocks.
type Ledger interface {
	// Metadata returns the owner's block ids oldest first. An owner without
	// blocks yields empty metadata, not an error.
	Metadata(ctx context.Context, owner model.Owner) (*model.Metadata, error)
	Block(ctx context.Context, owner model.Owner, blockID string) (*model.Block, error)
	AppendBlock(ctx context.Context, owner model.Owner, b *model.Block) error
	HasTransaction(ctx context.Context, txnID string) (bool, error)
}

// Keys stores the ed25519 seed used to sign each owner's transactions.
type Keys interface {
	Get(ctx context.Context, owner model.Owner) ([]byte, error)
	// PutIfAbsent stores seed unless a seed exists and returns the stored one.
	PutIfAbsent(ctx context.Context, owner model.Owner, seed []byte) ([]byte, error)
}

// Outbox is the table-backed queue driver.
type Outbox interface {
	queue.Producer
	queue.Consumer
}
