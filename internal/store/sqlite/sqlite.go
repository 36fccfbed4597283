// Package sqlite is the single-node store driver backed by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
)

// NewWithDB constructs a store over an open SQLite handle.
func NewWithDB(db *sql.DB) store.Store {
	return &sqliteStore{db: db, now: time.Now}
}

type sqliteStore struct {
	db  *sql.DB
	now func() time.Time
}

func (s *sqliteStore) Ledger() store.Ledger { return &ledger{db: s.db, now: s.now} }
func (s *sqliteStore) Keys() store.Keys     { return &signerKeys{db: s.db, now: s.now} }
func (s *sqliteStore) Outbox() store.Outbox { return &outbox{db: s.db, now: s.now} }
func (s *sqliteStore) Close() error         { return s.db.Close() }

// HealthPing implements health.HealthPinger.
func (s *sqliteStore) HealthPing(ctx context.Context) error { return s.db.PingContext(ctx) }

// Migrate creates the schema if it does not exist.
func (s *sqliteStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite migrate: %w", err)
		}
	}
	return nil
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// --- Ledger ---
type ledger struct {
	db  *sql.DB
	now func() time.Time
}

func (l *ledger) Metadata(ctx context.Context, owner model.Owner) (*model.Metadata, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT block_id FROM ledger_blocks
        WHERE provider=? AND address=?
        ORDER BY seq ASC`, owner.Provider, owner.Address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	md := &model.Metadata{Owner: owner}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		md.Blocks = append(md.Blocks, id)
	}
	return md, rows.Err()
}

func (l *ledger) Block(ctx context.Context, owner model.Owner, blockID string) (*model.Block, error) {
	var b model.Block
	var created int64
	err := l.db.QueryRowContext(ctx, `
        SELECT block_id, seq, prev_block_id, creation_time FROM ledger_blocks
        WHERE provider=? AND address=? AND block_id=?`,
		owner.Provider, owner.Address, blockID).Scan(&b.ID, &b.Seq, &b.Previous, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("block %s: %w", blockID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	b.CreationTime = fromMillis(created)

	rows, err := l.db.QueryContext(ctx, `
        SELECT txn_id, txn_time, asset_ref, contents, user_signature, app_signature
        FROM ledger_transactions
        WHERE provider=? AND address=? AND block_id=?
        ORDER BY position ASC`, owner.Provider, owner.Address, blockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t model.Transaction
		var ts int64
		if err := rows.Scan(&t.ID, &ts, &t.AssetRef, &t.Contents, &t.UserSignature, &t.AppSignature); err != nil {
			return nil, err
		}
		t.Timestamp = fromMillis(ts)
		b.Transactions = append(b.Transactions, t)
	}
	return &b, rows.Err()
}

func (l *ledger) AppendBlock(ctx context.Context, owner model.Owner, b *model.Block) error {
	if b.CreationTime.IsZero() {
		b.CreationTime = l.now().UTC()
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
        INSERT INTO ledger_blocks (provider, address, block_id, seq, prev_block_id, creation_time)
        VALUES (?,?,?,?,?,?)`,
		owner.Provider, owner.Address, b.ID, b.Seq, b.Previous, millis(b.CreationTime)); err != nil {
		return fmt.Errorf("insert block %s: %w", b.ID, err)
	}
	for i, t := range b.Transactions {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO ledger_transactions
                (txn_id, provider, address, block_id, position, txn_time, asset_ref, contents, user_signature, app_signature)
            VALUES (?,?,?,?,?,?,?,?,?,?)`,
			t.ID, owner.Provider, owner.Address, b.ID, i, millis(t.Timestamp),
			t.AssetRef, t.Contents, t.UserSignature, t.AppSignature); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (l *ledger) HasTransaction(ctx context.Context, txnID string) (bool, error) {
	var one int
	err := l.db.QueryRowContext(ctx, `SELECT 1 FROM ledger_transactions WHERE txn_id=?`, txnID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// --- Signer keys ---
type signerKeys struct {
	db  *sql.DB
	now func() time.Time
}

func (k *signerKeys) Get(ctx context.Context, owner model.Owner) ([]byte, error) {
	var seed []byte
	err := k.db.QueryRowContext(ctx, `SELECT seed FROM ledger_signers WHERE provider=? AND address=?`,
		owner.Provider, owner.Address).Scan(&seed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return seed, err
}

func (k *signerKeys) PutIfAbsent(ctx context.Context, owner model.Owner, seed []byte) ([]byte, error) {
	if _, err := k.db.ExecContext(ctx, `
        INSERT INTO ledger_signers (provider, address, seed, creation_time) VALUES (?,?,?,?)
        ON CONFLICT (provider, address) DO NOTHING`,
		owner.Provider, owner.Address, seed, millis(k.now())); err != nil {
		return nil, err
	}
	return k.Get(ctx, owner)
}

// --- Outbox ---
type outbox struct {
	db  *sql.DB
	now func() time.Time
}

const (
	selectReadyRowsSQL = `
SELECT id, message_id, group_key, payload
FROM ledger_outbox o
WHERE status = 'pending' AND next_attempt_at <= ?
  AND NOT EXISTS (
    SELECT 1 FROM ledger_outbox p
    WHERE p.group_key = o.group_key AND p.status = 'pending'
      AND p.id < o.id AND p.next_attempt_at > ?)
ORDER BY id ASC
LIMIT ?`

	markDoneSQL = `UPDATE ledger_outbox SET status='done', update_time=? WHERE id=?`

	markFailedSQL = `
UPDATE ledger_outbox
SET attempt_count = attempt_count + 1,
    next_attempt_at = ? + MIN(300, 1 << (attempt_count + 1)) * 1000,
    update_time = ?
WHERE id=?`
)

func (o *outbox) Enqueue(ctx context.Context, msg queue.Message) error {
	now := millis(o.now())
	_, err := o.db.ExecContext(ctx, `
        INSERT INTO ledger_outbox (message_id, group_key, payload, next_attempt_at, update_time)
        VALUES (?,?,?,?,?)
        ON CONFLICT (message_id) DO NOTHING`,
		msg.ID, msg.GroupKey, msg.Body, now, now)
	return err
}

// Process leases ready rows without holding a transaction; SQLite allows a
// single writer and the handler writes to the ledger in between.
func (o *outbox) Process(ctx context.Context, limit int, h queue.Handler) (int, error) {
	now := millis(o.now())
	rows, err := o.db.QueryContext(ctx, selectReadyRowsSQL, now, now, limit)
	if err != nil {
		return 0, err
	}
	var msgs []queue.Message
	rowIDs := map[string]int64{}
	for rows.Next() {
		var id int64
		var m queue.Message
		if err := rows.Scan(&id, &m.ID, &m.GroupKey, &m.Body); err != nil {
			_ = rows.Close()
			return 0, err
		}
		rowIDs[m.ID] = id
		msgs = append(msgs, m)
	}
	if err := rows.Close(); err != nil {
		return 0, err
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, group := range queue.Groups(msgs) {
		herr := h(ctx, group[0].GroupKey, group)
		for _, m := range group {
			stamp := millis(o.now())
			if herr != nil {
				_, err = o.db.ExecContext(ctx, markFailedSQL, stamp, stamp, rowIDs[m.ID])
			} else {
				_, err = o.db.ExecContext(ctx, markDoneSQL, stamp, rowIDs[m.ID])
			}
			if err != nil {
				return len(msgs), fmt.Errorf("outbox mark %s: %w", m.ID, err)
			}
		}
	}
	return len(msgs), nil
}
