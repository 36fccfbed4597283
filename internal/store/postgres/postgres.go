package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
)

// Open opens a PostgreSQL connection using the pgx stdlib driver and verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// NewWithDB constructs a Postgres store backed directly by database/sql.
func NewWithDB(db *sql.DB) store.Store { return &pgStore{db: db} }

type pgStore struct{ db *sql.DB }

func (s *pgStore) Ledger() store.Ledger { return &ledger{db: s.db} }
func (s *pgStore) Keys() store.Keys     { return &signerKeys{db: s.db} }
func (s *pgStore) Outbox() store.Outbox { return &outbox{db: s.db} }
func (s *pgStore) Close() error         { return s.db.Close() }

// HealthPing implements health.HealthPinger for the Postgres-backed store.
func (s *pgStore) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *pgStore) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("postgres migrate: %w", err)
		}
	}
	return nil
}

// --- Ledger ---
type ledger struct{ db *sql.DB }

func (l *ledger) Metadata(ctx context.Context, owner model.Owner) (*model.Metadata, error) {
	rows, err := l.db.QueryContext(ctx, `
        SELECT block_id FROM ledger_blocks
        WHERE provider=$1 AND address=$2
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
	err := l.db.QueryRowContext(ctx, `
        SELECT block_id, seq, prev_block_id, creation_time FROM ledger_blocks
        WHERE provider=$1 AND address=$2 AND block_id=$3`,
		owner.Provider, owner.Address, blockID).Scan(&b.ID, &b.Seq, &b.Previous, &b.CreationTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("block %s: %w", blockID, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	b.CreationTime = b.CreationTime.UTC()

	rows, err := l.db.QueryContext(ctx, `
        SELECT txn_id, txn_time, asset_ref, contents, user_signature, app_signature
        FROM ledger_transactions
        WHERE provider=$1 AND address=$2 AND block_id=$3
        ORDER BY position ASC`, owner.Provider, owner.Address, blockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.Timestamp, &t.AssetRef, &t.Contents, &t.UserSignature, &t.AppSignature); err != nil {
			return nil, err
		}
		t.Timestamp = t.Timestamp.UTC()
		b.Transactions = append(b.Transactions, t)
	}
	return &b, rows.Err()
}

func (l *ledger) AppendBlock(ctx context.Context, owner model.Owner, b *model.Block) error {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
        INSERT INTO ledger_blocks (provider, address, block_id, seq, prev_block_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING creation_time`,
		owner.Provider, owner.Address, b.ID, b.Seq, b.Previous)
	if err := row.Scan(&b.CreationTime); err != nil {
		return fmt.Errorf("insert block %s: %w", b.ID, err)
	}
	b.CreationTime = b.CreationTime.UTC()
	for i, t := range b.Transactions {
		if _, err := tx.ExecContext(ctx, `
            INSERT INTO ledger_transactions
                (txn_id, provider, address, block_id, position, txn_time, asset_ref, contents, user_signature, app_signature)
            VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			t.ID, owner.Provider, owner.Address, b.ID, i, t.Timestamp,
			t.AssetRef, t.Contents, t.UserSignature, t.AppSignature); err != nil {
			return fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (l *ledger) HasTransaction(ctx context.Context, txnID string) (bool, error) {
	var exists bool
	err := l.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM ledger_transactions WHERE txn_id=$1)`, txnID).Scan(&exists)
	return exists, err
}

// --- Signer keys ---
type signerKeys struct{ db *sql.DB }

func (k *signerKeys) Get(ctx context.Context, owner model.Owner) ([]byte, error) {
	var seed []byte
	err := k.db.QueryRowContext(ctx, `SELECT seed FROM ledger_signers WHERE provider=$1 AND address=$2`,
		owner.Provider, owner.Address).Scan(&seed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return seed, err
}

func (k *signerKeys) PutIfAbsent(ctx context.Context, owner model.Owner, seed []byte) ([]byte, error) {
	if _, err := k.db.ExecContext(ctx, `
        INSERT INTO ledger_signers (provider, address, seed) VALUES ($1,$2,$3)
        ON CONFLICT (provider, address) DO NOTHING`,
		owner.Provider, owner.Address, seed); err != nil {
		return nil, err
	}
	return k.Get(ctx, owner)
}

// Bootstrap performs a connectivity check to ensure Postgres is reachable.
func Bootstrap(ctx context.Context, dsn string) error {
	if dsn == "" {
		return nil
	}
	db, err := Open(dsn)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return db.PingContext(ctx)
}
