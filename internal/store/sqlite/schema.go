package sqlite

// Timestamps are unix milliseconds.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ledger_blocks (
    provider      TEXT    NOT NULL,
    address       TEXT    NOT NULL,
    block_id      TEXT    NOT NULL,
    seq           INTEGER NOT NULL,
    prev_block_id TEXT    NOT NULL DEFAULT '',
    creation_time INTEGER NOT NULL,
    PRIMARY KEY (provider, address, block_id),
    UNIQUE (provider, address, seq)
)`,
	`CREATE TABLE IF NOT EXISTS ledger_transactions (
    txn_id         TEXT    PRIMARY KEY,
    provider       TEXT    NOT NULL,
    address        TEXT    NOT NULL,
    block_id       TEXT    NOT NULL,
    position       INTEGER NOT NULL,
    txn_time       INTEGER NOT NULL,
    asset_ref      TEXT    NOT NULL,
    contents       TEXT    NOT NULL,
    user_signature TEXT    NOT NULL,
    app_signature  TEXT    NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ledger_transactions_block
    ON ledger_transactions (provider, address, block_id, position)`,
	`CREATE TABLE IF NOT EXISTS ledger_signers (
    provider      TEXT    NOT NULL,
    address       TEXT    NOT NULL,
    seed          BLOB    NOT NULL,
    creation_time INTEGER NOT NULL,
    PRIMARY KEY (provider, address)
)`,
	`CREATE TABLE IF NOT EXISTS ledger_outbox (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id      TEXT    NOT NULL UNIQUE,
    group_key       TEXT    NOT NULL,
    payload         BLOB    NOT NULL,
    status          TEXT    NOT NULL DEFAULT 'pending',
    attempt_count   INTEGER NOT NULL DEFAULT 0,
    next_attempt_at INTEGER NOT NULL,
    update_time     INTEGER NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ledger_outbox_ready ON ledger_outbox (status, id)`,
}
