package postgres

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS ledger_blocks (
    provider      TEXT        NOT NULL,
    address       TEXT        NOT NULL,
    block_id      TEXT        NOT NULL,
    seq           BIGINT      NOT NULL,
    prev_block_id TEXT        NOT NULL DEFAULT '',
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (provider, address, block_id),
    UNIQUE (provider, address, seq)
)`,
	`CREATE TABLE IF NOT EXISTS ledger_transactions (
    txn_id         TEXT        PRIMARY KEY,
    provider       TEXT        NOT NULL,
    address        TEXT        NOT NULL,
    block_id       TEXT        NOT NULL,
    position       INT         NOT NULL,
    txn_time       TIMESTAMPTZ NOT NULL,
    asset_ref      TEXT        NOT NULL,
    contents       TEXT        NOT NULL,
    user_signature TEXT        NOT NULL,
    app_signature  TEXT        NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ledger_transactions_block
    ON ledger_transactions (provider, address, block_id, position)`,
	`CREATE TABLE IF NOT EXISTS ledger_signers (
    provider      TEXT        NOT NULL,
    address       TEXT        NOT NULL,
    seed          BYTEA       NOT NULL,
    creation_time TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (provider, address)
)`,
	`CREATE TABLE IF NOT EXISTS ledger_outbox (
    id              BIGSERIAL   PRIMARY KEY,
    message_id      TEXT        NOT NULL UNIQUE,
    group_key       TEXT        NOT NULL,
    payload         BYTEA       NOT NULL,
    status          TEXT        NOT NULL DEFAULT 'pending',
    attempt_count   INT         NOT NULL DEFAULT 0,
    next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    creation_time   TIMESTAMPTZ NOT NULL DEFAULT now(),
    update_time     TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS ledger_outbox_ready ON ledger_outbox (status, id)`,
}
