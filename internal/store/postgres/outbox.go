package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue"
)

// Leased rows stay locked until the batch commits, so concurrent relays wait
// instead of skipping ahead within a group.
const (
	selectReadyRowsSQL = `
SELECT id, message_id, group_key, payload
FROM ledger_outbox o
WHERE status = 'pending' AND next_attempt_at <= now()
  AND NOT EXISTS (
    SELECT 1 FROM ledger_outbox p
    WHERE p.group_key = o.group_key AND p.status = 'pending'
      AND p.id < o.id AND p.next_attempt_at > now())
ORDER BY id ASC
LIMIT $1
FOR UPDATE`

	markDoneSQL = `UPDATE ledger_outbox SET status='done', update_time=now() WHERE id=$1`

	markFailedSQL = `
UPDATE ledger_outbox
SET attempt_count = attempt_count + 1,
    next_attempt_at = now() + make_interval(secs => LEAST(POWER(2, attempt_count+1), 300)),
    update_time = now()
WHERE id=$1`

	insertMessageSQL = `
INSERT INTO ledger_outbox (message_id, group_key, payload)
VALUES ($1,$2,$3)
ON CONFLICT (message_id) DO NOTHING`
)

type outbox struct{ db *sql.DB }

func (o *outbox) Enqueue(ctx context.Context, msg queue.Message) error {
	_, err := o.db.ExecContext(ctx, insertMessageSQL, msg.ID, msg.GroupKey, msg.Body)
	return err
}

func (o *outbox) Process(ctx context.Context, limit int, h queue.Handler) (int, error) {
	tx, err := o.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	msgs, rowIDs, err := leaseBatch(ctx, tx, limit)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, tx.Commit()
	}

	for _, group := range queue.Groups(msgs) {
		herr := h(ctx, group[0].GroupKey, group)
		for _, m := range group {
			stmt := markDoneSQL
			if herr != nil {
				stmt = markFailedSQL
			}
			if _, err := tx.ExecContext(ctx, stmt, rowIDs[m.ID]); err != nil {
				return len(msgs), fmt.Errorf("outbox mark %s: %w", m.ID, err)
			}
		}
	}
	return len(msgs), tx.Commit()
}

// leaseBatch locks and returns up to limit ready rows.
func leaseBatch(ctx context.Context, tx *sql.Tx, limit int) ([]queue.Message, map[string]int64, error) {
	rows, err := tx.QueryContext(ctx, selectReadyRowsSQL, limit)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var msgs []queue.Message
	rowIDs := map[string]int64{}
	for rows.Next() {
		var id int64
		var m queue.Message
		if err := rows.Scan(&id, &m.ID, &m.GroupKey, &m.Body); err != nil {
			return nil, nil, err
		}
		rowIDs[m.ID] = id
		msgs = append(msgs, m)
	}
	return msgs, rowIDs, rows.Err()
}
