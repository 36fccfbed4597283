package storetest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/queue"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
)

// Run exercises a compliance suite against a store.Store implementation.
// makeStore must return a store whose schema can be migrated.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate #%d: %v", i+1, err)
		}
	}

	t.Run("ledger", func(t *testing.T) { testLedger(t, s) })
	t.Run("keys", func(t *testing.T) { testKeys(t, s) })
	t.Run("outbox order", func(t *testing.T) { testOutboxOrder(t, s) })
	t.Run("outbox backoff blocks group", func(t *testing.T) { testOutboxBackoff(t, s) })
}

func newOwner() model.Owner {
	return model.Owner{Provider: "prov-" + uuid.NewString(), Address: "addr-" + uuid.NewString()}
}

func txnFixture(id string, ts time.Time) model.Transaction {
	return model.Transaction{
		ID: id, Timestamp: ts, AssetRef: "AA==", Contents: "AwA=",
		UserSignature: "user-" + id, AppSignature: "app-" + id,
	}
}

func testLedger(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := newOwner()

	md, err := s.Ledger().Metadata(ctx, owner)
	if err != nil || len(md.Blocks) != 0 {
		t.Fatalf("Metadata empty owner: md=%v err=%v", md, err)
	}

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	t1, t2, t3 := txnFixture(uuid.NewString(), ts), txnFixture(uuid.NewString(), ts.Add(time.Second)), txnFixture(uuid.NewString(), ts.Add(2*time.Second))
	b1 := &model.Block{ID: "b1-" + uuid.NewString(), Seq: 1, Transactions: []model.Transaction{t1, t2}}
	b2 := &model.Block{ID: "b2-" + uuid.NewString(), Seq: 2, Previous: b1.ID, Transactions: []model.Transaction{t3}}
	for _, b := range []*model.Block{b1, b2} {
		if err := s.Ledger().AppendBlock(ctx, owner, b); err != nil {
			t.Fatalf("AppendBlock %s: %v", b.ID, err)
		}
	}

	md, err = s.Ledger().Metadata(ctx, owner)
	if err != nil || len(md.Blocks) != 2 || md.Blocks[0] != b1.ID || md.Blocks[1] != b2.ID {
		t.Fatalf("Metadata: md=%v err=%v", md, err)
	}

	got, err := s.Ledger().Block(ctx, owner, b1.ID)
	if err != nil {
		t.Fatalf("Block: %v", err)
	}
	if got.Seq != 1 || len(got.Transactions) != 2 || got.Transactions[0].ID != t1.ID || got.Transactions[1].ID != t2.ID {
		t.Fatalf("Block: unexpected %+v", got)
	}
	g := got.Transactions[1]
	if !g.Timestamp.Equal(t2.Timestamp) || g.UserSignature != t2.UserSignature || g.AppSignature != t2.AppSignature ||
		g.Contents != t2.Contents || g.AssetRef != t2.AssetRef {
		t.Fatalf("Block: transaction fields not preserved: %+v", g)
	}
	if got, err := s.Ledger().Block(ctx, owner, b2.ID); err != nil || got.Previous != b1.ID {
		t.Fatalf("Block previous: got=%v err=%v", got, err)
	}

	if _, err := s.Ledger().Block(ctx, owner, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Block missing: expected ErrNotFound, got %v", err)
	}
	if _, err := s.Ledger().Block(ctx, newOwner(), b1.ID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Block other owner: expected ErrNotFound, got %v", err)
	}

	if ok, err := s.Ledger().HasTransaction(ctx, t3.ID); err != nil || !ok {
		t.Fatalf("HasTransaction present: ok=%v err=%v", ok, err)
	}
	if ok, err := s.Ledger().HasTransaction(ctx, uuid.NewString()); err != nil || ok {
		t.Fatalf("HasTransaction absent: ok=%v err=%v", ok, err)
	}

	dup := &model.Block{ID: "b3-" + uuid.NewString(), Seq: 2, Transactions: []model.Transaction{txnFixture(uuid.NewString(), ts)}}
	if err := s.Ledger().AppendBlock(ctx, owner, dup); err == nil {
		t.Fatalf("AppendBlock duplicate seq: expected error")
	}
	if md, _ := s.Ledger().Metadata(ctx, owner); len(md.Blocks) != 2 {
		t.Fatalf("failed append left %d blocks", len(md.Blocks))
	}
}

func testKeys(t *testing.T, s store.Store) {
	ctx := context.Background()
	owner := newOwner()
	if _, err := s.Keys().Get(ctx, owner); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Keys.Get missing: expected ErrNotFound, got %v", err)
	}
	first := bytes.Repeat([]byte{1}, 32)
	stored, err := s.Keys().PutIfAbsent(ctx, owner, first)
	if err != nil || !bytes.Equal(stored, first) {
		t.Fatalf("PutIfAbsent: stored=%x err=%v", stored, err)
	}
	stored, err = s.Keys().PutIfAbsent(ctx, owner, bytes.Repeat([]byte{2}, 32))
	if err != nil || !bytes.Equal(stored, first) {
		t.Fatalf("PutIfAbsent existing: stored=%x err=%v", stored, err)
	}
}

type record struct {
	group string
	ids   []string
}

func drain(t *testing.T, c queue.Consumer, fail func(group string) bool) ([]record, int) {
	t.Helper()
	var seen []record
	n, err := c.Process(context.Background(), 100, func(_ context.Context, group string, msgs []queue.Message) error {
		r := record{group: group}
		for _, m := range msgs {
			if m.GroupKey != group {
				t.Fatalf("message %s delivered under group %s", m.ID, group)
			}
			r.ids = append(r.ids, m.ID)
		}
		seen = append(seen, r)
		if fail != nil && fail(group) {
			return errors.New("handler failed")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return seen, n
}

func testOutboxOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	ga := queue.TxnGroupKey(newOwner())
	gb := queue.TxnGroupKey(newOwner())
	ids := []string{uuid.NewString(), uuid.NewString(), uuid.NewString()}
	msgs := []queue.Message{
		{ID: ids[0], GroupKey: ga, Body: []byte(`{"n":1}`)},
		{ID: ids[1], GroupKey: gb, Body: []byte(`{"n":2}`)},
		{ID: ids[2], GroupKey: ga, Body: []byte(`{"n":3}`)},
	}
	for _, m := range msgs {
		if err := s.Outbox().Enqueue(ctx, m); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if err := s.Outbox().Enqueue(ctx, msgs[0]); err != nil {
		t.Fatalf("Enqueue duplicate: %v", err)
	}

	seen := map[string][]string{}
	for i := 0; i < 10; i++ {
		recs, n := drain(t, s.Outbox(), nil)
		if n == 0 {
			break
		}
		for _, r := range recs {
			seen[r.group] = append(seen[r.group], r.ids...)
		}
	}
	if len(seen[ga]) != 2 || seen[ga][0] != ids[0] || seen[ga][1] != ids[2] {
		t.Fatalf("group a order: %v", seen[ga])
	}
	if len(seen[gb]) != 1 || seen[gb][0] != ids[1] {
		t.Fatalf("group b: %v", seen[gb])
	}
	if _, n := drain(t, s.Outbox(), nil); n != 0 {
		t.Fatalf("expected drained outbox, leased %d", n)
	}
}

func testOutboxBackoff(t *testing.T, s store.Store) {
	ctx := context.Background()
	g := queue.TxnGroupKey(newOwner())
	head := queue.Message{ID: uuid.NewString(), GroupKey: g, Body: []byte("1")}
	if err := s.Outbox().Enqueue(ctx, head); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	recs, _ := drain(t, s.Outbox(), func(group string) bool { return group == g })
	if len(recs) == 0 {
		t.Fatalf("head message not delivered")
	}

	next := queue.Message{ID: uuid.NewString(), GroupKey: g, Body: []byte("2")}
	if err := s.Outbox().Enqueue(ctx, next); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	recs, _ = drain(t, s.Outbox(), nil)
	for _, r := range recs {
		if r.group == g {
			t.Fatalf("later message leased while the group head is backing off: %v", r.ids)
		}
	}
}
