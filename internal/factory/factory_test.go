package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/config"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/model"
)

func TestNewStore_SQLite(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "nested", "ledger.db")

	st, err := NewStore(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = st.Close() }()

	md, err := st.Ledger().Metadata(context.Background(), model.Owner{Provider: "p", Address: "a"})
	if err != nil {
		t.Fatalf("metadata after migrate: %v", err)
	}
	if len(md.Blocks) != 0 {
		t.Fatalf("expected empty ledger, got %v", md.Blocks)
	}
	if _, ok := StorePinger(st); !ok {
		t.Fatalf("sqlite store should expose a health probe")
	}

	q, err := NewQueue(context.Background(), cfg, st, zerolog.Nop())
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	if q.Pinger != nil {
		t.Fatalf("outbox queue should not carry its own probe")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestNewStore_UnknownDriver(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.DBDriver = "spanner"
	if _, err := NewStore(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestNewStore_PostgresRequiresDSN(t *testing.T) {
	cfg := config.NewForTesting()
	cfg.DBDriver = "postgres"
	if _, err := NewStore(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatalf("expected error without dsn")
	}
}
