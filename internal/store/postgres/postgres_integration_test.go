package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store"
	"github.com/tiki-deprecated/platform-cmp-trail-endpoint/internal/store/storetest"
)

// postgresDSN prefers TRAIL_POSTGRES_DSN and otherwise starts a throwaway
// container.
func postgresDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TRAIL_POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	if testing.Short() {
		t.Skip("TRAIL_POSTGRES_DSN not set and -short given; skipping postgres store integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "trail",
			"POSTGRES_PASSWORD": "trail",
			"POSTGRES_DB":       "trail",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("postgres://trail:trail@%s:%s/trail?sslmode=disable", host, port.Port())
}

func makePGStore(t *testing.T) store.Store {
	t.Helper()
	db, err := Open(postgresDSN(t))
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	s := NewWithDB(db)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}
