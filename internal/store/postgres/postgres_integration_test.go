package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bookmarkai/bookmark-server/internal/store"
	"github.com/bookmarkai/bookmark-server/internal/store/storetest"
)

// postgresDSN returns a DSN from BOOKMARK_SERVER_POSTGRES_DSN, or starts a throwaway
// container when BOOKMARK_SERVER_TESTCONTAINERS=1.
func postgresDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("BOOKMARK_SERVER_POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	if os.Getenv("BOOKMARK_SERVER_TESTCONTAINERS") != "1" {
		t.Skip("BOOKMARK_SERVER_POSTGRES_DSN not set; skipping postgres store integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "bookmarks",
			"POSTGRES_PASSWORD": "bookmarks",
			"POSTGRES_DB":       "bookmarks",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
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
	return fmt.Sprintf("postgres://bookmarks:bookmarks@%s:%s/bookmarks?sslmode=disable", host, port.Port())
}

func makePGStore(t *testing.T) store.Store {
	t.Helper()
	db, err := Open(postgresDSN(t))
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	s := NewWithDB(db, "test_")
	if err := Bootstrap(context.Background(), s); err != nil {
		t.Fatalf("postgres bootstrap: %v", err)
	}
	return s
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}
