// Package pgtest provisions a migrated Postgres pool for integration tests.
// DATABASE_URL points the tests at an existing server; otherwise
// WALLET_TESTCONTAINERS=1 starts a throwaway container. With neither set the
// calling test is skipped.
package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ayo6706/wallet-ledger/internal/db"
	"github.com/ayo6706/wallet-ledger/internal/testutil/dblock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var tables = []string{
	"audit_log",
	"idempotency_keys",
	"orders",
	"withdrawal_requests",
	"payment_reports",
	"ledger_entries",
	"accounts",
}

// Setup returns a pool on an empty, migrated schema.
func Setup(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	connString := os.Getenv("DATABASE_URL")
	switch {
	case connString != "":
		release := dblock.Acquire()
		t.Cleanup(release)
	case os.Getenv("WALLET_TESTCONTAINERS") == "1":
		connString = startContainer(t)
	default:
		t.Skip("set DATABASE_URL or WALLET_TESTCONTAINERS=1 to run Postgres tests")
	}

	pool, err := db.Connect(ctx, connString)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.Migrate(ctx, pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	// The append-only trigger blocks DELETE on ledger_entries but not TRUNCATE.
	for _, table := range tables {
		if _, err := pool.Exec(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
	return pool
}

func startContainer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("wallet_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}
	return connStr
}
