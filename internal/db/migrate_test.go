package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsPairUpAndDown(t *testing.T) {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, name := range names {
		base := strings.TrimPrefix(name, "migrations/")
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			ups[strings.TrimSuffix(base, ".up.sql")] = true
		case strings.HasSuffix(base, ".down.sql"):
			downs[strings.TrimSuffix(base, ".down.sql")] = true
		default:
			t.Fatalf("unexpected migration file %s", base)
		}
	}
	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs, "every up migration needs a down migration")
}

func TestEmbeddedMigrationsReadableBySource(t *testing.T) {
	src, err := iofs.New(migrationFiles, "migrations")
	require.NoError(t, err)
	defer src.Close()

	first, err := src.First()
	require.NoError(t, err)
	assert.Equal(t, uint(1), first)

	up, ident, err := src.ReadUp(first)
	require.NoError(t, err)
	defer up.Close()
	assert.Equal(t, "wallet_ledger", ident)

	next, err := src.Next(first)
	require.NoError(t, err)
	assert.Equal(t, uint(2), next)

	down, _, err := src.ReadDown(next)
	require.NoError(t, err)
	defer down.Close()

	body, err := migrationFiles.ReadFile("migrations/000001_wallet_ledger.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(body), "ledger_entries_account_seq_unique")
	assert.Contains(t, string(body), "accounts_balance_non_negative")
}
