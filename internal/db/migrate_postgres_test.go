package db_test

import (
	"context"
	"testing"

	"github.com/ayo6706/wallet-ledger/internal/db"
	"github.com/ayo6706/wallet-ledger/internal/testutil/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateRollbackAndReapply(t *testing.T) {
	pool := pgtest.Setup(t)
	ctx := context.Background()

	version, dirty, err := db.SchemaVersion(ctx, pool)
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	indexExists := func() bool {
		var exists bool
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'ledger_entries_created_id_idx')`,
		).Scan(&exists))
		return exists
	}
	require.True(t, indexExists())

	require.NoError(t, db.Rollback(ctx, pool, 1))
	version, _, err = db.SchemaVersion(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, indexExists())

	require.NoError(t, db.Migrate(ctx, pool))
	require.NoError(t, db.Migrate(ctx, pool), "second run is a no-op")
	assert.True(t, indexExists())

	require.Error(t, db.Rollback(ctx, pool, 0))
}
