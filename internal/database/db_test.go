package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_InMemoryAppliesSchema(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{Path: MemoryPath})
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{
		"investments", "screener_types", "screener_filters",
		"financial_statements", "due_diligence_reports", "cboe_securities",
	} {
		var name string
		err := db.Conn().QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{Path: MemoryPath})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))

	var applied int
	require.NoError(t, db.Conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	assert.Equal(t, 1, applied)
}

func TestNew_CreatesDirectoryForFileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "optiscreen.db")

	db, err := Open(context.Background(), Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	assert.NoError(t, db.QuickCheck(context.Background()))
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, Config{Path: MemoryPath})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Conn().ExecContext(ctx, `INSERT INTO screener_filters
		(screener_type_id, label, payload, display_order, created_at, updated_at)
		VALUES (999, 'orphan', '{}', 1, 'now', 'now')`)
	assert.Error(t, err)
}
