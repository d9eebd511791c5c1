package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSQLite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "lrs.db")
	db, err := NewSQLite(path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	_, err = os.Stat(path)
	assert.NoError(t, err)

	for _, table := range []string{"statements", "lrs", "clients"} {
		var name string
		err := db.QueryRowContext(context.Background(),
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, "table %s", table)
		assert.Equal(t, table, name)
	}
}

func TestNewSQLite_Reopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lrs.db")
	db, err := NewSQLite(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = NewSQLite(path)
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}
