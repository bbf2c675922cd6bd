package sqliteutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenCreatesDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "test.db")
	db, err := Open(t.Context(), path)
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRowContext(t.Context(), "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpenParentIsFile(t *testing.T) {
	t.Parallel()

	parent := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(parent, []byte("x"), 0o600))

	_, err := Open(t.Context(), filepath.Join(parent, "test.db"))
	require.Error(t, err)
}

func TestIsCantOpenError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsCantOpenError(nil))
	assert.False(t, IsCantOpenError(errors.New("boom")))
}
