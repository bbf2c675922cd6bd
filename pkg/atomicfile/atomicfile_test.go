package atomicfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCreatesParentDirs(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	require.NoError(t, Write(path, []byte(`{"a":1}`)))

	data, err := Read(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestWriteReplacesContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "state.json")

	require.NoError(t, Write(path, []byte("first version, quite a bit longer")))
	require.NoError(t, Write(path, []byte("second")))

	data, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")

	for range 5 {
		require.NoError(t, Write(path, []byte("x")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "state.json", entries[0].Name())
}

func TestWriteFailureKeepsTarget(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	require.NoError(t, Write(path, []byte("original")))

	// state.json is a regular file, so it cannot be used as a parent directory.
	err := Write(filepath.Join(path, "child.json"), []byte("new"))
	require.Error(t, err)

	data, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestReadNotFound(t *testing.T) {
	t.Parallel()

	_, err := Read(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, ErrNotFound)
}
