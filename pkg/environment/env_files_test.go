package environment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEnvFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	content := `# secrets
OPENROUTER_API_KEY=sk-or-123
export OPENCLAW_GATEWAY_TOKEN="quoted token"
SINGLE='single'

EMPTY=
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	values, err := ReadEnvFile(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-or-123", values.Get(t.Context(), "OPENROUTER_API_KEY"))
	assert.Equal(t, "quoted token", values.Get(t.Context(), "OPENCLAW_GATEWAY_TOKEN"))
	assert.Equal(t, "single", values.Get(t.Context(), "SINGLE"))
	assert.Empty(t, values.Get(t.Context(), "EMPTY"))
	assert.Empty(t, values.Get(t.Context(), "MISSING"))
}

func TestReadEnvFileInvalidLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("NOT_A_PAIR\n"), 0o600))

	_, err := ReadEnvFile(path)
	require.ErrorContains(t, err, "line 1: missing '='")
}

func TestReadEnvFileMissing(t *testing.T) {
	t.Parallel()

	_, err := ReadEnvFile(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestOsEnvProvider(t *testing.T) {
	t.Setenv("MODEL_SWITCHER_TEST", "VALUE1")

	assert.Equal(t, "VALUE1", NewOsEnvProvider().Get(t.Context(), "MODEL_SWITCHER_TEST"))
}
