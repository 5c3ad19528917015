package secret

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_CreatesOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.uuid")

	first, err := Generate(path)
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	second, err := Generate(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoad_TrimsWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secret.uuid")
	require.NoError(t, os.WriteFile(path, []byte("  s3cret\n"), 0o600))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, []byte("\n"), 0o600))
	_, err = Load(empty)
	assert.ErrorContains(t, err, "empty")
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("abc", "abc"))
	assert.False(t, Equal("abc", "abd"))
	assert.False(t, Equal("abc", "ab"))
	assert.False(t, Equal("abc", ""))
	assert.False(t, Equal("abc", "ABC"))
	assert.False(t, Equal("", ""))
}
