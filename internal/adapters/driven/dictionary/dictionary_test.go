package dictionary

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_BuiltinWords(t *testing.T) {
	d := New()
	assert.Greater(t, d.Size(), 1000)
	assert.True(t, d.Contains("invoice"))
	assert.True(t, d.Contains("The"))
	assert.False(t, d.Contains("xqzvt"))
}

func TestLoad_MergesFilesAndSkipsMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "words")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nKubernetes\n\nxqzvt\n"), 0600))

	d, err := Load(path, filepath.Join(t.TempDir(), "missing"), "")
	require.NoError(t, err)
	assert.True(t, d.Contains("kubernetes"))
	assert.True(t, d.Contains("xqzvt"))
	assert.False(t, d.Contains("# comment"))
	assert.Equal(t, New().Size()+2, d.Size())
}

func TestLoad_DirectoryIsError(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
