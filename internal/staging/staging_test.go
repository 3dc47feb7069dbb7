package staging

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_Save(t *testing.T) {
	root := filepath.Join(t.TempDir(), "imports")
	d := NewDir(root)

	first, err := d.Save(strings.NewReader("name,debtId\nA,1\n"))
	require.NoError(t, err)
	second, err := d.Save(strings.NewReader("other"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, root, filepath.Dir(first))
	assert.True(t, strings.HasPrefix(filepath.Base(first), "debts_import_"))
	assert.Equal(t, ".csv", filepath.Ext(first))

	body, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "name,debtId\nA,1\n", string(body))

	require.NoError(t, d.Remove(first))
	_, err = os.Stat(first)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, d.Remove(first), "removing twice is fine")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestDir_SaveCleansUpOnReadError(t *testing.T) {
	root := t.TempDir()
	_, err := NewDir(root).Save(failingReader{})
	require.Error(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
