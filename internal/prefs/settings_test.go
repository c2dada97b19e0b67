package prefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSaveLoad(t *testing.T) {
	f := File{Path: filepath.Join(t.TempDir(), "nested", settingsFile)}

	values, err := f.Load()
	require.NoError(t, err)
	require.Nil(t, values)

	require.NoError(t, f.Save(map[string]any{"theme": "dark", "rows": 20}))
	values, err = f.Load()
	require.NoError(t, err)
	require.Equal(t, map[string]any{"theme": "dark", "rows": float64(20)}, values)

	_, err = os.Stat(f.Path + ".tmp")
	require.True(t, os.IsNotExist(err))
}

func TestLoadRejectsGarbage(t *testing.T) {
	f := File{Path: filepath.Join(t.TempDir(), settingsFile)}
	require.NoError(t, os.WriteFile(f.Path, []byte("{nope"), 0o600))
	_, err := f.Load()
	require.Error(t, err)
}
