package json

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")

	require.NoError(t, NewWriter().WriteJSON(path, map[string]int{"a": 1}))

	var got map[string]int
	require.NoError(t, NewReader().ReadJSON(path, &got))
	require.Equal(t, map[string]int{"a": 1}, got)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestReadErrors(t *testing.T) {
	dir := t.TempDir()

	var v map[string]int
	err := NewReader().ReadJSON(filepath.Join(dir, "missing.json"), &v)
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.NotErrorIs(t, err, ErrMalformed)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0644))
	err = NewReader().ReadJSON(bad, &v)
	require.ErrorIs(t, err, ErrMalformed)
}
