package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStoreGetSetRemove(t *testing.T) {
	s := openTemp(t)

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set("k", "v1"))
	require.NoError(t, s.Set("k", "v2"))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v2", v)

	require.NoError(t, s.Remove("k"))
	_, ok, err = s.Get("k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Remove("never-set"))
}

func TestStoreKeys(t *testing.T) {
	s := openTemp(t)
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestOpenLumenDBReopens(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s, err := OpenLumenDB(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set("lumen.dev_mode", "true"))
	require.NoError(t, s.Close())

	s, err = OpenLumenDB(dir)
	require.NoError(t, err)
	defer s.Close()
	v, ok, err := s.Get("lumen.dev_mode")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", v)
}
