package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lumen/internal/config"
	"lumen/internal/db"
	"lumen/internal/persist"
)

// execute runs the root command with fresh flag state and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, backendName, verbose = "", "", false
	askImage, askDev = "", false
	forceInit = false

	for _, k := range []string{"LUMEN_BACKEND", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OPENROUTER_API_KEY"} {
		t.Setenv(k, "")
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Backend, cfg.Backend)
	assert.Equal(t, 100, cfg.Markdown.WordWrap)
}

func TestConfigInitKeepsExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	_, err := execute(t, "--config", path, "config", "init")
	require.NoError(t, err)

	_, err = execute(t, "--config", path, "config", "init")
	assert.ErrorContains(t, err, "already exists")

	_, err = execute(t, "--config", path, "--backend", config.BackendOpenRouter, "config", "init", "--force")
	require.NoError(t, err)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.BackendOpenRouter, cfg.Backend)
}

func TestResetRemovesOnlyOwnedRecords(t *testing.T) {
	dir := t.TempDir()
	store, err := db.OpenLumenDB(dir)
	require.NoError(t, err)
	p := persist.New(store, zap.NewNop())
	p.SaveDevMode(true)
	p.SaveHistory(nil)
	require.NoError(t, store.Set("other.app", "kept"))
	require.NoError(t, store.Close())

	t.Setenv("LUMEN_DATA_DIR", dir)
	out, err := execute(t, "--config", filepath.Join(dir, "missing.toml"), "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "(2 saved records removed)")

	store, err = db.OpenLumenDB(dir)
	require.NoError(t, err)
	defer store.Close()
	keys, err := store.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"other.app"}, keys)
}
