package persist

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/conversation"
	"lumen/internal/db"
	"lumen/internal/models"
)

type memKV map[string]string

func (m memKV) Get(key string) (string, bool, error) {
	v, ok := m[key]
	return v, ok, nil
}

func (m memKV) Set(key, value string) error {
	m[key] = value
	return nil
}

func (m memKV) Remove(key string) error {
	delete(m, key)
	return nil
}

type brokenKV struct{}

var errDisk = errors.New("disk on fire")

func (brokenKV) Get(string) (string, bool, error) { return "", false, errDisk }
func (brokenKV) Set(string, string) error         { return errDisk }
func (brokenKV) Remove(string) error              { return errDisk }

func TestHistoryRoundTrip(t *testing.T) {
	store, err := db.Open(filepath.Join(t.TempDir(), db.FileName))
	require.NoError(t, err)
	defer store.Close()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	conv := conversation.New(nil)
	conv.Append(models.NewUserMessage("what is this?", &models.Attachment{Data: "aGVsbG8=", MIMEType: "image/png"}, now))
	conv.Append(models.NewModelMessage("A cat.", "Visual Analysis", now.Add(time.Second)))
	conv.Append(models.NewUserMessage("thanks", nil, now.Add(2*time.Second)))

	a := New(store, nil)
	a.SaveHistory(conv.Messages())

	restored := conversation.New(New(store, nil).LoadHistory())
	assert.Equal(t, conv.Messages(), restored.Messages())
}

func TestLoadHistoryMissingOrCorrupt(t *testing.T) {
	kv := memKV{}
	a := New(kv, nil)
	assert.Empty(t, a.LoadHistory())

	kv[KeyHistory] = "{not json"
	assert.Empty(t, a.LoadHistory())
}

func TestLoadHistoryDropsMalformedTurns(t *testing.T) {
	kv := memKV{KeyHistory: `[
		{"role":"user","parts":[{"text":"hi"}],"timestamp":"2025-01-01T00:00:00Z"},
		{"role":"robot","parts":[{"text":"??"}],"timestamp":"2025-01-01T00:00:00Z"},
		{"role":"model","parts":[],"timestamp":"2025-01-01T00:00:00Z"}
	]`}
	msgs := New(kv, nil).LoadHistory()
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text())
}

func TestDevConfigOverlaysDefaults(t *testing.T) {
	kv := memKV{KeyDevConfig: `{"persona":"pirate","temperature":7,"safety":"BLOCK_NONE"}`}
	cfg := New(kv, nil).LoadDevConfig()

	assert.Equal(t, "pirate", cfg.Persona)
	assert.Equal(t, models.MaxTemperature, cfg.Temperature)
	assert.Equal(t, models.BlockNone, cfg.Safety)
	assert.Equal(t, 0.95, cfg.TopP)
	assert.Equal(t, int32(models.DefaultMaxTokens), cfg.MaxOutputTokens)
	assert.Equal(t, models.ModelFlash, cfg.Model)
}

func TestCorruptRecordOnlyResetsItself(t *testing.T) {
	kv := memKV{
		KeyDevConfig: `{"safety":"BLOCK_EVERYTHING"}`,
		KeyDevMode:   `true`,
	}
	a := New(kv, nil)
	assert.Equal(t, models.DefaultDevConfig(), a.LoadDevConfig())
	assert.True(t, a.LoadDevMode())
}

func TestDevModeAndConfigSaved(t *testing.T) {
	kv := memKV{}
	a := New(kv, nil)

	cfg := models.DefaultDevConfig()
	cfg.Tools.Maps = true
	cfg.ForceManualTools = true
	a.SaveDevConfig(cfg)
	a.SaveDevMode(true)

	assert.Equal(t, cfg, a.LoadDevConfig())
	assert.True(t, a.LoadDevMode())

	a.Reset()
	assert.Empty(t, kv)
	assert.False(t, a.LoadDevMode())
}

func TestFailuresAreSwallowed(t *testing.T) {
	a := New(brokenKV{}, nil)
	assert.NotPanics(t, func() {
		a.SaveHistory(nil)
		a.SaveDevMode(true)
		a.Reset()
	})
	assert.Empty(t, a.LoadHistory())
	assert.Equal(t, models.DefaultDevConfig(), a.LoadDevConfig())
	assert.False(t, a.LoadDevMode())
}
