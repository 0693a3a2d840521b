package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/backend/backendtest"
	"lumen/internal/conversation"
	"lumen/internal/media"
	"lumen/internal/models"
	"lumen/internal/persist"
	"lumen/internal/request"
	"lumen/internal/session"
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

func newController(t *testing.T, fake *backendtest.Scripted, kv memKV) (*Controller, *conversation.Store) {
	t.Helper()
	p := persist.New(kv, nil)
	store := conversation.New(p.LoadHistory())
	driver := session.New(fake, store, session.WithHistorySaver(p))
	return New(store, driver, p, nil), store
}

func TestPreviewFollowsInput(t *testing.T) {
	c, _ := newController(t, backendtest.Text(), memKV{})

	s := c.Snapshot()
	assert.Equal(t, request.LabelFast, s.Preview.Mode)
	assert.Equal(t, []string{"Brainstorm ideas", "Make a plan"}, labelsOf(s.Actions))

	c.SetInput("search for today's weather in Tokyo")
	s = c.Snapshot()
	assert.Equal(t, request.LabelSearch, s.Preview.Mode)
	assert.Equal(t, session.StateDrafting, s.Session)
	assert.Equal(t, "Deep dive", s.Actions[0].Label)

	c.Attach(models.Attachment{Data: "aGk=", MIMEType: "image/png"})
	s = c.Snapshot()
	assert.Equal(t, request.LabelVisual, s.Preview.Mode)
	assert.Equal(t, "Describe", s.Actions[0].Label)

	c.ClearAttachment()
	c.SetInput("")
	assert.Equal(t, session.StateIdle, c.Snapshot().Session)
}

func TestDevModeIsPersisted(t *testing.T) {
	kv := memKV{}
	c, _ := newController(t, backendtest.Text(), kv)

	assert.True(t, c.ToggleDevMode())
	cfg := c.UpdateDevConfig(func(cfg *models.DevConfig) {
		cfg.Temperature = 9
		cfg.Persona = "terse"
	})
	assert.Equal(t, models.MaxTemperature, cfg.Temperature)

	s := c.Snapshot()
	assert.True(t, s.DevMode)
	assert.Contains(t, s.Preview.Mode, request.DevSuffix)

	reloaded, _ := newController(t, backendtest.Text(), kv)
	s = reloaded.Snapshot()
	assert.True(t, s.DevMode)
	assert.Equal(t, "terse", s.DevConfig.Persona)
	assert.Equal(t, models.MaxTemperature, s.DevConfig.Temperature)
}

func TestSendClearsInputAndAttachment(t *testing.T) {
	kv := memKV{}
	fake := backendtest.Text("```go\nfmt.Println(1)\n```")
	c, store := newController(t, fake, kv)

	c.SetInput("describe")
	c.Attach(models.Attachment{Data: "aGk=", MIMEType: "image/png"})
	out, err := c.Send(context.Background())
	require.NoError(t, err)
	assert.Equal(t, session.StateCompleted, out.State)

	s := c.Snapshot()
	assert.Empty(t, s.Input)
	assert.Nil(t, s.Pending)
	assert.Equal(t, []string{"Refactor", "Add comments", "Verify"}, labelsOf(s.Actions))
	assert.Equal(t, 2, store.Len())

	// Restarting restores the conversation from persistence.
	_, restored := newController(t, backendtest.Text(), kv)
	assert.Equal(t, store.Messages(), restored.Messages())
}

func TestSendEmpty(t *testing.T) {
	fake := backendtest.Text("x")
	c, _ := newController(t, fake, memKV{})
	_, err := c.Send(context.Background())
	assert.ErrorIs(t, err, session.ErrEmptyInput)
	assert.Empty(t, fake.Requests())
}

func TestAttachFile(t *testing.T) {
	c, _ := newController(t, backendtest.Text(), memKV{})
	dir := t.TempDir()

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("plain"), 0o600))
	assert.ErrorIs(t, c.AttachFile(txt), media.ErrUnsupported)
	assert.Nil(t, c.Snapshot().Pending)

	png := filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(png, []byte("\x89PNG\r\n\x1a\n"), 0o600))
	require.NoError(t, c.AttachFile(png))
	s := c.Snapshot()
	require.NotNil(t, s.Pending)
	assert.Equal(t, "shot.png", s.Pending.Name)
	assert.Equal(t, models.MediaImage, s.Pending.Kind())
}

func TestUseAction(t *testing.T) {
	c, _ := newController(t, backendtest.Text(), memKV{})
	c.UseAction(models.Action{Label: "Make a plan", Prompt: "plan my week"})
	s := c.Snapshot()
	assert.Equal(t, "plan my week", s.Input)
	assert.Equal(t, request.LabelReasoning, s.Preview.Mode)
}

func labelsOf(actions []models.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Label
	}
	return out
}

func TestSendWhileBusyKeepsDraft(t *testing.T) {
	p := persist.New(memKV{}, nil)
	store := conversation.New(nil)
	fake := backendtest.Text("slow answer")
	fake.Gate = make(chan struct{})
	driver := session.New(fake, store, session.WithHistorySaver(p))
	c := New(store, driver, p, nil)

	done := make(chan error, 1)
	go func() {
		_, err := driver.Send(context.Background(), session.Input{Text: "first"})
		done <- err
	}()
	require.Eventually(t, func() bool {
		return driver.State() == session.StateStreaming
	}, time.Second, 5*time.Millisecond)

	c.SetInput("second")
	att := models.Attachment{Data: "aGk=", MIMEType: "image/png", Name: "cat.png"}
	c.Attach(att)

	_, err := c.Send(context.Background())
	assert.ErrorIs(t, err, session.ErrBusy)

	s := c.Snapshot()
	assert.Equal(t, "second", s.Input)
	require.NotNil(t, s.Pending)
	assert.Equal(t, att, *s.Pending)

	close(fake.Gate)
	require.NoError(t, <-done)
	assert.Len(t, fake.Requests(), 1)
}
