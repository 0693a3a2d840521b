package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumen/internal/app"
	"lumen/internal/backend/backendtest"
	"lumen/internal/conversation"
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

func newTestModel(t *testing.T, fake *backendtest.Scripted) (*Model, *app.Controller) {
	t.Helper()
	p := persist.New(memKV{}, nil)
	store := conversation.New(nil)
	driver := session.New(fake, store, session.WithHistorySaver(p))
	ctrl := app.New(store, driver, p, nil)

	m := InitialModel(ctrl, nil, nil)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &m, ctrl
}

func typeText(m *Model, s string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// press delivers a key and runs the command it returns, feeding a resulting
// SendDoneMsg back into the model.
func press(t *testing.T, m *Model, k tea.KeyType) {
	t.Helper()
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	if cmd == nil {
		return
	}
	if done, ok := cmd().(SendDoneMsg); ok {
		m.Update(done)
	}
}

func TestTypingSyncsController(t *testing.T) {
	m, ctrl := newTestModel(t, backendtest.Text())

	typeText(m, "search for the news")
	s := ctrl.Snapshot()
	assert.Equal(t, "search for the news", s.Input)
	assert.Equal(t, request.LabelSearch, s.Preview.Mode)
	assert.Contains(t, m.RenderBottomBar(s), request.LabelSearch)
}

func TestEnterSendsAndRebuildsTranscript(t *testing.T) {
	fake := backendtest.Text("Hello ", "there")
	m, ctrl := newTestModel(t, fake)

	typeText(m, "hi")
	press(t, m, tea.KeyEnter)

	require.Len(t, fake.Requests(), 1)
	assert.Equal(t, "hi", fake.Requests()[0].Turn.Text())
	assert.False(t, m.Streaming)
	assert.Empty(t, m.TextInput.Value())
	assert.Empty(t, ctrl.Snapshot().Input)
	require.Len(t, m.Messages, 2)
	assert.Contains(t, m.Messages[1], "Hello there")
	assert.Equal(t, session.StateCompleted, ctrl.Snapshot().Session)
}

func TestEnterOnEmptyInputDoesNothing(t *testing.T) {
	fake := backendtest.Text("x")
	m, _ := newTestModel(t, fake)

	press(t, m, tea.KeyEnter)
	assert.Empty(t, fake.Requests())
	assert.False(t, m.Streaming)
}

func TestTabSelectsSuggestion(t *testing.T) {
	fake := backendtest.Text("ok")
	m, ctrl := newTestModel(t, fake)

	actions := ctrl.Snapshot().Actions
	require.NotEmpty(t, actions)

	press(t, m, tea.KeyTab)
	assert.Equal(t, 0, m.ActionIdx)
	assert.Contains(t, m.RenderActions(ctrl.Snapshot()), actions[0].Label)

	press(t, m, tea.KeyEnter)
	require.Len(t, fake.Requests(), 1)
	assert.Equal(t, actions[0].Prompt, fake.Requests()[0].Turn.Text())
	assert.Equal(t, -1, m.ActionIdx)
}

func TestTypingClearsSuggestionHighlight(t *testing.T) {
	m, _ := newTestModel(t, backendtest.Text())

	press(t, m, tea.KeyTab)
	require.Equal(t, 0, m.ActionIdx)
	typeText(m, "a")
	assert.Equal(t, -1, m.ActionIdx)
}

func TestDevPanelAdjustsConfig(t *testing.T) {
	m, ctrl := newTestModel(t, backendtest.Text())

	press(t, m, tea.KeyCtrlB)
	require.True(t, m.DevPanelOpen)

	press(t, m, tea.KeyDown)
	press(t, m, tea.KeyRight)
	assert.InDelta(t, 1.1, ctrl.Snapshot().DevConfig.Temperature, 1e-9)

	press(t, m, tea.KeyUp)
	press(t, m, tea.KeyUp)
	assert.Equal(t, int(FieldPersona), m.DevFieldIdx)
	press(t, m, tea.KeyEnter)
	require.True(t, m.PersonaEditing)
	typeText(m, "be brief")
	press(t, m, tea.KeyEnter)
	assert.False(t, m.PersonaEditing)
	assert.Equal(t, "be brief", ctrl.Snapshot().DevConfig.Persona)

	press(t, m, tea.KeyEsc)
	assert.False(t, m.DevPanelOpen)
}

func TestToggleDevModeShowsBadge(t *testing.T) {
	m, ctrl := newTestModel(t, backendtest.Text())

	press(t, m, tea.KeyCtrlD)
	s := ctrl.Snapshot()
	assert.True(t, s.DevMode)
	assert.Contains(t, m.RenderBottomBar(s), "DEV")
}

func TestHistoryModalRefillsInput(t *testing.T) {
	m, ctrl := newTestModel(t, backendtest.Text("answer"))

	typeText(m, "what is go")
	press(t, m, tea.KeyEnter)

	press(t, m, tea.KeyCtrlH)
	require.True(t, m.HistoryOpen)
	assert.Equal(t, []string{"what is go"}, m.HistoryPrompts)

	press(t, m, tea.KeyEnter)
	assert.False(t, m.HistoryOpen)
	assert.Equal(t, "what is go", m.TextInput.Value())
	assert.Equal(t, "what is go", ctrl.Snapshot().Input)
}

func TestClearAttachment(t *testing.T) {
	m, ctrl := newTestModel(t, backendtest.Text())

	ctrl.Attach(models.Attachment{Data: "aGk=", MIMEType: "image/png", Name: "cat.png"})
	assert.Contains(t, m.RenderPendingAttachment(ctrl.Snapshot()), "cat.png")

	press(t, m, tea.KeyCtrlX)
	assert.Nil(t, ctrl.Snapshot().Pending)
	assert.Empty(t, m.RenderPendingAttachment(ctrl.Snapshot()))
}

func TestFailedStreamShowsNotice(t *testing.T) {
	fake := backendtest.Text("partial")
	fake.Err = assert.AnError
	m, _ := newTestModel(t, fake)

	typeText(m, "hi")
	press(t, m, tea.KeyEnter)
	m.Update(StreamFinishedMsg{session.Outcome{State: session.StateFailed, Err: assert.AnError}})

	assert.Contains(t, m.Notice, assert.AnError.Error())
	require.Len(t, m.Messages, 1, "failed replies are not kept")
}
