package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"lumen/internal/models"
	"lumen/internal/session"
	"lumen/internal/styles"
)

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, spCmd = m.Spinner.Update(msg)
		if m.Streaming {
			m.UpdateViewport()
		}
		return m, spCmd

	case StreamStartedMsg:
		m.Streaming = true
		m.StreamMode = msg.Descriptor.Mode
		m.StreamRendered = ""
		m.StreamSources = nil
		m.Notice = ""
		m.RebuildTranscript()
		return m, nil

	case StreamProgressMsg:
		m.StreamRendered = msg.Rendered
		m.StreamSources = msg.Sources
		m.UpdateViewport()
		return m, nil

	case StreamFinishedMsg:
		switch msg.State {
		case session.StateFailed:
			m.Notice = fmt.Sprintf("Error: %v", msg.Err)
		case session.StateCancelled:
			m.Notice = "Response cancelled."
		}
		m.UpdateViewport()
		return m, nil

	case SendDoneMsg:
		if errors.Is(msg.Err, session.ErrBusy) || errors.Is(msg.Err, session.ErrEmptyInput) {
			m.Notice = msg.Err.Error()
		}
		m.Streaming = false
		m.StreamRendered = ""
		m.StreamSources = nil
		m.ActionIdx = -1
		m.RebuildTranscript()
		return m, nil

	case tea.KeyMsg:
		if done, cmd := m.handleKey(msg); done {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.WindowWidth = msg.Width
		m.WindowHeight = msg.Height

		ModalWidth = msg.Width - 10
		if ModalWidth > 60 {
			ModalWidth = 60
		}
		if ModalWidth < 30 {
			ModalWidth = 30
		}
		styles.ContentWidth = ModalWidth - 6

		m.ModelViewport.Width = styles.ContentWidth
		m.ModelViewport.Height = msg.Height - 15
		if m.ModelViewport.Height > int(devFieldCount) {
			m.ModelViewport.Height = int(devFieldCount)
		}
		if m.ModelViewport.Height < 5 {
			m.ModelViewport.Height = 5
		}

		chatWidth := msg.Width - 2
		if chatWidth > MaxChatWidth {
			chatWidth = MaxChatWidth
		}
		m.Viewport.Width = chatWidth - 2

		m.updateInputLayout()
		if m.Renderer != nil {
			if err := m.Renderer.SetWidth(chatWidth - 6); err != nil {
				m.Log.Warn("resize markdown renderer", zap.Error(err))
			}
		}
		m.RebuildTranscript()
		return m, nil
	}

	m.TextInput, tiCmd = m.TextInput.Update(msg)
	m.updateInputLayout()

	// Terminal background color queries and cursor reports can leak into the input
	val := m.TextInput.Value()
	if strings.Contains(val, "]11;rgb:") || strings.Contains(val, "1;rgb:") || strings.Contains(val, "[1;1R") {
		m.TextInput.Reset()
	}
	m.syncInput()

	val = m.TextInput.Value()
	cursorPos := TextareaCursorIndex(m.TextInput)
	if prefix, _, found := GetAtPosition(val, cursorPos); found {
		if suggestions := GetFileSuggestions(prefix); len(suggestions) > 0 {
			m.FileSuggestions = suggestions
			m.FileSuggestOpen = true
			m.FileSuggestIdx = 0
		} else {
			m.FileSuggestOpen = false
		}
	} else {
		m.FileSuggestOpen = false
	}

	m.Viewport, vpCmd = m.Viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

// handleKey reports whether the key was consumed. Unconsumed keys fall
// through to the text input.
func (m *Model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return true, tea.Quit
	}

	switch {
	case m.HistoryOpen:
		return true, m.handleHistoryKey(msg)
	case m.DevPanelOpen:
		return true, m.handleDevPanelKey(msg)
	case m.ShortcutsOpen:
		switch msg.String() {
		case "esc", "enter", "?", "ctrl+s":
			m.ShortcutsOpen = false
		}
		return true, nil
	}

	if isNewlineShortcut(msg) {
		m.TextInput.InsertString("\n")
		m.FileSuggestOpen = false
		m.updateInputLayout()
		m.syncInput()
		return true, nil
	}

	if m.FileSuggestOpen {
		switch msg.String() {
		case "esc":
			m.FileSuggestOpen = false
			return true, nil
		case "up", "ctrl+p":
			m.FileSuggestIdx--
			if m.FileSuggestIdx < 0 {
				m.FileSuggestIdx = len(m.FileSuggestions) - 1
			}
			return true, nil
		case "down", "ctrl+n":
			m.FileSuggestIdx++
			if m.FileSuggestIdx >= len(m.FileSuggestions) {
				m.FileSuggestIdx = 0
			}
			return true, nil
		case "tab", "enter":
			m.selectFileSuggestion()
			return true, nil
		}
	}

	switch msg.String() {
	case "esc":
		if m.Streaming {
			m.Ctrl.Cancel()
			return true, nil
		}
		m.ActionIdx = -1
		m.Notice = ""
		return true, nil

	case "ctrl+d":
		on := m.Ctrl.ToggleDevMode()
		m.Log.Debug("developer mode toggled", zap.Bool("on", on))
		return true, nil

	case "ctrl+b":
		m.DevPanelOpen = true
		m.HistoryOpen = false
		m.ShortcutsOpen = false
		m.UpdateDevPanelContent()
		m.SyncModelViewportScroll()
		return true, nil

	case "ctrl+s":
		m.ShortcutsOpen = true
		m.DevPanelOpen = false
		m.HistoryOpen = false
		return true, nil

	case "ctrl+h":
		m.HistoryOpen = true
		m.DevPanelOpen = false
		m.ShortcutsOpen = false
		m.HistoryPage = 0
		m.HistorySelectedIdx = 0
		m.HistoryPrompts = UserPrompts(m.Ctrl.History())
		return true, nil

	case "ctrl+x":
		m.Ctrl.ClearAttachment()
		return true, nil

	case "tab":
		actions := m.Ctrl.Snapshot().Actions
		if len(actions) == 0 {
			m.ActionIdx = -1
			return true, nil
		}
		m.ActionIdx = (m.ActionIdx + 1) % len(actions)
		return true, nil

	case "enter":
		return true, m.submit()
	}
	return false, nil
}

func (m *Model) handleHistoryKey(msg tea.KeyMsg) tea.Cmd {
	page := m.historyPageItems()
	switch msg.String() {
	case "esc", "ctrl+h":
		m.HistoryOpen = false
	case "up", "k":
		if len(page) > 0 {
			m.HistorySelectedIdx = (m.HistorySelectedIdx - 1 + len(page)) % len(page)
		}
	case "down", "j":
		if len(page) > 0 {
			m.HistorySelectedIdx = (m.HistorySelectedIdx + 1) % len(page)
		}
	case "left", "h":
		if m.HistoryPage > 0 {
			m.HistoryPage--
			m.HistorySelectedIdx = 0
		}
	case "right", "l":
		if m.HistoryPage < m.historyPageCount()-1 {
			m.HistoryPage++
			m.HistorySelectedIdx = 0
		}
	case "enter":
		if m.HistorySelectedIdx < len(page) {
			m.setInput(page[m.HistorySelectedIdx])
		}
		m.HistoryOpen = false
	}
	return nil
}

func (m *Model) handleDevPanelKey(msg tea.KeyMsg) tea.Cmd {
	if m.PersonaEditing {
		switch msg.String() {
		case "enter":
			persona := strings.TrimSpace(m.PersonaInput.Value())
			m.Ctrl.UpdateDevConfig(func(c *models.DevConfig) { c.Persona = persona })
			m.PersonaEditing = false
			m.PersonaInput.Blur()
			m.UpdateDevPanelContent()
			return nil
		case "esc":
			m.PersonaEditing = false
			m.PersonaInput.Blur()
			return nil
		}
		var cmd tea.Cmd
		m.PersonaInput, cmd = m.PersonaInput.Update(msg)
		return cmd
	}

	field := DevField(m.DevFieldIdx)
	switch msg.String() {
	case "esc", "ctrl+b":
		m.DevPanelOpen = false
		return nil
	case "up", "k":
		m.DevFieldIdx = (m.DevFieldIdx - 1 + int(devFieldCount)) % int(devFieldCount)
	case "down", "j":
		m.DevFieldIdx = (m.DevFieldIdx + 1) % int(devFieldCount)
	case "left", "h":
		m.Ctrl.UpdateDevConfig(func(c *models.DevConfig) { AdjustDevField(c, field, -1) })
	case "right", "l", " ":
		m.Ctrl.UpdateDevConfig(func(c *models.DevConfig) { AdjustDevField(c, field, 1) })
	case "enter":
		if field == FieldPersona {
			m.PersonaEditing = true
			m.PersonaInput.SetValue(m.Ctrl.Snapshot().DevConfig.Persona)
			m.PersonaInput.CursorEnd()
			return m.PersonaInput.Focus()
		}
		m.Ctrl.UpdateDevConfig(func(c *models.DevConfig) { AdjustDevField(c, field, 1) })
	case "ctrl+d":
		m.Ctrl.ToggleDevMode()
	}
	m.SyncModelViewportScroll()
	m.UpdateDevPanelContent()
	return nil
}

// submit sends the current input, or the highlighted suggestion when one is
// selected. The exchange itself runs in a command; progress arrives through
// the session observer.
func (m *Model) submit() tea.Cmd {
	if m.Streaming {
		return nil
	}
	snap := m.Ctrl.Snapshot()
	if m.ActionIdx >= 0 && m.ActionIdx < len(snap.Actions) {
		m.Ctrl.UseAction(snap.Actions[m.ActionIdx])
	} else if strings.TrimSpace(snap.Input) == "" && snap.Pending == nil {
		return nil
	}

	m.TextInput.Reset()
	m.syncedInput = ""
	m.updateInputLayout()
	m.FileSuggestOpen = false
	m.ActionIdx = -1
	m.Notice = ""
	m.Streaming = true
	m.UpdateViewport()

	ctrl := m.Ctrl
	return func() tea.Msg {
		out, err := ctrl.Send(context.Background())
		return SendDoneMsg{Outcome: out, Err: err}
	}
}

func (m *Model) selectFileSuggestion() {
	if m.FileSuggestIdx >= len(m.FileSuggestions) {
		m.FileSuggestOpen = false
		return
	}
	selected := m.FileSuggestions[m.FileSuggestIdx]
	val := m.TextInput.Value()
	prefix, startPos, found := GetAtPosition(val, TextareaCursorIndex(m.TextInput))

	if info, err := os.Stat(selected); err == nil && info.IsDir() {
		if found {
			dir := strings.TrimSuffix(selected, "/") + "/"
			newVal := val[:startPos] + "@" + dir + val[startPos+1+len(prefix):]
			m.setValueAndCursor(newVal, startPos+1+len(dir))
			m.FileSuggestions = GetFileSuggestions(dir)
			m.FileSuggestIdx = 0
			m.FileSuggestOpen = len(m.FileSuggestions) > 0
		}
		return
	}

	if err := m.Ctrl.AttachFile(selected); err != nil {
		m.Notice = fmt.Sprintf("Cannot attach %s: %v", filepath.Base(selected), err)
	} else {
		m.Notice = ""
	}
	if found {
		newVal, idx := RemoveMention(val, startPos, prefix)
		m.setValueAndCursor(newVal, idx)
	}
	m.FileSuggestOpen = false
	m.syncInput()
}

func (m *Model) setValueAndCursor(value string, index int) {
	m.TextInput.SetValue(value)
	row, col := TextareaCursorFromIndex(value, index)
	SetTextareaCursor(&m.TextInput, row, col)
	m.updateInputLayout()
}

func (m *Model) setInput(text string) {
	m.TextInput.SetValue(text)
	m.TextInput.CursorEnd()
	m.updateInputLayout()
	m.syncInput()
}

// syncInput pushes the text area contents to the controller when they change.
func (m *Model) syncInput() {
	val := m.TextInput.Value()
	if val == m.syncedInput {
		return
	}
	m.syncedInput = val
	m.ActionIdx = -1
	m.Ctrl.SetInput(val)
}

func isNewlineShortcut(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "shift+enter", "shift+return", "ctrl+j", "ctrl+enter", "alt+enter":
		return true
	default:
		return false
	}
}

func (m *Model) updateInputLayout() {
	if m.WindowWidth == 0 || m.WindowHeight == 0 {
		return
	}

	inputWidth := m.WindowWidth - 6
	if inputWidth < 20 {
		inputWidth = 20
	}
	contentWidth := inputWidth - 2
	if contentWidth < 1 {
		contentWidth = 1
	}

	maxInputHeight := 6
	lineCount := WrappedLineCount(m.TextInput.Value(), contentWidth)
	if lineCount < 1 {
		lineCount = 1
	}
	if lineCount > maxInputHeight {
		lineCount = maxInputHeight
	}

	m.TextInput.MaxHeight = maxInputHeight
	m.TextInput.SetWidth(inputWidth)
	m.TextInput.SetHeight(lineCount)

	// input box, action chips and bottom bar
	reserved := m.TextInput.Height() + 2 + 8
	viewportHeight := m.WindowHeight - reserved
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	m.Viewport.Height = viewportHeight
}

// RebuildTranscript re-renders every stored turn. It runs when the
// conversation or the wrap width changes, not on each streamed fragment.
func (m *Model) RebuildTranscript() {
	history := m.Ctrl.History()
	m.Messages = m.Messages[:0]
	for i, msg := range history {
		switch msg.Role {
		case models.RoleUser:
			m.Messages = append(m.Messages, FormatUserMessage(msg, m.Viewport.Width, i == 0))
		case models.RoleModel:
			m.Messages = append(m.Messages, FormatAIMessage(msg.Mode, m.renderMarkdown(msg.Text())))
		}
	}
	if n := len(history); n > 0 && history[n-1].Role == models.RoleModel {
		if src := FormatSources(m.Ctrl.Snapshot().Sources); src != "" {
			m.Messages[len(m.Messages)-1] += "\n" + src
		}
	}
	m.UpdateViewport()
}

func (m *Model) renderMarkdown(text string) string {
	if m.Renderer == nil {
		return text
	}
	out, err := m.Renderer.Render(text)
	if err != nil {
		m.Log.Debug("markdown render failed", zap.Error(err))
		return text
	}
	return out
}

func (m *Model) historyPageCount() int {
	n := (len(m.HistoryPrompts) + HistoryPageSize - 1) / HistoryPageSize
	if n < 1 {
		return 1
	}
	return n
}

func (m *Model) historyPageItems() []string {
	start := m.HistoryPage * HistoryPageSize
	if start >= len(m.HistoryPrompts) {
		return nil
	}
	end := min(start+HistoryPageSize, len(m.HistoryPrompts))
	return m.HistoryPrompts[start:end]
}
