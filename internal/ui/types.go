package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"lumen/internal/app"
	"lumen/internal/models"
	"lumen/internal/render"
	"lumen/internal/session"
)

const (
	MaxChatWidth = 100

	HistoryPageSize = 10

	MaxFileSuggestions = 10
)

// ModalWidth shrinks with narrow terminals.
var ModalWidth = 60

type (
	StreamStartedMsg  struct{ session.Start }
	StreamProgressMsg struct{ session.Progress }
	StreamFinishedMsg struct{ session.Outcome }

	// SendDoneMsg is returned by the send command once the controller has
	// folded the outcome into its state.
	SendDoneMsg struct {
		Outcome session.Outcome
		Err     error
	}
)

// DevField is one editable row of the developer panel.
type DevField int

const (
	FieldModel DevField = iota
	FieldTemperature
	FieldTopP
	FieldMaxTokens
	FieldSafety
	FieldSearch
	FieldMaps
	FieldReasoning
	FieldForceManual
	FieldPersona
	devFieldCount
)

var devFieldNames = [...]string{
	FieldModel:       "Base model",
	FieldTemperature: "Temperature",
	FieldTopP:        "Top P",
	FieldMaxTokens:   "Max output",
	FieldSafety:      "Safety",
	FieldSearch:      "Search tool",
	FieldMaps:        "Maps tool",
	FieldReasoning:   "Reasoning",
	FieldForceManual: "Force manual",
	FieldPersona:     "Persona",
}

func (f DevField) String() string {
	if f < 0 || f >= devFieldCount {
		return ""
	}
	return devFieldNames[f]
}

type Model struct {
	Ctrl     *app.Controller
	Renderer *render.Resizable
	Log      *zap.Logger
	Program  *tea.Program

	Viewport     viewport.Model
	Messages     []string
	TextInput    textarea.Model
	syncedInput  string
	Spinner      spinner.Model
	WindowWidth  int
	WindowHeight int

	// In-flight exchange, fed by the session observer.
	Streaming      bool
	StreamMode     string
	StreamRendered string
	StreamSources  []models.SourceCard
	Notice         string

	// Highlighted suggestion chip; -1 when none.
	ActionIdx int

	HistoryOpen        bool
	HistoryPrompts     []string
	HistorySelectedIdx int
	HistoryPage        int

	DevPanelOpen   bool
	DevFieldIdx    int
	PersonaEditing bool
	PersonaInput   textinput.Model
	ModelViewport  viewport.Model

	ShortcutsOpen bool

	// @mention media autocomplete
	FileSuggestOpen bool
	FileSuggestions []string
	FileSuggestIdx  int

	WorkingDir string
}
