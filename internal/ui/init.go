package ui

import (
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"lumen/internal/app"
	"lumen/internal/render"
	"lumen/internal/session"
	"lumen/internal/styles"
)

func InitialModel(ctrl *app.Controller, renderer *render.Resizable, log *zap.Logger) Model {
	if log == nil {
		log = zap.NewNop()
	}

	ti := textarea.New()
	ti.Placeholder = "Ask anything, or @ to attach an image or video..."
	ti.Prompt = "❯ "
	ti.ShowLineNumbers = false
	ti.CharLimit = 0
	ti.MaxHeight = 6
	ti.SetHeight(2)
	ti.SetWidth(80)
	ti.FocusedStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.BlurredStyle.Prompt = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB")).Bold(true)
	ti.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(styles.HintColor)
	ti.BlurredStyle.Placeholder = lipgloss.NewStyle().Foreground(styles.HintColor)
	ti.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ti.BlurredStyle.CursorLine = lipgloss.NewStyle()
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#B39DDB"))

	pi := textinput.New()
	pi.Placeholder = "Describe how the model should behave..."
	pi.Prompt = "› "
	pi.CharLimit = 2000

	cwd, _ := os.Getwd()

	m := Model{
		Ctrl:          ctrl,
		Renderer:      renderer,
		Log:           log.Named("ui"),
		TextInput:     ti,
		Viewport:      viewport.New(60, 15),
		PersonaInput:  pi,
		ModelViewport: viewport.New(ModalWidth-4, 15),
		Spinner:       sp,
		ActionIdx:     -1,
		WorkingDir:    cwd,
	}
	m.syncedInput = ctrl.Snapshot().Input
	m.TextInput.SetValue(m.syncedInput)
	m.RebuildTranscript()
	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.TextInput.Cursor.BlinkCmd(),
		m.Spinner.Tick,
	)
}

// NewProgram builds the full-screen program. Callers register Observer(p)
// with the session driver so stream events reach the UI.
func NewProgram(ctrl *app.Controller, renderer *render.Resizable, log *zap.Logger) *tea.Program {
	m := InitialModel(ctrl, renderer, log)
	p := tea.NewProgram(&m, tea.WithAltScreen())
	m.Program = p
	return p
}

type programObserver struct {
	p *tea.Program
}

// Observer forwards session events into p's update loop.
func Observer(p *tea.Program) session.Observer {
	return programObserver{p: p}
}

func (o programObserver) Started(s session.Start)      { o.p.Send(StreamStartedMsg{s}) }
func (o programObserver) Progress(pr session.Progress) { o.p.Send(StreamProgressMsg{pr}) }
func (o programObserver) Finished(out session.Outcome) { o.p.Send(StreamFinishedMsg{out}) }
