package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"lumen/internal/app"
	"lumen/internal/models"
	"lumen/internal/styles"
)

func (m *Model) UpdateDevPanelContent() {
	cfg := m.Ctrl.Snapshot().DevConfig
	items := make([]string, 0, int(devFieldCount))
	for f := DevField(0); f < devFieldCount; f++ {
		line := styles.FieldNameStyle.Render(f.String()) + " " + FormatDevValue(f, cfg)
		if int(f) == m.DevFieldIdx {
			items = append(items, styles.ModalSelectedStyle.Width(styles.ContentWidth).Render(line))
		} else {
			items = append(items, styles.ModalItemStyle.Width(styles.ContentWidth).Render(line))
		}
	}
	m.ModelViewport.SetContent(lipgloss.JoinVertical(lipgloss.Left, items...))
}

func (m *Model) RenderDevPanel() string {
	snap := m.Ctrl.Snapshot()
	state := "off"
	if snap.DevMode {
		state = "on"
	}
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Developer Settings (mode %s)", state))

	parts := []string{title, m.ModelViewport.View()}
	if m.PersonaEditing {
		parts = append(parts, "", styles.InputBoxStyle.Width(styles.ContentWidth-2).Render(m.PersonaInput.View()))
	}

	hint := "↑/↓: field • ←/→: adjust • Enter: edit persona • ^D: toggle mode • Esc: close"
	if m.PersonaEditing {
		hint = "Enter: save persona • Esc: discard"
	}
	parts = append(parts, lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render(hint))

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) RenderHistorySelector() string {
	title := styles.ModalTitleStyle.Render(fmt.Sprintf("Previous Prompts (%d) - Page %d/%d",
		len(m.HistoryPrompts), m.HistoryPage+1, m.historyPageCount()))

	var body string
	page := m.historyPageItems()
	if len(page) == 0 {
		body = styles.ModalItemStyle.Render(lipgloss.NewStyle().Foreground(styles.HintColor).Render("No prompts yet"))
	} else {
		items := make([]string, 0, len(page))
		for i, prompt := range page {
			cursor := "  "
			if i == m.HistorySelectedIdx {
				cursor = "> "
			}
			line := cursor + TruncateRunes(PromptPreview(prompt), styles.ContentWidth-2-len(cursor))
			if i == m.HistorySelectedIdx {
				items = append(items, styles.ModalSelectedStyle.Render(line))
			} else {
				items = append(items, styles.ModalItemStyle.Render(line))
			}
		}
		body = lipgloss.JoinVertical(lipgloss.Left, items...)
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body)
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("↑/↓: navigate • ←/→: page • Enter: reuse • Esc: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderShortcutsModal() string {
	title := styles.ModalTitleStyle.Render("Keyboard Shortcuts")

	shortcuts := []struct {
		key  string
		desc string
	}{
		{"Enter", "Send (or the highlighted suggestion)"},
		{"Tab", "Cycle suggestions"},
		{"Esc", "Cancel response"},
		{"@", "Attach image or video"},
		{"Ctrl+X", "Remove attachment"},
		{"Ctrl+D", "Toggle developer mode"},
		{"Ctrl+B", "Developer settings"},
		{"Ctrl+H", "Previous prompts"},
		{"Ctrl+S", "Shortcuts (this menu)"},
		{"Ctrl+C", "Quit"},
	}

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFCC80")).
		Bold(true).
		Width(12)
	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#E0E0E0"})

	items := make([]string, 0, len(shortcuts))
	for _, s := range shortcuts {
		line := fmt.Sprintf("%s %s", keyStyle.Render(s.key), descStyle.Render(s.desc))
		items = append(items, styles.ModalItemStyle.Render(line))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, items...))
	hint := lipgloss.NewStyle().
		Foreground(styles.HintColor).
		Width(styles.ContentWidth).
		PaddingTop(1).
		Render("Esc/Enter: close")

	return lipgloss.JoinVertical(lipgloss.Left, content, hint)
}

func (m *Model) RenderBottomBar(snap app.State) string {
	// Mode the current input would be sent with
	mode := styles.BadgeStyle(styles.AffordanceColor(snap.Preview.Affordance)).Render(snap.Preview.Mode)
	if snap.DevMode {
		mode = lipgloss.JoinHorizontal(lipgloss.Center,
			styles.BadgeStyle(styles.CurrentTheme.ModeDev).Render("DEV"), " ", mode)
	}

	cwdDisplay := m.WorkingDir
	if home, err := os.UserHomeDir(); err == nil && strings.HasPrefix(cwdDisplay, home) {
		cwdDisplay = "~" + cwdDisplay[len(home):]
	}
	cwd := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Render(TruncateRunes(cwdDisplay, 30))

	modelName := snap.Preview.Model
	if mdl, _, ok := models.FindModelByID(snap.Preview.Model); ok {
		modelName = mdl.Name
	}
	model := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#B39DDB")).
		Render(TruncateRunes(modelName, 25))

	state := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666666")).
		Render(snap.Session.String())

	help := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#555555")).
		Render("Help: ^S")

	leftSide := lipgloss.JoinHorizontal(lipgloss.Center, mode, "  ", cwd, "  ", model)
	if tools := ToolIndicators(snap.Preview); tools != "" {
		leftSide = lipgloss.JoinHorizontal(lipgloss.Center, leftSide, "  ",
			lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(tools))
	}
	rightSide := lipgloss.JoinHorizontal(lipgloss.Center, state, "  ", help)

	availableWidth := m.WindowWidth - lipgloss.Width(leftSide) - lipgloss.Width(rightSide) - 2
	if availableWidth < 0 {
		availableWidth = 0
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Center, leftSide, strings.Repeat(" ", availableWidth), rightSide)

	return lipgloss.NewStyle().
		Width(m.WindowWidth).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#333333")).
		Padding(0, 1).
		Render(bar)
}

func (m *Model) RenderPendingAttachment(snap app.State) string {
	if snap.Pending == nil {
		return ""
	}
	name := snap.Pending.Name
	if name == "" {
		name = snap.Pending.MIMEType
	}
	label := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	chip := styles.AttachmentChipStyle.Render(mediaIcon(snap.Pending.Kind()) + " " + name)
	return label.Render("Attached: ") + chip + label.Render(" (^X to remove)")
}

func (m *Model) RenderActions(snap app.State) string {
	if len(snap.Actions) == 0 || m.Streaming {
		return ""
	}
	chips := make([]string, 0, len(snap.Actions))
	for i, a := range snap.Actions {
		if i == m.ActionIdx {
			chips = append(chips, styles.ActionChipActiveStyle.Render(a.Label))
		} else {
			chips = append(chips, styles.ActionChipStyle.Render(a.Label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, chips...)
}

func (m *Model) RenderFileSuggestions() string {
	if !m.FileSuggestOpen || len(m.FileSuggestions) == 0 {
		return ""
	}

	suggestionStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#E0E0E0")).
		Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#7C4DFF")).
		Padding(0, 1)

	lines := []string{lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Italic(true).
		Render("  Media (↑↓ to select, Tab/Enter to attach)")}

	for i, suggestion := range m.FileSuggestions {
		display := suggestion
		if info, _ := os.Stat(suggestion); info != nil && info.IsDir() {
			display = suggestion + "/"
		}
		if i == m.FileSuggestIdx {
			lines = append(lines, selectedStyle.Render("▸ "+display))
		} else {
			lines = append(lines, suggestionStyle.Render("  "+display))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C4DFF")).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func GetWelcomeScreen(width, height int) string {
	art := `
 ╭───────────────────────────────────────────────────╮
 │                                                   │
 │   ██╗     ██╗   ██╗███╗   ███╗███████╗███╗   ██╗  │
 │   ██║     ██║   ██║████╗ ████║██╔════╝████╗  ██║  │
 │   ██║     ██║   ██║██╔████╔██║█████╗  ██╔██╗ ██║  │
 │   ██║     ██║   ██║██║╚██╔╝██║██╔══╝  ██║╚██╗██║  │
 │   ███████╗╚██████╔╝██║ ╚═╝ ██║███████╗██║ ╚████║  │
 │   ╚══════╝ ╚═════╝ ╚═╝     ╚═╝╚══════╝╚═╝  ╚═══╝  │
 │                                                   │
 ╰───────────────────────────────────────────────────╯
`
	subtitle := "Ask, search, reason, or @ an image to look at it together."

	content := lipgloss.JoinVertical(lipgloss.Center,
		styles.WelcomeArtStyle.Render(art),
		"",
		styles.WelcomeSubtitleStyle.Render(subtitle),
	)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, content)
}

func (m *Model) UpdateViewport() {
	if len(m.Messages) == 0 && !m.Streaming {
		m.Viewport.SetContent(GetWelcomeScreen(m.Viewport.Width, m.Viewport.Height))
		return
	}

	content := strings.Join(m.Messages, "\n\n")
	if m.Streaming {
		var parts []string
		label := styles.AiLabelStyle.Render("LUMEN")
		if m.StreamMode != "" {
			label = lipgloss.JoinHorizontal(lipgloss.Center, label, ModeBadge(m.StreamMode))
		}
		parts = append(parts, label)
		if m.StreamRendered != "" {
			parts = append(parts, styles.AiMsgStyle.Render(m.StreamRendered))
		}
		if src := FormatSources(m.StreamSources); src != "" {
			parts = append(parts, src)
		}
		parts = append(parts, m.Spinner.View()+" Generating... (Esc to cancel)")

		streaming := strings.Join(parts, "\n")
		if content != "" {
			content += "\n\n" + streaming
		} else {
			content = streaming
		}
	}
	if m.Notice != "" {
		style := styles.NoticeStyle
		if strings.HasPrefix(m.Notice, "Error") {
			style = styles.ErrorStyle
		}
		content += "\n\n" + style.Render(m.Notice)
	}
	m.Viewport.SetContent(content)
	m.Viewport.GotoBottom()
}

func (m *Model) View() string {
	snap := m.Ctrl.Snapshot()

	inputBox := styles.InputBoxStyle.Width(m.WindowWidth - 4).Render(m.TextInput.View())

	var inputParts []string
	if chips := m.RenderActions(snap); chips != "" {
		inputParts = append(inputParts, chips)
	}
	if pending := m.RenderPendingAttachment(snap); pending != "" {
		inputParts = append(inputParts, pending)
	}
	if popup := m.RenderFileSuggestions(); popup != "" {
		inputParts = append(inputParts, popup)
	}
	inputParts = append(inputParts, inputBox)

	chatContent := lipgloss.JoinVertical(lipgloss.Center,
		styles.TitleStyle.Render("LUMEN"),
		"",
		m.Viewport.View(),
		"",
		lipgloss.JoinVertical(lipgloss.Left, inputParts...),
	)
	chatArea := lipgloss.PlaceHorizontal(m.WindowWidth, lipgloss.Center, chatContent)
	content := lipgloss.JoinVertical(lipgloss.Left, chatArea, m.RenderBottomBar(snap))

	var modal string
	switch {
	case m.HistoryOpen:
		modal = m.RenderHistorySelector()
	case m.DevPanelOpen:
		modal = m.RenderDevPanel()
	case m.ShortcutsOpen:
		modal = m.RenderShortcutsModal()
	default:
		return content
	}

	return lipgloss.Place(
		m.WindowWidth,
		m.WindowHeight,
		lipgloss.Center,
		lipgloss.Center,
		styles.ModalStyle.Width(ModalWidth).Render(modal),
	)
}
