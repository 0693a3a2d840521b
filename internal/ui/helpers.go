package ui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"lumen/internal/media"
	"lumen/internal/models"
	"lumen/internal/request"
	"lumen/internal/styles"
)

// GetFileSuggestions returns attachable media files and directories matching
// prefix. A prefix containing "/" lists that directory, otherwise the working
// tree is searched recursively.
func GetFileSuggestions(prefix string) []string {
	cwd, err := os.Getwd()
	if err != nil {
		return nil
	}

	if strings.Contains(prefix, "/") {
		return getDirectorySuggestions(cwd, prefix)
	}
	return getRecursiveSuggestions(cwd, prefix)
}

// getDirectorySuggestions handles paths like "shots/"
func getDirectorySuggestions(cwd, prefix string) []string {
	dir := ""
	filePrefix := prefix

	if idx := strings.LastIndex(prefix, "/"); idx != -1 {
		dir = prefix[:idx+1]
		filePrefix = prefix[idx+1:]
	}

	searchDir := cwd
	if dir != "" {
		searchDir = filepath.Join(cwd, dir)
	}

	entries, err := os.ReadDir(searchDir)
	if err != nil {
		return nil
	}

	var suggestions []string
	lowerFilePrefix := strings.ToLower(filePrefix)

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(filePrefix, ".") {
			continue
		}
		if !entry.IsDir() && !media.IsCandidate(name) {
			continue
		}
		if strings.HasPrefix(strings.ToLower(name), lowerFilePrefix) {
			suggestions = append(suggestions, dir+name)
		}
	}

	return sortAndLimitSuggestions(cwd, suggestions)
}

// getRecursiveSuggestions walks the tree for media files whose name contains prefix
func getRecursiveSuggestions(cwd, prefix string) []string {
	var suggestions []string
	lowerPrefix := strings.ToLower(prefix)

	filepath.Walk(cwd, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		name := info.Name()
		if info.IsDir() {
			if path != cwd && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			return nil
		}
		if !media.IsCandidate(name) {
			return nil
		}

		if strings.Contains(strings.ToLower(name), lowerPrefix) {
			relPath, _ := filepath.Rel(cwd, path)
			suggestions = append(suggestions, relPath)
		}

		if len(suggestions) >= 2*MaxFileSuggestions {
			return filepath.SkipAll
		}
		return nil
	})

	return sortAndLimitSuggestions(cwd, suggestions)
}

// sortAndLimitSuggestions sorts directories first, then shallow paths, then alphabetically
func sortAndLimitSuggestions(cwd string, suggestions []string) []string {
	sort.Slice(suggestions, func(i, j int) bool {
		iInfo, _ := os.Stat(filepath.Join(cwd, suggestions[i]))
		jInfo, _ := os.Stat(filepath.Join(cwd, suggestions[j]))
		iDir := iInfo != nil && iInfo.IsDir()
		jDir := jInfo != nil && jInfo.IsDir()
		if iDir != jDir {
			return iDir
		}
		iDepth := strings.Count(suggestions[i], "/")
		jDepth := strings.Count(suggestions[j], "/")
		if iDepth != jDepth {
			return iDepth < jDepth
		}
		return strings.ToLower(suggestions[i]) < strings.ToLower(suggestions[j])
	})

	if len(suggestions) > MaxFileSuggestions {
		suggestions = suggestions[:MaxFileSuggestions]
	}
	return suggestions
}

// GetAtPosition finds the @ mention being typed at cursor position
func GetAtPosition(input string, cursorPos int) (prefix string, startPos int, found bool) {
	if cursorPos > len(input) {
		cursorPos = len(input)
	}

	for i := cursorPos - 1; i >= 0; i-- {
		ch := input[i]
		if ch == '@' {
			return input[i+1 : cursorPos], i, true
		}
		if ch == ' ' || ch == '\n' || ch == '\t' {
			return "", 0, false
		}
	}
	return "", 0, false
}

// RemoveMention drops the "@prefix" token starting at startPos and returns the
// new value with the byte index the cursor should move to.
func RemoveMention(value string, startPos int, prefix string) (string, int) {
	end := startPos + 1 + len(prefix)
	if startPos < 0 || end > len(value) {
		return value, len(value)
	}
	rest := value[end:]
	if strings.HasPrefix(rest, " ") && (startPos == 0 || value[startPos-1] == ' ') {
		rest = rest[1:]
	}
	return value[:startPos] + rest, startPos
}

func TextareaCursorIndex(t textarea.Model) int {
	value := t.Value()
	row := t.Line()
	li := t.LineInfo()
	col := li.StartColumn + li.ColumnOffset
	return cursorIndexFromRowCol(value, row, col)
}

func TextareaCursorFromIndex(value string, index int) (row int, col int) {
	if index < 0 {
		index = 0
	}
	if index > len(value) {
		index = len(value)
	}

	lines := strings.Split(value, "\n")
	pos := 0
	for i, line := range lines {
		lineLen := len(line)
		if index <= pos+lineLen {
			return i, runeIndexForByteIndex(line, index-pos)
		}
		pos += lineLen + 1
	}

	row = len(lines) - 1
	col = utf8.RuneCountInString(lines[row])
	return row, col
}

func SetTextareaCursor(t *textarea.Model, row int, col int) {
	lineCount := t.LineCount()
	if lineCount == 0 {
		t.SetCursor(0)
		return
	}
	if row < 0 {
		row = 0
	}
	if row >= lineCount {
		row = lineCount - 1
	}

	for i := 0; i < 10000 && t.Line() > 0; i++ {
		t.CursorUp()
	}
	for i := 0; i < 10000 && t.Line() < row; i++ {
		t.CursorDown()
	}

	t.SetCursor(col)
}

func cursorIndexFromRowCol(value string, row int, col int) int {
	lines := strings.Split(value, "\n")
	if row < 0 {
		row = 0
	}
	if row >= len(lines) {
		row = len(lines) - 1
	}

	index := 0
	for i := 0; i < row; i++ {
		index += len(lines[i]) + 1
	}
	return index + byteIndexForRuneColumn(lines[row], col)
}

func byteIndexForRuneColumn(s string, col int) int {
	if col <= 0 {
		return 0
	}
	count := 0
	for i := range s {
		if count >= col {
			return i
		}
		count++
	}
	return len(s)
}

func runeIndexForByteIndex(s string, idx int) int {
	if idx <= 0 {
		return 0
	}
	count := 0
	for i := range s {
		if i >= idx {
			return count
		}
		count++
	}
	return count
}

func WrappedLineCount(value string, width int) int {
	if width <= 0 {
		return 1
	}
	count := 0
	for _, line := range strings.Split(value, "\n") {
		w := runewidth.StringWidth(line)
		if w == 0 {
			count++
			continue
		}
		count += (w-1)/width + 1
	}
	return count
}

func PromptPreview(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.Join(strings.Fields(s), " ")
	const maxRunes = 500
	r := []rune(s)
	if len(r) > maxRunes {
		return string(r[:maxRunes])
	}
	return s
}

func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 1 {
		return "…"
	}
	return string(r[:max-1]) + "…"
}

func RelativeTime(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		d = -d
	}
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", mins)
	}
	if d < 24*time.Hour {
		hrs := int(d.Hours())
		if hrs == 1 {
			return "1 hr ago"
		}
		return fmt.Sprintf("%d hrs ago", hrs)
	}
	days := int(d.Hours() / 24)
	if days < 14 {
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
	weeks := days / 7
	if weeks == 1 {
		return "1 week ago"
	}
	return fmt.Sprintf("%d weeks ago", weeks)
}

// UserPrompts lists the text of past user turns, newest first, skipping
// repeats and media-only turns.
func UserPrompts(history []models.Message) []string {
	seen := make(map[string]bool)
	var out []string
	for i := len(history) - 1; i >= 0; i-- {
		msg := history[i]
		if msg.Role != models.RoleUser {
			continue
		}
		text := strings.TrimSpace(msg.Text())
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, text)
	}
	return out
}

// ToolIndicators lists the grounding tools and reasoning budget d carries, for
// the status bar. Empty when the request is plain generation.
func ToolIndicators(d models.RequestDescriptor) string {
	var tags []string
	if d.HasTool(models.ToolGoogleSearch) {
		tags = append(tags, "search")
	}
	if d.HasTool(models.ToolGoogleMaps) {
		tags = append(tags, "maps")
	}
	if b := d.Config.ThinkingBudget; b != nil && *b != 0 {
		tags = append(tags, fmt.Sprintf("think %dk", *b/1024))
	}
	return strings.Join(tags, " + ")
}

// ModeAffordance maps a stored mode label back to its badge affordance.
func ModeAffordance(mode string) string {
	switch strings.TrimSuffix(mode, request.DevSuffix) {
	case request.LabelVisual, request.LabelVideo:
		return models.AffordanceVision
	case request.LabelReasoning, request.LabelPro:
		return models.AffordanceReasoning
	case request.LabelSearch:
		return models.AffordanceSearch
	case request.LabelMaps:
		return models.AffordanceMaps
	case request.LabelCustom:
		return models.AffordanceCustom
	default:
		return models.AffordanceFast
	}
}

// FormatDevValue renders the current value of a developer panel field.
func FormatDevValue(f DevField, cfg models.DevConfig) string {
	onOff := func(b bool) string {
		if b {
			return "on"
		}
		return "off"
	}
	switch f {
	case FieldModel:
		if mdl, _, ok := models.FindModelByID(cfg.Model); ok {
			return mdl.Name
		}
		return cfg.Model
	case FieldTemperature:
		return fmt.Sprintf("%.1f", cfg.Temperature)
	case FieldTopP:
		return fmt.Sprintf("%.2f", cfg.TopP)
	case FieldMaxTokens:
		return fmt.Sprintf("%d", cfg.MaxOutputTokens)
	case FieldSafety:
		return cfg.Safety.String()
	case FieldSearch:
		return onOff(cfg.Tools.Search)
	case FieldMaps:
		return onOff(cfg.Tools.Maps)
	case FieldReasoning:
		return onOff(cfg.Tools.Reasoning)
	case FieldForceManual:
		return onOff(cfg.ForceManualTools)
	case FieldPersona:
		if strings.TrimSpace(cfg.Persona) == "" {
			return "(none)"
		}
		return PromptPreview(cfg.Persona)
	}
	return ""
}

// AdjustDevField steps field f of cfg by one notch in direction dir (+1 or -1).
// The controller clamps the result.
func AdjustDevField(cfg *models.DevConfig, f DevField, dir int) {
	switch f {
	case FieldModel:
		_, idx, ok := models.FindModelByID(cfg.Model)
		if !ok {
			idx = 0
		}
		n := len(models.AvailableModels)
		cfg.Model = models.AvailableModels[((idx+dir)%n+n)%n].ID
	case FieldTemperature:
		cfg.Temperature = roundTo(cfg.Temperature+0.1*float64(dir), 10)
	case FieldTopP:
		cfg.TopP = roundTo(cfg.TopP+0.05*float64(dir), 100)
	case FieldMaxTokens:
		if dir > 0 {
			cfg.MaxOutputTokens *= 2
		} else {
			cfg.MaxOutputTokens /= 2
		}
	case FieldSafety:
		if dir > 0 {
			cfg.Safety = cfg.Safety.Next()
		} else {
			for range 3 {
				cfg.Safety = cfg.Safety.Next()
			}
		}
	case FieldSearch:
		cfg.Tools.Search = !cfg.Tools.Search
	case FieldMaps:
		cfg.Tools.Maps = !cfg.Tools.Maps
	case FieldReasoning:
		cfg.Tools.Reasoning = !cfg.Tools.Reasoning
	case FieldForceManual:
		cfg.ForceManualTools = !cfg.ForceManualTools
	}
}

func roundTo(v float64, scale float64) float64 {
	if v < 0 {
		return -roundTo(-v, scale)
	}
	return float64(int64(v*scale+0.5)) / scale
}

func (m *Model) SyncModelViewportScroll() {
	const itemHeight = 1
	y := m.DevFieldIdx * itemHeight
	if y+itemHeight > m.ModelViewport.YOffset+m.ModelViewport.Height {
		m.ModelViewport.SetYOffset(y + itemHeight - m.ModelViewport.Height)
	}
	if y < m.ModelViewport.YOffset {
		m.ModelViewport.SetYOffset(y)
	}
}

func FormatUserMessage(msg models.Message, width int, isFirst bool) string {
	label := styles.UserLabelStyle.Render("YOU")
	body := msg.Text()
	if inline := msg.Media(); inline != nil {
		chip := styles.AttachmentChipStyle.Render(mediaIcon(models.MediaKindOf(inline.MIMEType)) + " " + inline.MIMEType)
		if body == "" {
			body = chip
		} else {
			body = chip + "\n" + body
		}
	}
	content := styles.UserMsgStyle.Width(width - 4).Render(body)
	if isFirst {
		return fmt.Sprintf("\n%s\n%s", label, content)
	}
	return fmt.Sprintf("%s\n%s", label, content)
}

func FormatAIMessage(mode, content string) string {
	label := styles.AiLabelStyle.Render("LUMEN")
	if mode != "" {
		label = lipgloss.JoinHorizontal(lipgloss.Center, label, ModeBadge(mode))
	}
	msg := styles.AiMsgStyle.Render(content)
	return fmt.Sprintf("%s\n%s", label, msg)
}

// ModeBadge renders a mode label in its affordance color.
func ModeBadge(mode string) string {
	return styles.BadgeStyle(styles.AffordanceColor(ModeAffordance(mode))).Render(mode)
}

// FormatSources renders citation cards, one per line.
func FormatSources(cards []models.SourceCard) string {
	if len(cards) == 0 {
		return ""
	}
	lines := make([]string, 0, len(cards))
	for _, c := range cards {
		icon := "◆"
		if c.Kind == models.SourcePlace {
			icon = "⌖"
		}
		line := fmt.Sprintf("%s %s %s",
			styles.SourceIconStyle.Render(icon),
			styles.SourceTitleStyle.Render(TruncateRunes(c.Title, 60)),
			styles.SourceDomainStyle.Render(c.Domain),
		)
		lines = append(lines, styles.SourceStyle.Render(line))
	}
	return strings.Join(lines, "\n")
}

func mediaIcon(k models.MediaKind) string {
	if k == models.MediaVideo {
		return "🎞"
	}
	return "🖼"
}
