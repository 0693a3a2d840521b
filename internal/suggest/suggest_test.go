package suggest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lumen/internal/models"
)

func labels(actions []models.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = a.Label
	}
	return out
}

func TestSuggest(t *testing.T) {
	now := time.Unix(1700000000, 0)
	codeAnswer := models.NewModelMessage("Here:\n```go\nfunc main() {}\n```", "Pro", now)
	longAnswer := models.NewModelMessage(strings.Repeat("word ", 100), "Fast Response", now)
	shortAnswer := models.NewModelMessage("ok", "Fast Response", now)
	longCode := models.NewModelMessage("```py\nprint(1)\n```"+strings.Repeat("x", 400), "Pro", now)
	userTurn := models.NewUserMessage("hi", nil, now)

	tests := []struct {
		name  string
		text  string
		media models.MediaKind
		last  *models.Message
		want  []string
	}{
		{name: "image", media: models.MediaImage, want: []string{"Describe", "Extract text", "Analyze"}},
		{name: "video", text: "what is this", media: models.MediaVideo, want: []string{"Describe", "Analyze"}},
		{name: "fenced_code_text", text: "```js\nlet x = 1\n```", want: []string{"Fix bugs", "Explain code"}},
		{name: "code_tokens", text: "def main(): return 1", want: []string{"Fix bugs", "Explain code"}},
		{name: "search", text: "latest news on Mars", want: []string{"Deep dive", "Fact check"}},
		{name: "reasoning", text: "plan my move", want: []string{"Break it down"}},
		{name: "plain", text: "a short poem", want: []string{"Improve writing", "Expand", "Make concise"}},
		{name: "after_code_answer", last: &codeAnswer, want: []string{"Refactor", "Add comments", "Verify"}},
		{name: "after_long_answer", last: &longAnswer, want: []string{"Summarize", "Verify"}},
		{name: "after_long_code_answer", last: &longCode, want: []string{"Refactor", "Add comments", "Summarize", "Verify"}},
		{name: "after_short_answer", last: &shortAnswer, want: []string{"Verify"}},
		{name: "after_user_turn", last: &userTurn, want: []string{"Brainstorm ideas", "Make a plan"}},
		{name: "blank", text: "   ", want: []string{"Brainstorm ideas", "Make a plan"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suggest(tt.text, tt.media, tt.last)
			assert.Equal(t, tt.want, labels(got))
			assert.LessOrEqual(t, len(got), MaxActions)
			for _, a := range got {
				assert.NotEmpty(t, a.Prompt)
			}
		})
	}
}

func TestFixBugsPromptCarriesCode(t *testing.T) {
	code := "```go\nx := 1\n```"
	got := Suggest(code, models.MediaNone, nil)
	assert.Contains(t, got[0].Prompt, code)
}
