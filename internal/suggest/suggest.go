// Package suggest proposes follow-up actions for the current input state.
package suggest

import (
	"strings"

	"lumen/internal/intent"
	"lumen/internal/models"
)

// MaxActions caps how many suggestions are shown at once.
const MaxActions = 4

// LongAnswer is the length at which a model answer is offered a summary.
const LongAnswer = 400

// Suggest returns up to MaxActions follow-ups. Rules are evaluated in order
// and the first that applies wins: staged media, typed text, an empty input
// after a model turn, and finally a generic fallback.
func Suggest(text string, media models.MediaKind, lastTurn *models.Message) []models.Action {
	text = strings.TrimSpace(text)

	var out []models.Action
	switch {
	case media != models.MediaNone:
		out = mediaActions(media)
	case text != "":
		out = textActions(text)
	case lastTurn != nil && lastTurn.Role == models.RoleModel:
		out = answerActions(lastTurn.Text())
	default:
		out = []models.Action{
			{Label: "Brainstorm ideas", Prompt: "Help me brainstorm ideas for a new project."},
			{Label: "Make a plan", Prompt: "Help me make a step-by-step plan for my week."},
		}
	}

	if len(out) > MaxActions {
		out = out[:MaxActions]
	}
	return out
}

func mediaActions(media models.MediaKind) []models.Action {
	noun := media.String()
	out := []models.Action{{Label: "Describe", Prompt: "Describe this " + noun + " in detail."}}
	if media == models.MediaImage {
		out = append(out, models.Action{Label: "Extract text", Prompt: "Extract all visible text from this image."})
	}
	return append(out, models.Action{Label: "Analyze", Prompt: "Analyze this " + noun + " and point out anything notable."})
}

func textActions(text string) []models.Action {
	switch {
	case intent.LooksLikeCode(text):
		return []models.Action{
			{Label: "Fix bugs", Prompt: "Find and fix the bugs in this code:\n\n" + text},
			{Label: "Explain code", Prompt: "Explain what this code does:\n\n" + text},
		}
	case intent.IsSearchLike(text):
		return []models.Action{
			{Label: "Deep dive", Prompt: "Give me an in-depth, sourced answer: " + text},
			{Label: "Fact check", Prompt: "Fact check the following with current sources: " + text},
		}
	case intent.IsReasoningLike(text):
		return []models.Action{
			{Label: "Break it down", Prompt: "Break this down step by step: " + text},
		}
	default:
		return []models.Action{
			{Label: "Improve writing", Prompt: "Improve the writing of the following text:\n\n" + text},
			{Label: "Expand", Prompt: "Expand on the following:\n\n" + text},
			{Label: "Make concise", Prompt: "Make the following more concise:\n\n" + text},
		}
	}
}

func answerActions(answer string) []models.Action {
	var out []models.Action
	if intent.HasFencedCode(answer) {
		out = append(out,
			models.Action{Label: "Refactor", Prompt: "Refactor the code in your last answer for readability."},
			models.Action{Label: "Add comments", Prompt: "Add explanatory comments to the code in your last answer."},
		)
	}
	if len([]rune(answer)) >= LongAnswer {
		out = append(out, models.Action{Label: "Summarize", Prompt: "Summarize your last answer in a few bullet points."})
	}
	return append(out, models.Action{Label: "Verify", Prompt: "Double-check your last answer and correct any mistakes."})
}
