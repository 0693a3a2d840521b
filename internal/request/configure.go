// Package request resolves user input and developer overrides into the
// descriptor for a single outbound request.
//
// Resolution order (first match wins):
//  1. Media present: highest-capability model, vision label, no tools
//  2. Reasoning active: highest-capability model with a thinking budget
//  3. Search or maps active: mid model with grounding tools
//  4. Developer mode with nothing active: the developer's base model
//  5. Default lightweight model
//
// When developer mode is on, generation parameters and safety settings are
// overlaid after selection. A thinking budget and a max-output-tokens cap are
// never set together.
package request

import (
	"strings"

	"lumen/internal/intent"
	"lumen/internal/models"
)

// ThinkingBudget is the extended-reasoning token budget for the reasoning path.
const ThinkingBudget int32 = 32768

const (
	LabelVisual    = "Visual Analysis"
	LabelVideo     = "Video Intelligence"
	LabelReasoning = "Deep Reasoning"
	LabelSearch    = "Google Search"
	LabelMaps      = "Google Maps"
	LabelFast      = "Fast Response"
	LabelLite      = "Flash Lite"
	LabelPro       = "Pro"
	LabelCustom    = "Custom"

	DevSuffix = " (Dev)"
)

// Configure maps the input state to a request descriptor. It has no side
// effects and returns equal descriptors for equal inputs.
func Configure(text string, media models.MediaKind, devMode bool, cfg models.DevConfig) models.RequestDescriptor {
	signals := intent.Classify(text)
	manual := devMode && cfg.ForceManualTools

	var d models.RequestDescriptor
	switch {
	case media != models.MediaNone:
		d.Model = models.ModelPro
		d.Affordance = models.AffordanceVision
		d.Mode = LabelVisual
		if media == models.MediaVideo {
			d.Mode = LabelVideo
		}

	case reasoningActive(manual, cfg, signals):
		d.Model = models.ModelPro
		d.Affordance = models.AffordanceReasoning
		d.Mode = LabelReasoning
		budget := ThinkingBudget
		d.Config.ThinkingBudget = &budget

	case searchActive(manual, cfg, signals):
		d.Model = models.ModelFlash
		search, maps := signals.SearchLikely, false
		if manual {
			search, maps = cfg.Tools.Search, cfg.Tools.Maps
		}
		if search {
			d.Config.Tools = append(d.Config.Tools, models.ToolGoogleSearch)
		}
		if maps {
			d.Config.Tools = append(d.Config.Tools, models.ToolGoogleMaps)
		}
		if search {
			d.Mode, d.Affordance = LabelSearch, models.AffordanceSearch
		} else {
			d.Mode, d.Affordance = LabelMaps, models.AffordanceMaps
		}

	case devMode:
		d.Model = cfg.Model
		d.Mode = labelForModel(cfg.Model)
		d.Affordance = models.AffordanceCustom

	default:
		d.Model = models.ModelFlashLite
		d.Mode = LabelFast
		d.Affordance = models.AffordanceFast
	}

	if devMode {
		applyDevOverlay(&d, cfg)
	}
	return d
}

func reasoningActive(manual bool, cfg models.DevConfig, s intent.Signals) bool {
	if manual {
		return cfg.Tools.Reasoning
	}
	return s.ReasoningLikely
}

// Maps has no auto-detection path; it only activates through a manual override.
func searchActive(manual bool, cfg models.DevConfig, s intent.Signals) bool {
	if manual {
		return cfg.Tools.Search || cfg.Tools.Maps
	}
	return s.SearchLikely
}

func labelForModel(id string) string {
	lower := strings.ToLower(id)
	switch {
	case strings.Contains(lower, "lite"):
		return LabelLite
	case strings.Contains(lower, "pro"):
		return LabelPro
	default:
		return LabelCustom
	}
}

func applyDevOverlay(d *models.RequestDescriptor, cfg models.DevConfig) {
	if persona := strings.TrimSpace(cfg.Persona); persona != "" {
		d.Config.SystemInstruction = persona
	}
	temperature := cfg.Temperature
	topP := cfg.TopP
	d.Config.Temperature = &temperature
	d.Config.TopP = &topP
	if d.Config.ThinkingBudget == nil {
		maxTokens := cfg.MaxOutputTokens
		d.Config.MaxOutputTokens = &maxTokens
	}

	d.Config.SafetySettings = make([]models.SafetySetting, 0, len(models.SafetyCategories))
	for _, category := range models.SafetyCategories {
		d.Config.SafetySettings = append(d.Config.SafetySettings, models.SafetySetting{
			Category:  category,
			Threshold: cfg.Safety,
		})
	}
	d.Mode += DevSuffix
}
