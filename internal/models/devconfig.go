package models

import (
	"encoding/json"
	"fmt"
)

// SafetyThreshold is the ordinal content-safety blocking level.
type SafetyThreshold int

const (
	BlockNone SafetyThreshold = iota
	BlockOnlyHigh
	BlockMediumAndAbove
	BlockLowAndAbove
)

var safetyNames = [...]string{
	BlockNone:           "BLOCK_NONE",
	BlockOnlyHigh:       "BLOCK_ONLY_HIGH",
	BlockMediumAndAbove: "BLOCK_MEDIUM_AND_ABOVE",
	BlockLowAndAbove:    "BLOCK_LOW_AND_ABOVE",
}

func (s SafetyThreshold) String() string {
	if s < BlockNone || s > BlockLowAndAbove {
		return fmt.Sprintf("SafetyThreshold(%d)", int(s))
	}
	return safetyNames[s]
}

// Next cycles to the following threshold, wrapping around.
func (s SafetyThreshold) Next() SafetyThreshold {
	return (s + 1) % SafetyThreshold(len(safetyNames))
}

func ParseSafetyThreshold(name string) (SafetyThreshold, error) {
	for i, n := range safetyNames {
		if n == name {
			return SafetyThreshold(i), nil
		}
	}
	return BlockNone, fmt.Errorf("unknown safety threshold %q", name)
}

func (s SafetyThreshold) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *SafetyThreshold) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	v, err := ParseSafetyThreshold(name)
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// SafetyCategory is one harm category the threshold applies to.
type SafetyCategory string

const (
	CategoryHarassment       SafetyCategory = "HARM_CATEGORY_HARASSMENT"
	CategoryHateSpeech       SafetyCategory = "HARM_CATEGORY_HATE_SPEECH"
	CategorySexuallyExplicit SafetyCategory = "HARM_CATEGORY_SEXUALLY_EXPLICIT"
	CategoryDangerousContent SafetyCategory = "HARM_CATEGORY_DANGEROUS_CONTENT"
)

var SafetyCategories = []SafetyCategory{
	CategoryHarassment,
	CategoryHateSpeech,
	CategorySexuallyExplicit,
	CategoryDangerousContent,
}

type ToolSwitches struct {
	Search    bool `json:"search"`
	Maps      bool `json:"maps"`
	Reasoning bool `json:"reasoning"`
}

// DevConfig holds the manual overrides exposed in developer mode.
type DevConfig struct {
	Persona          string          `json:"persona"`
	Temperature      float64         `json:"temperature"`
	TopP             float64         `json:"top_p"`
	MaxOutputTokens  int32           `json:"max_output_tokens"`
	Model            string          `json:"model"`
	Safety           SafetyThreshold `json:"safety"`
	Tools            ToolSwitches    `json:"tools"`
	ForceManualTools bool            `json:"force_manual_tools"`
}

const (
	MaxTemperature     = 2.0
	DefaultMaxTokens   = 8192
	MaxOutputTokenCeil = 65536
)

func DefaultDevConfig() DevConfig {
	return DevConfig{
		Temperature:     1.0,
		TopP:            0.95,
		MaxOutputTokens: DefaultMaxTokens,
		Model:           ModelFlash,
		Safety:          BlockMediumAndAbove,
	}
}

// Clamp pulls numeric fields back into their valid ranges and fills a blank model.
func (c DevConfig) Clamp() DevConfig {
	switch {
	case c.Temperature < 0:
		c.Temperature = 0
	case c.Temperature > MaxTemperature:
		c.Temperature = MaxTemperature
	}
	switch {
	case c.TopP < 0:
		c.TopP = 0
	case c.TopP > 1:
		c.TopP = 1
	}
	switch {
	case c.MaxOutputTokens < 1:
		c.MaxOutputTokens = 1
	case c.MaxOutputTokens > MaxOutputTokenCeil:
		c.MaxOutputTokens = MaxOutputTokenCeil
	}
	if c.Model == "" {
		c.Model = ModelFlash
	}
	if c.Safety < BlockNone || c.Safety > BlockLowAndAbove {
		c.Safety = BlockMediumAndAbove
	}
	return c
}
