package models

// ToolKind names a server-side grounding tool attached to a request.
type ToolKind string

const (
	ToolGoogleSearch ToolKind = "google_search"
	ToolGoogleMaps   ToolKind = "google_maps"
)

// Affordance tags tell the UI which badge to show for the chosen configuration.
const (
	AffordanceVision    = "vision"
	AffordanceReasoning = "reasoning"
	AffordanceSearch    = "search"
	AffordanceMaps      = "maps"
	AffordanceCustom    = "custom"
	AffordanceFast      = "fast"
)

type SafetySetting struct {
	Category  SafetyCategory
	Threshold SafetyThreshold
}

// GenerationConfig carries per-request generation parameters. Nil pointers mean
// "leave the backend default".
type GenerationConfig struct {
	SystemInstruction string
	Temperature       *float64
	TopP              *float64
	MaxOutputTokens   *int32
	ThinkingBudget    *int32
	Tools             []ToolKind
	SafetySettings    []SafetySetting
}

// RequestDescriptor is the fully resolved configuration for one send.
type RequestDescriptor struct {
	Model      string
	Config     GenerationConfig
	Mode       string
	Affordance string
}

func (d RequestDescriptor) HasTool(kind ToolKind) bool {
	for _, t := range d.Config.Tools {
		if t == kind {
			return true
		}
	}
	return false
}

// GroundingChunk is one citation entry delivered with a response. Exactly one of
// Web or Place is set once it has passed the backend boundary.
type GroundingChunk struct {
	Web   *WebSource
	Place *PlaceSource
}

type WebSource struct {
	URI   string
	Title string
}

type PlaceSource struct {
	URI     string
	Title   string
	PlaceID string
}

type SourceKind string

const (
	SourceWeb   SourceKind = "web"
	SourcePlace SourceKind = "place"
)

// SourceCard is a de-duplicated citation ready for display.
type SourceCard struct {
	Kind   SourceKind
	Title  string
	URI    string
	Domain string
}
