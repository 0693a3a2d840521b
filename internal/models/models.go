package models

import "strings"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Model ids the request configurator chooses between.
const (
	ModelPro       = "gemini-2.5-pro"
	ModelFlash     = "gemini-2.5-flash"
	ModelFlashLite = "gemini-2.5-flash-lite"
)

type AIModel struct {
	ID          string
	Name        string
	Tier        string
	Description string
}

// AvailableModels is the catalogue offered as the developer base model.
var AvailableModels = []AIModel{
	{ID: ModelFlashLite, Name: "Gemini 2.5 Flash Lite", Tier: "lite", Description: "Lowest latency"},
	{ID: ModelFlash, Name: "Gemini 2.5 Flash", Tier: "mid", Description: "Fast multimodal model"},
	{ID: ModelPro, Name: "Gemini 2.5 Pro", Tier: "top", Description: "Highest capability, thinking"},
	{ID: "gemini-flash-latest", Name: "Gemini Flash (latest)", Tier: "mid", Description: "Rolling alias"},
	{ID: "gemini-flash-lite-latest", Name: "Gemini Flash Lite (latest)", Tier: "lite", Description: "Rolling alias"},
}

// FindModelByID returns the catalogue entry and its index.
func FindModelByID(id string) (AIModel, int, bool) {
	for i, mdl := range AvailableModels {
		if mdl.ID == id {
			return mdl, i, true
		}
	}
	return AIModel{}, 0, false
}

// MediaKind classifies a staged attachment.
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaImage
	MediaVideo
)

func (k MediaKind) String() string {
	switch k {
	case MediaImage:
		return "image"
	case MediaVideo:
		return "video"
	default:
		return "none"
	}
}

// MediaKindOf maps a MIME type to the media kind it stages as.
func MediaKindOf(mimeType string) MediaKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaImage
	case strings.HasPrefix(mimeType, "video/"):
		return MediaVideo
	default:
		return MediaNone
	}
}

// Attachment is the single pending media item staged for the next send.
type Attachment struct {
	Data     string // base64
	MIMEType string
	Name     string
}

func (a *Attachment) Kind() MediaKind {
	if a == nil {
		return MediaNone
	}
	return MediaKindOf(a.MIMEType)
}

// Action is one follow-up suggestion offered under the input.
type Action struct {
	Label  string
	Prompt string
}
