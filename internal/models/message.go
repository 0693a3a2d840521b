package models

import (
	"errors"
	"strings"
	"time"
)

// InlineData is a base64 media payload carried inside a Part.
type InlineData struct {
	Data     string `json:"data"`
	MIMEType string `json:"mime_type"`
}

// Part is one content fragment of a Message. Exactly one of Text or Inline is set.
type Part struct {
	Text   string      `json:"text,omitempty"`
	Inline *InlineData `json:"inline,omitempty"`
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func MediaPart(data, mimeType string) Part {
	return Part{Inline: &InlineData{Data: data, MIMEType: mimeType}}
}

func (p Part) IsMedia() bool { return p.Inline != nil }

// Message is one immutable conversation turn.
type Message struct {
	Role      Role      `json:"role"`
	Parts     []Part    `json:"parts"`
	Timestamp time.Time `json:"timestamp"`
	Mode      string    `json:"mode,omitempty"`
}

var (
	ErrUnknownRole    = errors.New("message role must be user or model")
	ErrEmptyMessage   = errors.New("message has no parts")
	ErrMalformedParts = errors.New("message parts are malformed")
)

// NewUserMessage builds a user turn: optional media part first, then optional text part.
func NewUserMessage(text string, att *Attachment, at time.Time) Message {
	msg := Message{Role: RoleUser, Timestamp: at}
	if att != nil {
		msg.Parts = append(msg.Parts, MediaPart(att.Data, att.MIMEType))
	}
	if text != "" {
		msg.Parts = append(msg.Parts, TextPart(text))
	}
	return msg
}

// NewModelMessage builds a model turn with its single text part.
func NewModelMessage(text, mode string, at time.Time) Message {
	return Message{
		Role:      RoleModel,
		Parts:     []Part{TextPart(text)},
		Timestamp: at,
		Mode:      mode,
	}
}

// Text returns the concatenated text parts.
func (m Message) Text() string {
	var sb strings.Builder
	for _, p := range m.Parts {
		if p.Inline == nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// Media returns the inline media part, if any.
func (m Message) Media() *InlineData {
	for _, p := range m.Parts {
		if p.Inline != nil {
			return p.Inline
		}
	}
	return nil
}

// Clone returns a deep copy so callers cannot mutate a stored turn.
func (m Message) Clone() Message {
	out := m
	out.Parts = make([]Part, len(m.Parts))
	for i, p := range m.Parts {
		out.Parts[i] = p
		if p.Inline != nil {
			in := *p.Inline
			out.Parts[i].Inline = &in
		}
	}
	return out
}

// Validate checks the part-shape rules for the message's role.
func (m Message) Validate() error {
	if len(m.Parts) == 0 {
		return ErrEmptyMessage
	}
	switch m.Role {
	case RoleModel:
		if len(m.Parts) != 1 || m.Parts[0].Inline != nil {
			return ErrMalformedParts
		}
	case RoleUser:
		if len(m.Parts) > 2 {
			return ErrMalformedParts
		}
		for i, p := range m.Parts {
			if p.Inline != nil && (i != 0 || p.Text != "") {
				return ErrMalformedParts
			}
		}
		if len(m.Parts) == 2 && (m.Parts[0].Inline == nil || m.Parts[1].Inline != nil) {
			return ErrMalformedParts
		}
	default:
		return ErrUnknownRole
	}
	return nil
}
