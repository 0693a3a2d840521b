// Package backend streams generated content from a generative-language service.
//
// A Backend receives one fully resolved request (descriptor, prior history and
// the new user turn) and yields fragments until the response is exhausted or an
// error ends it. Fragments are a closed set: plain text deltas and text deltas
// that carry the cumulative citation metadata seen so far.
package backend

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"lumen/internal/models"
)

// Request is everything a backend needs to produce one answer.
type Request struct {
	Descriptor models.RequestDescriptor
	History    []models.Message
	Turn       models.Message
}

// Fragment is one incremental piece of a streamed answer.
type Fragment interface {
	fragment()
	Delta() string
}

// TextDelta is a plain text continuation.
type TextDelta struct {
	Text string
}

// CitedTextDelta is a text continuation accompanied by the grounding chunks
// accumulated so far for the response.
type CitedTextDelta struct {
	Text   string
	Chunks []models.GroundingChunk
}

func (TextDelta) fragment()      {}
func (CitedTextDelta) fragment() {}

func (d TextDelta) Delta() string      { return d.Text }
func (d CitedTextDelta) Delta() string { return d.Text }

// Backend streams one response. Iteration stops early when the caller breaks
// out of the loop or ctx is cancelled.
type Backend interface {
	Stream(ctx context.Context, req Request) iter.Seq2[Fragment, error]
}

type Kind string

const (
	KindGemini     Kind = "gemini"
	KindOpenRouter Kind = "openrouter"
)

// Config selects and authenticates a backend.
type Config struct {
	Kind   Kind
	APIKey string
}

// New builds the backend named by cfg.Kind.
func New(ctx context.Context, cfg Config, log *zap.Logger) (Backend, error) {
	switch cfg.Kind {
	case KindGemini, "":
		return NewGemini(ctx, cfg.APIKey, log)
	case KindOpenRouter:
		return NewOpenRouter(cfg.APIKey, log), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Kind)
	}
}

// conversation returns the full replay sequence sent with a request.
func (r Request) conversation() []models.Message {
	out := make([]models.Message, 0, len(r.History)+1)
	out = append(out, r.History...)
	return append(out, r.Turn)
}
