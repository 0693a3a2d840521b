package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"lumen/internal/models"
)

// ErrBlocked is returned when the service refuses the prompt.
var ErrBlocked = errors.New("prompt blocked by safety filters")

type contentStreamer interface {
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// Gemini talks to the Gemini API through the genai SDK.
type Gemini struct {
	models contentStreamer
	log    *zap.Logger
}

func NewGemini(ctx context.Context, apiKey string, log *zap.Logger) (*Gemini, error) {
	if log == nil {
		log = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Gemini{models: client.Models, log: log.Named("gemini")}, nil
}

func (g *Gemini) Stream(ctx context.Context, req Request) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		contents, err := toGenAIContents(req.conversation())
		if err != nil {
			yield(nil, err)
			return
		}
		cfg := toGenAIConfig(req.Descriptor.Config)

		for resp, err := range g.models.GenerateContentStream(ctx, req.Descriptor.Model, contents, cfg) {
			if err != nil {
				yield(nil, fmt.Errorf("gemini stream: %w", err))
				return
			}
			if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
				yield(nil, fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason))
				return
			}
			frag, ok := fragmentFromResponse(resp)
			if !ok {
				g.log.Debug("skipping response without candidates", zap.String("response_id", resp.ResponseID))
				continue
			}
			if !yield(frag, nil) {
				return
			}
		}
	}
}

func toGenAIContents(msgs []models.Message) ([]*genai.Content, error) {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		c := &genai.Content{Role: string(m.Role)}
		for _, p := range m.Parts {
			if p.Inline != nil {
				data, err := base64.StdEncoding.DecodeString(p.Inline.Data)
				if err != nil {
					return nil, fmt.Errorf("decode inline %s: %w", p.Inline.MIMEType, err)
				}
				c.Parts = append(c.Parts, genai.NewPartFromBytes(data, p.Inline.MIMEType))
				continue
			}
			c.Parts = append(c.Parts, genai.NewPartFromText(p.Text))
		}
		out = append(out, c)
	}
	return out, nil
}

var harmCategories = map[models.SafetyCategory]genai.HarmCategory{
	models.CategoryHarassment:       genai.HarmCategoryHarassment,
	models.CategoryHateSpeech:       genai.HarmCategoryHateSpeech,
	models.CategorySexuallyExplicit: genai.HarmCategorySexuallyExplicit,
	models.CategoryDangerousContent: genai.HarmCategoryDangerousContent,
}

var harmThresholds = map[models.SafetyThreshold]genai.HarmBlockThreshold{
	models.BlockNone:           genai.HarmBlockThresholdBlockNone,
	models.BlockOnlyHigh:       genai.HarmBlockThresholdBlockOnlyHigh,
	models.BlockMediumAndAbove: genai.HarmBlockThresholdBlockMediumAndAbove,
	models.BlockLowAndAbove:    genai.HarmBlockThresholdBlockLowAndAbove,
}

func toGenAIConfig(c models.GenerationConfig) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if c.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(c.SystemInstruction, genai.RoleUser)
	}
	if c.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*c.Temperature))
	}
	if c.TopP != nil {
		cfg.TopP = genai.Ptr(float32(*c.TopP))
	}
	if c.MaxOutputTokens != nil {
		cfg.MaxOutputTokens = *c.MaxOutputTokens
	}
	if c.ThinkingBudget != nil {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(*c.ThinkingBudget)}
	}
	for _, t := range c.Tools {
		switch t {
		case models.ToolGoogleSearch:
			cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
		case models.ToolGoogleMaps:
			cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleMaps: &genai.GoogleMaps{}})
		}
	}
	for _, s := range c.SafetySettings {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  harmCategories[s.Category],
			Threshold: harmThresholds[s.Threshold],
		})
	}
	return cfg
}

// fragmentFromResponse maps one streamed response to a fragment. It reports
// false for shapes that carry nothing usable.
func fragmentFromResponse(resp *genai.GenerateContentResponse) (Fragment, bool) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil, false
	}
	cand := resp.Candidates[0]

	var sb strings.Builder
	if cand.Content != nil {
		for _, p := range cand.Content.Parts {
			if p == nil || p.Thought {
				continue
			}
			sb.WriteString(p.Text)
		}
	}

	if cand.GroundingMetadata != nil && len(cand.GroundingMetadata.GroundingChunks) > 0 {
		return CitedTextDelta{Text: sb.String(), Chunks: fromGenAIChunks(cand.GroundingMetadata.GroundingChunks)}, true
	}
	return TextDelta{Text: sb.String()}, true
}

func fromGenAIChunks(chunks []*genai.GroundingChunk) []models.GroundingChunk {
	out := make([]models.GroundingChunk, 0, len(chunks))
	for _, c := range chunks {
		switch {
		case c == nil:
		case c.Web != nil:
			out = append(out, models.GroundingChunk{Web: &models.WebSource{URI: c.Web.URI, Title: c.Web.Title}})
		case c.Maps != nil:
			out = append(out, models.GroundingChunk{Place: &models.PlaceSource{URI: c.Maps.URI, Title: c.Maps.Title, PlaceID: c.Maps.PlaceID}})
		}
	}
	return out
}
