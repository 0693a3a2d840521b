package backend

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"lumen/internal/models"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// OpenRouter reaches Gemini models through OpenRouter's OpenAI-compatible API.
// Server-side grounding tools have no equivalent there and are dropped.
type OpenRouter struct {
	client openai.Client
	log    *zap.Logger
}

func NewOpenRouter(apiKey string, log *zap.Logger, opts ...option.RequestOption) *OpenRouter {
	if log == nil {
		log = zap.NewNop()
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithBaseURL(openRouterBaseURL),
		option.WithHeader("X-Title", "Lumen CLI"),
	}
	return &OpenRouter{
		client: openai.NewClient(append(base, opts...)...),
		log:    log.Named("openrouter"),
	}
}

func (o *OpenRouter) Stream(ctx context.Context, req Request) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		if n := len(req.Descriptor.Config.Tools); n > 0 {
			o.log.Warn("grounding tools are not available on openrouter, dropping", zap.Int("tools", n))
		}

		stream := o.client.Chat.Completions.NewStreaming(ctx, toChatParams(req))
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			if !yield(TextDelta{Text: chunk.Choices[0].Delta.Content}, nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(nil, fmt.Errorf("openrouter stream: %w", err))
		}
	}
}

// openRouterModel maps a Gemini model id onto OpenRouter's namespaced id.
func openRouterModel(id string) string {
	if strings.Contains(id, "/") {
		return id
	}
	return "google/" + id
}

func toChatParams(req Request) openai.ChatCompletionNewParams {
	c := req.Descriptor.Config
	params := openai.ChatCompletionNewParams{
		Model:    openRouterModel(req.Descriptor.Model),
		Messages: toChatMessages(c.SystemInstruction, req.conversation()),
	}
	if c.Temperature != nil {
		params.Temperature = openai.Float(*c.Temperature)
	}
	if c.TopP != nil {
		params.TopP = openai.Float(*c.TopP)
	}
	if c.MaxOutputTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*c.MaxOutputTokens))
	}
	if c.ThinkingBudget != nil {
		params.ReasoningEffort = openai.ReasoningEffortHigh
	}
	return params
}

func toChatMessages(system string, msgs []models.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range msgs {
		if m.Role == models.RoleModel {
			out = append(out, openai.AssistantMessage(m.Text()))
			continue
		}
		media := m.Media()
		if media == nil {
			out = append(out, openai.UserMessage(m.Text()))
			continue
		}
		parts := []openai.ChatCompletionContentPartUnionParam{
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
				URL: "data:" + media.MIMEType + ";base64," + media.Data,
			}),
		}
		if text := m.Text(); text != "" {
			parts = append(parts, openai.TextContentPart(text))
		}
		out = append(out, openai.UserMessage(parts))
	}
	return out
}
