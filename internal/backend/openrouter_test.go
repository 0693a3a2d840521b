package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"lumen/internal/models"
	"lumen/internal/request"
)

func sseChunk(content string) string {
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"google/gemini-2.5-flash","choices":[{"index":0,"delta":{"content":%q}}]}`+"\n\n", content)
}

func TestOpenRouterStream(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sseChunk("Hel"))
		_, _ = io.WriteString(w, sseChunk("lo"))
		_, _ = io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer srv.Close()

	o := NewOpenRouter("test-key", zap.NewNop(), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	now := time.Unix(1700000000, 0)
	req := Request{
		Descriptor: request.Configure("plan a trip", models.MediaNone, false, models.DefaultDevConfig()),
		Turn:       models.NewUserMessage("plan a trip", nil, now),
	}

	frags, err := collect(t, o.Stream(context.Background(), req))
	require.NoError(t, err)
	require.Len(t, frags, 2)
	assert.Equal(t, "Hel", frags[0].Delta())
	assert.Equal(t, "lo", frags[1].Delta())

	assert.Equal(t, "google/gemini-2.5-pro", body["model"])
	assert.Equal(t, "high", body["reasoning_effort"])
	assert.NotContains(t, body, "max_completion_tokens")
}

func TestOpenRouterStreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"nope"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	o := NewOpenRouter("bad", nil, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	_, err := collect(t, o.Stream(context.Background(), Request{Turn: models.NewUserMessage("hi", nil, time.Now())}))
	assert.Error(t, err)
}

func TestToChatMessages(t *testing.T) {
	now := time.Unix(1700000000, 0)
	att := &models.Attachment{Data: "aGk=", MIMEType: "image/jpeg"}
	msgs := toChatMessages("persona", []models.Message{
		models.NewUserMessage("look", att, now),
		models.NewModelMessage("a dog", "Visual Analysis", now),
		models.NewUserMessage("thanks", nil, now),
	})
	require.Len(t, msgs, 4)
	assert.NotNil(t, msgs[0].OfSystem)
	require.NotNil(t, msgs[1].OfUser)
	parts := msgs[1].OfUser.Content.OfArrayOfContentParts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].OfImageURL)
	assert.Equal(t, "data:image/jpeg;base64,aGk=", parts[0].OfImageURL.ImageURL.URL)
	assert.NotNil(t, msgs[2].OfAssistant)
	assert.NotNil(t, msgs[3].OfUser)
}

func TestOpenRouterModel(t *testing.T) {
	assert.Equal(t, "google/gemini-2.5-flash", openRouterModel("gemini-2.5-flash"))
	assert.Equal(t, "anthropic/claude", openRouterModel("anthropic/claude"))
}
