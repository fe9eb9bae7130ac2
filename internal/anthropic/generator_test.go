package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
)

func newTestClient(baseURL string) anthropicsdk.Client {
	return anthropicsdk.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	)
}

func TestContentBlocks_TextOnly(t *testing.T) {
	blocks, err := contentBlocks(llm.Request{Prompt: "describe"})

	require.NoError(t, err)
	require.Len(t, blocks, 1)
	require.NotNil(t, blocks[0].OfText)
	assert.Contains(t, blocks[0].OfText.Text, "describe")
	assert.Contains(t, blocks[0].OfText.Text, jsonInstruction)
}

func TestContentBlocks_PDFComesFirst(t *testing.T) {
	blocks, err := contentBlocks(llm.Request{
		Prompt:   "extract",
		Document: &llm.Document{Name: "cv.pdf", Data: []byte("%PDF")},
	})

	require.NoError(t, err)
	require.Len(t, blocks, 2)
	assert.NotNil(t, blocks[0].OfDocument)
	assert.NotNil(t, blocks[1].OfText)
}

func TestContentBlocks_UnsupportedDocument(t *testing.T) {
	_, err := contentBlocks(llm.Request{
		Prompt:   "extract",
		Document: &llm.Document{Name: "cv.docx", Data: []byte("PK")},
	})

	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestGenerator_GenerateJSON(t *testing.T) {
	var body map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "msg_1",
			"type":          "message",
			"role":          "assistant",
			"model":         DefaultModel,
			"stop_reason":   "end_turn",
			"stop_sequence": nil,
			"content":       []map[string]any{{"type": "text", "text": `{"reasoning":"ok"}`}},
			"usage":         map[string]any{"input_tokens": 1, "output_tokens": 1},
		})
	}))
	defer srv.Close()

	g := NewGenerator("test-key")
	g.client = newTestClient(srv.URL)

	out, err := g.GenerateJSON(context.Background(), llm.Request{Prompt: "decide"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"reasoning":"ok"}`, out)
	assert.Equal(t, DefaultModel, body["model"])
	assert.InDelta(t, float64(defaultMaxTokens), body["max_tokens"], 0)
}

func TestGenerator_EmptyPrompt(t *testing.T) {
	_, err := NewGenerator("k").GenerateJSON(context.Background(), llm.Request{Prompt: ""})

	assert.ErrorIs(t, err, llm.ErrEmptyPrompt)
}
