package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
)

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *Generator {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGenerator("test-key")
	g.sdk = openaisdk.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL+"/v1/"),
		option.WithMaxRetries(0),
	)

	return g
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestGenerator_GenerateJSON_RequestsJSONObject(t *testing.T) {
	var body map[string]any

	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatResponse(`{"tags":[]}`))
	})

	out, err := g.GenerateJSON(context.Background(), llm.Request{Prompt: "describe the agent"})

	require.NoError(t, err)
	assert.JSONEq(t, `{"tags":[]}`, out)
	assert.Equal(t, DefaultChatModel, body["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])
}

func TestGenerator_GenerateJSON_UploadsDocument(t *testing.T) {
	var paths []string

	g := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/files":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "user_data", r.FormValue("purpose"))
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": "file-123", "object": "file", "bytes": 4, "created_at": 1,
				"filename": "cv.pdf", "purpose": "user_data", "status": "processed",
			})
		case r.Method == http.MethodPost && r.URL.Path == "/v1/chat/completions":
			raw, _ := io.ReadAll(r.Body)
			assert.True(t, strings.Contains(string(raw), "file-123"))
			_ = json.NewEncoder(w).Encode(chatResponse(`{"personal_summary":"x"}`))
		case r.Method == http.MethodDelete:
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "file-123", "object": "file", "deleted": true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	out, err := g.GenerateJSON(context.Background(), llm.Request{
		Prompt:   "extract",
		Document: &llm.Document{Name: "cv.pdf", Data: []byte("%PDF")},
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"personal_summary":"x"}`, out)
	assert.Equal(t, []string{
		"POST /v1/files",
		"POST /v1/chat/completions",
		"DELETE /v1/files/file-123",
	}, paths)
}

func TestGenerator_GenerateJSON_EmptyPrompt(t *testing.T) {
	g := NewGenerator("k")

	_, err := g.GenerateJSON(context.Background(), llm.Request{Prompt: "  "})

	assert.ErrorIs(t, err, llm.ErrEmptyPrompt)
}

func TestGenerator_GenerateJSON_NoChoices(t *testing.T) {
	g := newTestGenerator(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := chatResponse("")
		resp["choices"] = []any{}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	_, err := g.GenerateJSON(context.Background(), llm.Request{Prompt: "p"})

	assert.ErrorIs(t, err, ErrNoChoices)
	assert.ErrorIs(t, err, huberrors.ErrEmptyResponse)
}
