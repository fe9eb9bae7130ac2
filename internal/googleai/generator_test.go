package googleai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
)

func TestCollectText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: ` {"tags": ["a"]} `},
			}}},
			nil,
			{Content: nil},
		},
	}

	assert.Equal(t, `{"tags": ["a"]}`, collectText(resp))
	assert.Empty(t, collectText(nil))
	assert.Empty(t, collectText(&genai.GenerateContentResponse{}))
}

func TestSupportedMIMEType(t *testing.T) {
	assert.True(t, supportedMIMEType("application/pdf"))
	assert.True(t, supportedMIMEType("text/plain"))
	assert.False(t, supportedMIMEType("application/vnd.openxmlformats-officedocument.wordprocessingml.document"))
}

func TestNewGenerator_RequiresAPIKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), " ")

	require.Error(t, err)
}

func TestGenerator_RejectsUnsupportedDocument(t *testing.T) {
	g := &Generator{model: DefaultGenerativeModel}

	_, err := g.GenerateJSON(context.Background(), llm.Request{
		Prompt:   "extract",
		Document: &llm.Document{Name: "cv.docx", Data: []byte("PK")},
	})

	assert.ErrorIs(t, err, ErrUnsupportedDocument)
}

func TestGenerator_EmptyPrompt(t *testing.T) {
	g := &Generator{model: DefaultGenerativeModel}

	_, err := g.GenerateJSON(context.Background(), llm.Request{})

	assert.ErrorIs(t, err, llm.ErrEmptyPrompt)
}
