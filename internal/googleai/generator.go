package googleai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
)

// DefaultGenerativeModel is used when no generative model is configured.
const DefaultGenerativeModel = "gemini-2.5-flash"

// ErrUnsupportedDocument is returned for attachments Gemini cannot read inline.
var ErrUnsupportedDocument = errors.New("googleai: unsupported document type")

// Generator requests JSON content from Gemini. Documents are sent as inline bytes.
type Generator struct {
	client     *genai.Client
	model      string
	httpClient *http.Client
}

// GeneratorOption configures the Generator.
type GeneratorOption func(*Generator)

// WithGenerativeModel sets the model name. Empty uses DefaultGenerativeModel.
func WithGenerativeModel(model string) GeneratorOption {
	return func(g *Generator) {
		if model = strings.TrimSpace(model); model != "" {
			g.model = model
		}
	}
}

// WithGeneratorHTTPClient routes SDK traffic through hc.
func WithGeneratorHTTPClient(hc *http.Client) GeneratorOption {
	return func(g *Generator) {
		g.httpClient = hc
	}
}

// NewGenerator creates a Gemini generator.
func NewGenerator(ctx context.Context, apiKey string, opts ...GeneratorOption) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	g := &Generator{model: DefaultGenerativeModel}
	for _, opt := range opts {
		opt(g)
	}

	client, err := newGenAIClient(ctx, apiKey, g.httpClient)
	if err != nil {
		return nil, err
	}

	g.client = client

	return g, nil
}

// GenerateJSON implements llm.Generator.
func (g *Generator) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", llm.ErrEmptyPrompt
	}

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}

	if req.Document != nil {
		mimeType := req.Document.MIMEType
		if mimeType == "" {
			mimeType = llm.DetectMIMEType(req.Document.Name)
		}

		if !supportedMIMEType(mimeType) {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedDocument, mimeType)
		}

		parts = append([]*genai.Part{genai.NewPartFromBytes(req.Document.Data, mimeType)}, parts...)
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	return collectText(resp), nil
}

func supportedMIMEType(mimeType string) bool {
	return mimeType == "application/pdf" || strings.HasPrefix(mimeType, "text/")
}

// collectText joins the text parts of every candidate.
func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder

	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}

		for _, part := range candidate.Content.Parts {
			if part == nil || part.Thought {
				continue
			}

			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}

			if builder.Len() > 0 {
				builder.WriteString("\n")
			}

			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}
