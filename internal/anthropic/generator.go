// Package anthropic produces JSON objects with the Anthropic Messages API.
package anthropic

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
)

const (
	// DefaultModel is used when no generative model is configured.
	DefaultModel = "claude-sonnet-4-5"

	defaultMaxTokens = 4096
)

// jsonInstruction is appended to every prompt: the Messages API has no JSON response mode.
const jsonInstruction = "Respond with a single JSON object only, without Markdown fences or commentary."

// ErrUnsupportedDocument is returned for attachments other than PDF or plain text.
var ErrUnsupportedDocument = errors.New("anthropic: unsupported document type")

// Generator calls the Messages API.
type Generator struct {
	client     anthropicsdk.Client
	model      string
	maxTokens  int64
	httpClient *http.Client
}

// Option configures the Generator.
type Option func(*Generator)

// WithModel sets the model name. Empty uses DefaultModel.
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithMaxTokens caps the response length.
func WithMaxTokens(n int64) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithHTTPClient routes SDK traffic through hc. SDK retries are disabled when set.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Generator) {
		g.httpClient = hc
	}
}

// NewGenerator creates a Messages API generator.
func NewGenerator(apiKey string, opts ...Option) *Generator {
	g := &Generator{
		model:     DefaultModel,
		maxTokens: defaultMaxTokens,
	}

	for _, opt := range opts {
		opt(g)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if g.httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(g.httpClient), option.WithMaxRetries(0))
	}

	g.client = anthropicsdk.NewClient(reqOpts...)

	return g
}

// GenerateJSON implements llm.Generator.
func (g *Generator) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", llm.ErrEmptyPrompt
	}

	blocks, err := contentBlocks(req)
	if err != nil {
		return "", err
	}

	resp, err := g.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages:  []anthropicsdk.MessageParam{anthropicsdk.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	var builder strings.Builder

	for _, block := range resp.Content {
		if block.Type == "text" {
			builder.WriteString(block.Text)
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

func contentBlocks(req llm.Request) ([]anthropicsdk.ContentBlockParamUnion, error) {
	prompt := anthropicsdk.NewTextBlock(req.Prompt + "\n\n" + jsonInstruction)

	if req.Document == nil {
		return []anthropicsdk.ContentBlockParamUnion{prompt}, nil
	}

	mimeType := req.Document.MIMEType
	if mimeType == "" {
		mimeType = llm.DetectMIMEType(req.Document.Name)
	}

	var doc anthropicsdk.ContentBlockParamUnion

	switch {
	case mimeType == "application/pdf":
		doc = anthropicsdk.NewDocumentBlock(anthropicsdk.Base64PDFSourceParam{
			Data: base64.StdEncoding.EncodeToString(req.Document.Data),
		})
	case strings.HasPrefix(mimeType, "text/"):
		doc = anthropicsdk.NewDocumentBlock(anthropicsdk.PlainTextSourceParam{
			Data: string(req.Document.Data),
		})
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, mimeType)
	}

	return []anthropicsdk.ContentBlockParamUnion{doc, prompt}, nil
}
