package openai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/param"
	"github.com/openai/openai-go/v3/shared"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
)

// DefaultChatModel is used when no generative model is configured.
const DefaultChatModel = "gpt-4o"

const fileDeleteTimeout = 30 * time.Second

// ErrNoChoices is returned when a chat completion has no choices. It counts as an empty response.
var ErrNoChoices = fmt.Errorf("openai: no choices in response: %w", huberrors.ErrEmptyResponse)

// Generator requests JSON objects from the chat completions API.
// Documents are uploaded through the Files API (purpose user_data), referenced by id in the
// message and deleted once the completion returns.
type Generator struct {
	sdk        openaisdk.Client
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// GeneratorOption configures the Generator.
type GeneratorOption func(*Generator)

// WithChatModel sets the chat model. Empty uses DefaultChatModel.
func WithChatModel(model string) GeneratorOption {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithGeneratorHTTPClient routes SDK traffic through hc. SDK retries are disabled when set.
func WithGeneratorHTTPClient(hc *http.Client) GeneratorOption {
	return func(g *Generator) {
		g.httpClient = hc
	}
}

// NewGenerator creates an OpenAI chat generator.
func NewGenerator(apiKey string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		model:  DefaultChatModel,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	g.sdk = openaisdk.NewClient(requestOptions(apiKey, g.httpClient)...)

	return g
}

// GenerateJSON implements llm.Generator.
func (g *Generator) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", llm.ErrEmptyPrompt
	}

	message := openaisdk.UserMessage(req.Prompt)

	if req.Document != nil {
		fileID, err := g.uploadDocument(ctx, req.Document)
		if err != nil {
			return "", err
		}

		defer g.deleteFile(ctx, fileID)

		message = openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
			openaisdk.FileContentPart(openaisdk.ChatCompletionContentPartFileFileParam{
				FileID: param.NewOpt(fileID),
			}),
			openaisdk.TextContentPart(req.Prompt),
		})
	}

	resp, err := g.sdk.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(g.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{message},
		ResponseFormat: openaisdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}

func (g *Generator) uploadDocument(ctx context.Context, doc *llm.Document) (string, error) {
	name := doc.Name
	if name == "" {
		name = "document.pdf"
	}

	mimeType := doc.MIMEType
	if mimeType == "" {
		mimeType = llm.DetectMIMEType(name)
	}

	file, err := g.sdk.Files.New(ctx, openaisdk.FileNewParams{
		File:    openaisdk.File(bytes.NewReader(doc.Data), name, mimeType),
		Purpose: openaisdk.FilePurposeUserData,
	})
	if err != nil {
		return "", fmt.Errorf("openai file upload: %w", err)
	}

	return file.ID, nil
}

// deleteFile runs detached from the request's cancellation so cancelled requests still clean up.
func (g *Generator) deleteFile(parent context.Context, fileID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), fileDeleteTimeout)
	defer cancel()

	if _, err := g.sdk.Files.Delete(ctx, fileID); err != nil {
		g.logger.Warn("failed to delete uploaded file", "file_id", fileID, "error", err)
	}
}
