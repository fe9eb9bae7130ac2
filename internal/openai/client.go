// Package openai wraps the official OpenAI Go SDK for embeddings and JSON chat completions.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/param"

	"github.com/404drakefound/ucl-deepflow-task-delegation/pkg/embeddings"
)

var (
	ErrEmptyInput            = errors.New("openai: input text is empty")
	ErrInvalidDims           = errors.New("openai: embedding dimensions must be positive")
	ErrNoEmbeddingInResponse = errors.New("openai: no embedding in response")
)

// DefaultEmbeddingModel is used when no embedding model is configured.
const DefaultEmbeddingModel = openaisdk.EmbeddingModelTextEmbedding3Small

// Client embeds profile texts. Vectors are requested at the VECTOR column width so
// text-embedding-3 models shorten them server side.
type Client struct {
	sdk        openaisdk.Client
	model      openaisdk.EmbeddingModel
	dimensions int
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model. Empty keeps DefaultEmbeddingModel.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model != "" {
			c.model = openaisdk.EmbeddingModel(model)
		}
	}
}

// WithHTTPClient routes SDK traffic through hc. SDK retries are disabled when set.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an embeddings client. Dimensions default to 1536.
func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	c := &Client{model: DefaultEmbeddingModel, dimensions: 1536}

	for _, opt := range opts {
		opt(c)
	}

	if c.dimensions <= 0 {
		return nil, ErrInvalidDims
	}

	c.sdk = openaisdk.NewClient(requestOptions(apiKey, c.httpClient)...)

	return c, nil
}

// requestOptions is shared by Client and Generator.
func requestOptions(apiKey string, hc *http.Client) []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if hc != nil {
		opts = append(opts, option.WithHTTPClient(hc), option.WithMaxRetries(0))
	}

	return opts
}

// CreateEmbedding implements service.EmbeddingClient.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	resp, err := c.sdk.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input:      openaisdk.EmbeddingNewParamsInputUnion{OfString: param.NewOpt(input)},
		Model:      c.model,
		Dimensions: param.NewOpt(int64(c.dimensions)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, ErrNoEmbeddingInResponse
	}

	vec := toFloat32(resp.Data[0].Embedding)
	if err := embeddings.Validate(vec, c.dimensions); err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}

	return vec, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}

	return out
}
