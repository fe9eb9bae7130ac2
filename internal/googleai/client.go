// Package googleai wraps the Google Gen AI SDK (Gemini API) for embeddings and JSON generation.
package googleai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/404drakefound/ucl-deepflow-task-delegation/pkg/embeddings"
)

var (
	ErrEmptyInput            = errors.New("googleai: input text is empty")
	ErrInvalidDims           = errors.New("googleai: embedding dimensions must be between 1 and MaxInt32")
	ErrNoEmbeddingInResponse = errors.New("googleai: no embedding in response")
)

const (
	DefaultEmbeddingModel = "gemini-embedding-001"
	defaultDimensions     = 1536

	// People, tasks and agents are compared with each other, not queried by short search strings.
	embeddingTaskType = "SEMANTIC_SIMILARITY"
)

// Client embeds composed record text with Gemini. Vectors are requested at the stored
// dimensionality and normalized, since Gemini only normalizes full-size output.
type Client struct {
	client     *genai.Client
	model      string
	dimensions int
	httpClient *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithDimensions sets the output dimensionality; it must match the VECTOR column.
func WithDimensions(dim int) ClientOption {
	return func(c *Client) {
		c.dimensions = dim
	}
}

// WithModel sets the embedding model name. Empty keeps DefaultEmbeddingModel.
func WithModel(model string) ClientOption {
	return func(c *Client) {
		if model = strings.TrimSpace(model); model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient routes SDK traffic through hc.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Gemini embeddings client.
func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		model:      DefaultEmbeddingModel,
		dimensions: defaultDimensions,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.dimensions <= 0 || c.dimensions > math.MaxInt32 {
		return nil, ErrInvalidDims
	}

	genaiClient, err := newGenAIClient(ctx, apiKey, c.httpClient)
	if err != nil {
		return nil, err
	}

	c.client = genaiClient

	return c, nil
}

func newGenAIClient(ctx context.Context, apiKey string, hc *http.Client) (*genai.Client, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: hc,
	})
	if err != nil {
		return nil, fmt.Errorf("googleai client: %w", err)
	}

	return genaiClient, nil
}

// CreateEmbedding returns the unit-length embedding of input.
func (c *Client) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyInput
	}

	dims := int32(c.dimensions) //nolint:gosec // bounded in NewClient

	resp, err := c.client.Models.EmbedContent(ctx, c.model,
		[]*genai.Content{genai.NewContentFromText(input, genai.RoleUser)},
		&genai.EmbedContentConfig{
			TaskType:             embeddingTaskType,
			OutputDimensionality: &dims,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embedding: %w", err)
	}

	return firstEmbedding(resp, c.dimensions)
}

// firstEmbedding checks the first vector of resp and returns a normalized copy.
func firstEmbedding(resp *genai.EmbedContentResponse, dimensions int) ([]float32, error) {
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, ErrNoEmbeddingInResponse
	}

	values := resp.Embeddings[0].Values
	if err := embeddings.Validate(values, dimensions); err != nil {
		return nil, fmt.Errorf("googleai: %w", err)
	}

	return embeddings.Normalized(values), nil
}
