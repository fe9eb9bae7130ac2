// Package pipeline builds the model clients, stores and services from configuration.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/anthropic"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/config"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/embeddings"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/googleai"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/openai"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/repository"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/service"
)

var (
	errUnsupportedGenerativeProvider = errors.New("unsupported generative provider")
	errUnsupportedEmbeddingProvider  = errors.New("unsupported embedding provider")
)

// Pipeline holds the wired services. Everything is built once per process and shared.
type Pipeline struct {
	Schema      *repository.Schema
	People      *service.PeopleService
	Tasks       *service.TasksService
	Agents      *service.AgentsService
	Delegations *service.DelegationsService
	Matcher     *service.Matcher
}

// Params configures New. Metrics and Logger may be nil.
type Params struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	Metrics observability.PipelineMetrics
	Logger  *slog.Logger
}

// New builds the model clients for the configured providers and wires every service.
func New(ctx context.Context, p Params) (*Pipeline, error) {
	cfg := p.Config

	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := llm.NewHTTPClient(cfg.ModelHTTPMaxRetries)
	limiter := llm.NewLimiter(cfg.ModelRateLimit)

	generator, err := NewGenerator(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}

	embeddingClient, err := NewEmbeddingClient(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}

	generator = llm.NewRateLimitedGenerator(generator, limiter)

	// The cache sits outside the limiter so hits never wait for a token.
	embeddingClient, err = llm.NewCachedEmbedder(llm.NewRateLimitedEmbedder(embeddingClient, limiter), cfg.EmbeddingCacheSize)
	if err != nil {
		return nil, err
	}

	logger.Info("model providers configured",
		"generative_provider", cfg.GenerativeProvider,
		"generative_model", cfg.GenerativeModel,
		"embedding_provider", cfg.EmbeddingProvider,
		"embedding_model", cfg.EmbeddingModel,
		"rate_limit", cfg.ModelRateLimit,
		"embedding_cache_size", cfg.EmbeddingCacheSize,
	)

	schema := repository.NewSchema(p.DB)
	peopleRepo := repository.NewPeopleRepository(p.DB)
	tasksRepo := repository.NewTasksRepository(p.DB)
	agentsRepo := repository.NewAgentsRepository(p.DB)
	delegationsRepo := repository.NewDelegationsRepository(p.DB)

	extractor := service.NewExtractor(generator, logger)
	composer := service.NewComposer(service.ComposerParams{
		Client:      embeddingClient,
		MaxAttempts: cfg.EmbeddingMaxAttempts,
		Metrics:     p.Metrics,
		Logger:      logger,
	})

	return &Pipeline{
		Schema: schema,
		People: service.NewPeopleService(service.PeopleServiceParams{
			Repo:        peopleRepo,
			Schema:      schema,
			Extractor:   extractor,
			Embedder:    composer,
			MaxAttempts: cfg.PersonExtractionMaxAttempts,
			Metrics:     p.Metrics,
			Logger:      logger,
		}),
		Tasks: service.NewTasksService(service.TasksServiceParams{
			Repo:        tasksRepo,
			Schema:      schema,
			Extractor:   extractor,
			Embedder:    composer,
			MaxAttempts: cfg.TaskExtractionMaxAttempts,
			Metrics:     p.Metrics,
			Logger:      logger,
		}),
		Agents: service.NewAgentsService(service.AgentsServiceParams{
			Repo:        agentsRepo,
			Schema:      schema,
			Extractor:   extractor,
			Embedder:    composer,
			MaxAttempts: cfg.AgentExtractionMaxAttempts,
			Metrics:     p.Metrics,
			Logger:      logger,
		}),
		Delegations: service.NewDelegationsService(delegationsRepo),
		Matcher: service.NewMatcher(service.MatcherParams{
			Tasks:       tasksRepo,
			People:      peopleRepo,
			Agents:      agentsRepo,
			Delegations: delegationsRepo,
			Schema:      schema,
			Decider:     extractor,
			TopN:        cfg.MatchTopN,
			MaxAttempts: cfg.DelegationMaxAttempts,
			Metrics:     p.Metrics,
			Logger:      logger,
		}),
	}, nil
}

// NewGenerator returns the generative client for GENERATIVE_PROVIDER.
func NewGenerator(ctx context.Context, cfg *config.Config, hc *http.Client) (llm.Generator, error) {
	switch cfg.GenerativeProvider {
	case config.ProviderOpenAI:
		opts := []openai.GeneratorOption{openai.WithGeneratorHTTPClient(hc)}
		if cfg.GenerativeModel != "" {
			opts = append(opts, openai.WithChatModel(cfg.GenerativeModel))
		}

		return openai.NewGenerator(cfg.GenerativeProviderAPIKey, opts...), nil
	case config.ProviderGoogle:
		opts := []googleai.GeneratorOption{googleai.WithGeneratorHTTPClient(hc)}
		if cfg.GenerativeModel != "" {
			opts = append(opts, googleai.WithGenerativeModel(cfg.GenerativeModel))
		}

		gen, err := googleai.NewGenerator(ctx, cfg.GenerativeProviderAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("create google generator: %w", err)
		}

		return gen, nil
	case config.ProviderAnthropic:
		opts := []anthropic.Option{anthropic.WithHTTPClient(hc)}
		if cfg.GenerativeModel != "" {
			opts = append(opts, anthropic.WithModel(cfg.GenerativeModel))
		}

		return anthropic.NewGenerator(cfg.GenerativeProviderAPIKey, opts...), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedGenerativeProvider, cfg.GenerativeProvider)
	}
}

// NewEmbeddingClient returns the embedding client for EMBEDDING_PROVIDER. Every client
// produces models.EmbeddingDimensions-long vectors.
func NewEmbeddingClient(ctx context.Context, cfg *config.Config, hc *http.Client) (service.EmbeddingClient, error) {
	switch cfg.EmbeddingProvider {
	case config.ProviderOpenAI:
		client, err := openai.NewClient(cfg.EmbeddingProviderAPIKey,
			openai.WithDimensions(models.EmbeddingDimensions),
			openai.WithModel(cfg.EmbeddingModel),
			openai.WithHTTPClient(hc),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai embedding client: %w", err)
		}

		return client, nil
	case config.ProviderGoogle:
		opts := []googleai.ClientOption{
			googleai.WithDimensions(models.EmbeddingDimensions),
			googleai.WithHTTPClient(hc),
		}
		if cfg.EmbeddingModel != "" {
			opts = append(opts, googleai.WithModel(cfg.EmbeddingModel))
		}

		client, err := googleai.NewClient(ctx, cfg.EmbeddingProviderAPIKey, opts...)
		if err != nil {
			return nil, fmt.Errorf("create google embedding client: %w", err)
		}

		return client, nil
	case config.ProviderMock:
		return embeddings.NewMockClientWithDimensions(models.EmbeddingDimensions), nil
	default:
		return nil, fmt.Errorf("%w: %s", errUnsupportedEmbeddingProvider, cfg.EmbeddingProvider)
	}
}
