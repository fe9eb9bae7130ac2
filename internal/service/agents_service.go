package service

import (
	"context"
	"log/slog"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
)

// AgentsRepository defines the data access the agents service needs.
type AgentsRepository interface {
	Insert(ctx context.Context, externalID string, profile *models.AgentProfile, embedding []float32) (*models.Agent, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Agent, error)
	List(ctx context.Context, params models.ListParams) ([]models.Agent, error)
}

// AgentExtractor extracts an agent profile with one model call.
type AgentExtractor interface {
	ExtractAgent(ctx context.Context, src llm.Source) (*models.AgentProfile, error)
}

// AgentsService handles business logic for agents.
type AgentsService struct {
	repo        AgentsRepository
	schema      SchemaEnsurer
	extractor   AgentExtractor
	embedder    VectorEmbedder
	maxAttempts int
	metrics     observability.PipelineMetrics
	logger      *slog.Logger
}

// AgentsServiceParams configures AgentsService. Schema, Metrics and Logger may be nil.
type AgentsServiceParams struct {
	Repo        AgentsRepository
	Schema      SchemaEnsurer
	Extractor   AgentExtractor
	Embedder    VectorEmbedder
	MaxAttempts int
	Metrics     observability.PipelineMetrics
	Logger      *slog.Logger
}

// NewAgentsService creates a new agents service.
func NewAgentsService(p AgentsServiceParams) *AgentsService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &AgentsService{
		repo:        p.Repo,
		schema:      p.Schema,
		extractor:   p.Extractor,
		embedder:    p.Embedder,
		maxAttempts: p.MaxAttempts,
		metrics:     p.Metrics,
		logger:      logger,
	}
}

// CreateAgent extracts a profile from the agent description, embeds it and stores it.
// External ids may repeat; lookups return the latest agent.
func (s *AgentsService) CreateAgent(ctx context.Context, externalID, description string) (*models.Agent, error) {
	externalID, err := requireField("external_id", externalID)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartRecordSpan(ctx, "agents.Create", observability.KindAgent, externalID)
	defer span.End()

	description, err = requireField("description", description)
	if err != nil {
		return nil, err
	}

	profile, err := extractWithRetry(ctx, s.metrics, observability.KindAgent, s.maxAttempts,
		func(ctx context.Context) (*models.AgentProfile, error) {
			return s.extractor.ExtractAgent(ctx, llm.TextSource(description))
		})
	if err != nil {
		return nil, err
	}

	embedding, _ := s.embedder.Embed(ctx, observability.KindAgent, ComposeAgentText(profile))

	agent, err := insertEnsuringSchema(ctx, s.schema, s.logger, observability.KindAgent,
		func(ctx context.Context) (*models.Agent, error) {
			return s.repo.Insert(ctx, externalID, profile, embedding)
		})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "agent created", "external_id", externalID, "id", agent.ID, "has_embedding", agent.HasEmbedding)

	return agent, nil
}

// GetAgent retrieves the latest agent with the given external id.
func (s *AgentsService) GetAgent(ctx context.Context, externalID string) (*models.Agent, error) {
	externalID, err := requireField("external_id", externalID)
	if err != nil {
		return nil, err
	}

	return s.repo.GetByExternalID(ctx, externalID)
}

// ListAgents returns agents in insertion order.
func (s *AgentsService) ListAgents(ctx context.Context, params models.ListParams) ([]models.Agent, error) {
	return s.repo.List(ctx, params)
}
