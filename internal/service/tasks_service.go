package service

import (
	"context"
	"log/slog"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
)

// TasksRepository defines the data access the tasks service needs.
type TasksRepository interface {
	Insert(ctx context.Context, externalID string, profile *models.TaskProfile, embedding []float32) (*models.Task, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Task, error)
	List(ctx context.Context, params models.ListParams) ([]models.Task, error)
}

// TaskExtractor extracts a task profile with one model call.
type TaskExtractor interface {
	ExtractTask(ctx context.Context, src llm.Source) (*models.TaskProfile, error)
}

// TasksService handles business logic for tasks.
type TasksService struct {
	repo        TasksRepository
	schema      SchemaEnsurer
	extractor   TaskExtractor
	embedder    VectorEmbedder
	maxAttempts int
	metrics     observability.PipelineMetrics
	logger      *slog.Logger
}

// TasksServiceParams configures TasksService. Schema, Metrics and Logger may be nil.
type TasksServiceParams struct {
	Repo        TasksRepository
	Schema      SchemaEnsurer
	Extractor   TaskExtractor
	Embedder    VectorEmbedder
	MaxAttempts int
	Metrics     observability.PipelineMetrics
	Logger      *slog.Logger
}

// NewTasksService creates a new tasks service.
func NewTasksService(p TasksServiceParams) *TasksService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &TasksService{
		repo:        p.Repo,
		schema:      p.Schema,
		extractor:   p.Extractor,
		embedder:    p.Embedder,
		maxAttempts: p.MaxAttempts,
		metrics:     p.Metrics,
		logger:      logger,
	}
}

// CreateTask extracts a profile from the description, embeds it and stores it.
// External ids may repeat; lookups return the latest task.
func (s *TasksService) CreateTask(ctx context.Context, externalID, description string) (*models.Task, error) {
	externalID, err := requireField("external_id", externalID)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartRecordSpan(ctx, "tasks.Create", observability.KindTask, externalID)
	defer span.End()

	description, err = requireField("description", description)
	if err != nil {
		return nil, err
	}

	profile, err := extractWithRetry(ctx, s.metrics, observability.KindTask, s.maxAttempts,
		func(ctx context.Context) (*models.TaskProfile, error) {
			return s.extractor.ExtractTask(ctx, llm.TextSource(description))
		})
	if err != nil {
		return nil, err
	}

	embedding, _ := s.embedder.Embed(ctx, observability.KindTask, ComposeTaskText(profile))

	task, err := insertEnsuringSchema(ctx, s.schema, s.logger, observability.KindTask,
		func(ctx context.Context) (*models.Task, error) {
			return s.repo.Insert(ctx, externalID, profile, embedding)
		})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "task created", "external_id", externalID, "id", task.ID, "has_embedding", task.HasEmbedding)

	return task, nil
}

// GetTask retrieves the latest task with the given external id.
func (s *TasksService) GetTask(ctx context.Context, externalID string) (*models.Task, error) {
	externalID, err := requireField("external_id", externalID)
	if err != nil {
		return nil, err
	}

	return s.repo.GetByExternalID(ctx, externalID)
}

// ListTasks returns tasks in insertion order.
func (s *TasksService) ListTasks(ctx context.Context, params models.ListParams) ([]models.Task, error) {
	return s.repo.List(ctx, params)
}
