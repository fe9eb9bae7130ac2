package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/repository"
)

// PeopleRepository defines the data access the people service needs.
type PeopleRepository interface {
	Insert(ctx context.Context, externalID string, profile *models.PersonProfile, embedding []float32) (*models.Person, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Person, error)
	List(ctx context.Context, params models.ListParams) ([]models.Person, error)
}

// PersonExtractor extracts a person profile with one model call.
type PersonExtractor interface {
	ExtractPerson(ctx context.Context, src llm.Source) (*models.PersonProfile, error)
}

// VectorEmbedder produces an embedding or the absent-vector signal.
type VectorEmbedder interface {
	Embed(ctx context.Context, kind, text string) ([]float32, bool)
}

// PeopleService handles business logic for people.
type PeopleService struct {
	repo        PeopleRepository
	schema      SchemaEnsurer
	extractor   PersonExtractor
	embedder    VectorEmbedder
	maxAttempts int
	metrics     observability.PipelineMetrics
	logger      *slog.Logger
}

// PeopleServiceParams configures PeopleService. Schema, Metrics and Logger may be nil.
type PeopleServiceParams struct {
	Repo        PeopleRepository
	Schema      SchemaEnsurer
	Extractor   PersonExtractor
	Embedder    VectorEmbedder
	MaxAttempts int
	Metrics     observability.PipelineMetrics
	Logger      *slog.Logger
}

// NewPeopleService creates a new people service.
func NewPeopleService(p PeopleServiceParams) *PeopleService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &PeopleService{
		repo:        p.Repo,
		schema:      p.Schema,
		extractor:   p.Extractor,
		embedder:    p.Embedder,
		maxAttempts: p.MaxAttempts,
		metrics:     p.Metrics,
		logger:      logger,
	}
}

// CreatePerson extracts a profile from the resume, embeds it and stores it.
// An already stored external id is rejected before any model call.
func (s *PeopleService) CreatePerson(ctx context.Context, externalID string, resume llm.Source) (*models.Person, error) {
	externalID, err := requireField("external_id", externalID)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartRecordSpan(ctx, "people.Create", observability.KindPerson, externalID)
	defer span.End()

	if resume.IsEmpty() {
		return nil, huberrors.Invalid("resume", "resume is required")
	}

	if err := s.checkAvailable(ctx, externalID); err != nil {
		return nil, err
	}

	profile, err := extractWithRetry(ctx, s.metrics, observability.KindPerson, s.maxAttempts,
		func(ctx context.Context) (*models.PersonProfile, error) {
			return s.extractor.ExtractPerson(ctx, resume)
		})
	if err != nil {
		return nil, err
	}

	embedding, _ := s.embedder.Embed(ctx, observability.KindPerson, ComposePersonText(profile))

	person, err := insertEnsuringSchema(ctx, s.schema, s.logger, observability.KindPerson,
		func(ctx context.Context) (*models.Person, error) {
			return s.repo.Insert(ctx, externalID, profile, embedding)
		})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "person created", "external_id", externalID, "has_embedding", person.HasEmbedding)

	return person, nil
}

func (s *PeopleService) checkAvailable(ctx context.Context, externalID string) error {
	_, err := s.repo.GetByExternalID(ctx, externalID)

	switch {
	case err == nil:
		return fmt.Errorf("person %q: %w", externalID, huberrors.ErrDuplicateExternalID)
	case errors.Is(err, huberrors.ErrNotFound), repository.IsUndefinedTable(err):
		return nil
	default:
		return err
	}
}

// GetPerson retrieves a person by external id.
func (s *PeopleService) GetPerson(ctx context.Context, externalID string) (*models.Person, error) {
	externalID, err := requireField("external_id", externalID)
	if err != nil {
		return nil, err
	}

	return s.repo.GetByExternalID(ctx, externalID)
}

// ListPeople returns people in insertion order.
func (s *PeopleService) ListPeople(ctx context.Context, params models.ListParams) ([]models.Person, error) {
	return s.repo.List(ctx, params)
}
