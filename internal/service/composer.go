package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/retry"
	"github.com/404drakefound/ucl-deepflow-task-delegation/pkg/embeddings"
)

// EmbeddingClient turns text into a vector. Implemented by the openai, googleai and embeddings packages.
type EmbeddingClient interface {
	CreateEmbedding(ctx context.Context, input string) ([]float32, error)
}

// ComposePersonText joins the person fields that describe what they are good at.
func ComposePersonText(p *models.PersonProfile) string {
	return joinGroups(
		p.PersonalSummary,
		joinList(p.TechnicalSkills),
		joinList(p.SoftSkills),
		joinList(p.Certifications),
		joinList(p.TaskDelegationRecommendations),
		joinList(p.SpecializationTaskCategories),
		joinList(p.AdditionalObservations),
	)
}

// ComposeTaskText joins the task fields used for matching. A missing sector contributes "".
func ComposeTaskText(t *models.TaskProfile) string {
	sector := ""
	if t.Sector != nil {
		sector = *t.Sector
	}

	return joinGroups(
		joinList(t.RequiredSkills),
		sector,
		joinList(t.Tags),
		joinList(t.RolesRequired),
	)
}

// ComposeAgentText joins the agent fields used for matching.
func ComposeAgentText(a *models.AgentProfile) string {
	return joinGroups(
		joinList(a.Tags),
		joinList(a.Skills),
		joinList(a.Capabilities),
		joinList(a.CoreFunctionalities),
	)
}

func joinList(list []string) string {
	return strings.Join(list, " ")
}

func joinGroups(groups ...string) string {
	return strings.TrimSpace(strings.Join(groups, " "))
}

// Composer produces embeddings for composed record text. Failures never propagate:
// callers get the absent-vector signal and store the record without one.
type Composer struct {
	client      EmbeddingClient
	maxAttempts int
	metrics     observability.PipelineMetrics
	logger      *slog.Logger
}

// ComposerParams configures a Composer. Metrics and Logger may be nil.
type ComposerParams struct {
	Client      EmbeddingClient
	MaxAttempts int
	Metrics     observability.PipelineMetrics
	Logger      *slog.Logger
}

// NewComposer creates a Composer.
func NewComposer(p ComposerParams) *Composer {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Composer{
		client:      p.Client,
		maxAttempts: p.MaxAttempts,
		metrics:     p.Metrics,
		logger:      logger,
	}
}

// Embed returns the vector for text, or (nil, false) when no valid vector could be produced.
func (c *Composer) Embed(ctx context.Context, kind, text string) ([]float32, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	res := retry.Do(ctx, "embed "+kind, c.maxAttempts, func(ctx context.Context) ([]float32, error) {
		vec, err := c.client.CreateEmbedding(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("create embedding: %w", err)
		}

		if err := embeddings.Validate(vec, models.EmbeddingDimensions); err != nil {
			return nil, fmt.Errorf("invalid embedding: %w", err)
		}

		return vec, nil
	})
	if !res.OK() {
		c.logger.WarnContext(ctx, "storing record without embedding",
			"kind", kind,
			"error", fmt.Errorf("%w: %w", huberrors.ErrEmbeddingUnavailable, res.Err()),
		)
		c.record(ctx, kind, observability.OutcomeUnavailable)

		return nil, false
	}

	c.record(ctx, kind, observability.OutcomeSuccess)

	return res.Value, true
}

func (c *Composer) record(ctx context.Context, kind, outcome string) {
	if c.metrics != nil {
		c.metrics.RecordEmbedding(ctx, kind, outcome)
	}
}
