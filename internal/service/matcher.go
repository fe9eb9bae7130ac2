package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/observability"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/retry"
)

// DefaultMatchTopN is the number of nearest people and agents shown to the decision model.
const DefaultMatchTopN = 3

// TaskLookup resolves the task being delegated.
type TaskLookup interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.Task, error)
}

// PersonIndex finds and resolves nearest people.
type PersonIndex interface {
	FindNearest(ctx context.Context, query []float32, topN int) ([]models.Match, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Person, error)
}

// AgentIndex finds and resolves nearest agents.
type AgentIndex interface {
	FindNearest(ctx context.Context, query []float32, topN int) ([]models.Match, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.Agent, error)
}

// DelegationDecider makes the final choice among candidates with one model call.
type DelegationDecider interface {
	DecideDelegation(ctx context.Context, dc DelegationContext) (*models.DelegationDecision, error)
}

// Matcher delegates a task to the most similar people and agents.
type Matcher struct {
	tasks       TaskLookup
	people      PersonIndex
	agents      AgentIndex
	delegations DelegationsRepository
	schema      SchemaEnsurer
	decider     DelegationDecider
	topN        int
	maxAttempts int
	metrics     observability.PipelineMetrics
	logger      *slog.Logger
}

// MatcherParams configures a Matcher. TopN <= 0 uses DefaultMatchTopN.
// Schema, Metrics and Logger may be nil.
type MatcherParams struct {
	Tasks       TaskLookup
	People      PersonIndex
	Agents      AgentIndex
	Delegations DelegationsRepository
	Schema      SchemaEnsurer
	Decider     DelegationDecider
	TopN        int
	MaxAttempts int
	Metrics     observability.PipelineMetrics
	Logger      *slog.Logger
}

// NewMatcher creates a Matcher.
func NewMatcher(p MatcherParams) *Matcher {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	topN := p.TopN
	if topN <= 0 {
		topN = DefaultMatchTopN
	}

	return &Matcher{
		tasks:       p.Tasks,
		people:      p.People,
		agents:      p.Agents,
		delegations: p.Delegations,
		schema:      p.Schema,
		decider:     p.Decider,
		topN:        topN,
		maxAttempts: p.MaxAttempts,
		metrics:     p.Metrics,
		logger:      logger,
	}
}

// Delegate picks the best people and agents for the task and stores the delegation.
// Returns ErrTaskNotFound, ErrNoEmbedding, or an error wrapping ErrRetryExhausted when the
// decision model never produced a valid answer.
func (m *Matcher) Delegate(ctx context.Context, taskExternalID string) (*models.DelegationDecision, error) {
	ctx, span := observability.StartRecordSpan(ctx, "matcher.Delegate", observability.KindTask, taskExternalID)
	defer span.End()

	start := time.Now()

	decision, err := m.delegate(ctx, taskExternalID)

	outcome := delegationOutcome(err)
	if m.metrics != nil {
		m.metrics.RecordDelegation(ctx, outcome, time.Since(start))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("delegation.people", len(decision.PersonIDs)),
		attribute.Int("delegation.agents", len(decision.AgentIDs)),
	)

	return decision, nil
}

func (m *Matcher) delegate(ctx context.Context, taskExternalID string) (*models.DelegationDecision, error) {
	taskExternalID, err := requireField("external_id", taskExternalID)
	if err != nil {
		return nil, err
	}

	task, err := m.tasks.GetByExternalID(ctx, taskExternalID)
	if err != nil {
		if errors.Is(err, huberrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", huberrors.ErrTaskNotFound, taskExternalID)
		}

		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if !task.HasEmbedding {
		return nil, fmt.Errorf("%w: %s", huberrors.ErrNoEmbedding, taskExternalID)
	}

	members, err := m.nearestPeople(ctx, task.Embedding)
	if err != nil {
		return nil, err
	}

	agents, err := m.nearestAgents(ctx, task.Embedding)
	if err != nil {
		return nil, err
	}

	dc := DelegationContext{
		TaskID:  task.ID,
		Task:    TaskBrief{ExternalID: task.ExternalID, TaskProfile: task.TaskProfile},
		Members: members,
		Agents:  agents,
	}

	res := retry.Do(ctx, "decide delegation", m.maxAttempts, func(ctx context.Context) (*models.DelegationDecision, error) {
		return m.decider.DecideDelegation(ctx, dc)
	})
	if !res.OK() {
		return nil, fmt.Errorf("failed to decide delegation for %s: %w", taskExternalID, res.Err())
	}

	decision := res.Value
	decision.TaskID = task.ID
	decision.TaskExternalID = task.ExternalID
	decision.PersonIDs, decision.AgentIDs = ParseCombinationKeys(ctx, m.logger, decision.BestCombination)

	_, err = insertEnsuringSchema(ctx, m.schema, m.logger, observability.KindDelegation,
		func(ctx context.Context) (*models.Delegation, error) {
			return m.delegations.Upsert(ctx, task.ID, decision.PersonIDs, decision.AgentIDs)
		})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "task delegated",
		"task_external_id", task.ExternalID,
		"task_id", task.ID,
		"people", decision.PersonIDs,
		"agents", decision.AgentIDs,
		"attempts", res.Attempts,
	)

	return decision, nil
}

func (m *Matcher) nearestPeople(ctx context.Context, query []float32) ([]PersonCandidate, error) {
	matches, err := m.people.FindNearest(ctx, query, m.topN)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearest people: %w", err)
	}

	candidates := make([]PersonCandidate, 0, len(matches))

	for _, match := range matches {
		person, err := m.people.GetByExternalID(ctx, match.ExternalID)
		if err != nil {
			if errors.Is(err, huberrors.ErrNotFound) {
				m.logger.DebugContext(ctx, "nearest person vanished", "external_id", match.ExternalID)

				continue
			}

			return nil, fmt.Errorf("failed to resolve person %s: %w", match.ExternalID, err)
		}

		candidates = append(candidates, PersonCandidate{
			ID:            MemberPrefix + person.ExternalID,
			Similarity:    match.Similarity,
			PersonProfile: person.PersonProfile,
		})
	}

	return candidates, nil
}

func (m *Matcher) nearestAgents(ctx context.Context, query []float32) ([]AgentCandidate, error) {
	matches, err := m.agents.FindNearest(ctx, query, m.topN)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearest agents: %w", err)
	}

	candidates := make([]AgentCandidate, 0, len(matches))

	for _, match := range matches {
		agent, err := m.agents.GetByExternalID(ctx, match.ExternalID)
		if err != nil {
			if errors.Is(err, huberrors.ErrNotFound) {
				m.logger.DebugContext(ctx, "nearest agent vanished", "external_id", match.ExternalID)

				continue
			}

			return nil, fmt.Errorf("failed to resolve agent %s: %w", match.ExternalID, err)
		}

		candidates = append(candidates, AgentCandidate{
			ID:           AgentPrefix + agent.ExternalID,
			Similarity:   match.Similarity,
			AgentProfile: agent.AgentProfile,
		})
	}

	return candidates, nil
}

// ParseCombinationKeys splits best_combination keys into person and agent external ids.
// Only the prefix is cut, so "member_jane_doe" yields "jane_doe". Keys with another prefix or
// an empty id are dropped. Both lists are sorted and never nil.
func ParseCombinationKeys(ctx context.Context, logger *slog.Logger, combination map[string]string) (personIDs, agentIDs []string) {
	personIDs = []string{}
	agentIDs = []string{}

	for key := range combination {
		if id, ok := strings.CutPrefix(key, MemberPrefix); ok && id != "" {
			personIDs = append(personIDs, id)

			continue
		}

		if id, ok := strings.CutPrefix(key, AgentPrefix); ok && id != "" {
			agentIDs = append(agentIDs, id)

			continue
		}

		if logger != nil {
			logger.DebugContext(ctx, "ignoring best_combination key", "key", key)
		}
	}

	slices.Sort(personIDs)
	slices.Sort(agentIDs)

	return personIDs, agentIDs
}

func delegationOutcome(err error) string {
	switch {
	case err == nil:
		return observability.OutcomeSuccess
	case errors.Is(err, huberrors.ErrTaskNotFound):
		return observability.OutcomeTaskMissing
	case errors.Is(err, huberrors.ErrNoEmbedding):
		return observability.OutcomeNoEmbedding
	case errors.Is(err, huberrors.ErrRetryExhausted):
		return observability.OutcomeExhausted
	default:
		return observability.OutcomeError
	}
}
