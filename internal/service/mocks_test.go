package service

import (
	"context"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
)

type mockGenerator struct {
	generateFunc func(ctx context.Context, req llm.Request) (string, error)
	requests     []llm.Request
}

func (m *mockGenerator) GenerateJSON(ctx context.Context, req llm.Request) (string, error) {
	m.requests = append(m.requests, req)
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}

	return "", nil
}

// replies returns a generator answering with each content in turn, repeating the last one.
func replies(contents ...string) *mockGenerator {
	calls := 0

	return &mockGenerator{generateFunc: func(context.Context, llm.Request) (string, error) {
		i := min(calls, len(contents)-1)
		calls++

		return contents[i], nil
	}}
}

type mockEmbeddingClient struct {
	createFunc func(ctx context.Context, input string) ([]float32, error)
}

func (m *mockEmbeddingClient) CreateEmbedding(ctx context.Context, input string) ([]float32, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, input)
	}

	return unitVector(), nil
}

// unitVector is a valid stored-size embedding.
func unitVector() []float32 {
	vec := make([]float32, models.EmbeddingDimensions)
	vec[0] = 1

	return vec
}

type mockEmbedder struct {
	embedFunc func(ctx context.Context, kind, text string) ([]float32, bool)
}

func (m *mockEmbedder) Embed(ctx context.Context, kind, text string) ([]float32, bool) {
	if m.embedFunc != nil {
		return m.embedFunc(ctx, kind, text)
	}

	return nil, false
}

type mockSchema struct {
	ensureCalls int
	ensureErr   error
}

func (m *mockSchema) Ensure(context.Context) error {
	m.ensureCalls++

	return m.ensureErr
}

type mockPeopleRepo struct {
	insertFunc  func(ctx context.Context, externalID string, profile *models.PersonProfile, embedding []float32) (*models.Person, error)
	getFunc     func(ctx context.Context, externalID string) (*models.Person, error)
	listFunc    func(ctx context.Context, params models.ListParams) ([]models.Person, error)
	nearestFunc func(ctx context.Context, query []float32, topN int) ([]models.Match, error)
}

func (m *mockPeopleRepo) Insert(
	ctx context.Context, externalID string, profile *models.PersonProfile, embedding []float32,
) (*models.Person, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, externalID, profile, embedding)
	}

	return &models.Person{ExternalID: externalID, PersonProfile: *profile, Embedding: embedding, HasEmbedding: embedding != nil}, nil
}

func (m *mockPeopleRepo) GetByExternalID(ctx context.Context, externalID string) (*models.Person, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, externalID)
	}

	return nil, huberrors.NotFound("person", externalID)
}

func (m *mockPeopleRepo) List(ctx context.Context, params models.ListParams) ([]models.Person, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, params)
	}

	return nil, nil
}

func (m *mockPeopleRepo) FindNearest(ctx context.Context, query []float32, topN int) ([]models.Match, error) {
	if m.nearestFunc != nil {
		return m.nearestFunc(ctx, query, topN)
	}

	return nil, nil
}

type mockTasksRepo struct {
	insertFunc func(ctx context.Context, externalID string, profile *models.TaskProfile, embedding []float32) (*models.Task, error)
	getFunc    func(ctx context.Context, externalID string) (*models.Task, error)
}

func (m *mockTasksRepo) Insert(
	ctx context.Context, externalID string, profile *models.TaskProfile, embedding []float32,
) (*models.Task, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, externalID, profile, embedding)
	}

	return &models.Task{ID: 1, ExternalID: externalID, TaskProfile: *profile, Embedding: embedding, HasEmbedding: embedding != nil}, nil
}

func (m *mockTasksRepo) GetByExternalID(ctx context.Context, externalID string) (*models.Task, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, externalID)
	}

	return nil, huberrors.NotFound("task", externalID)
}

func (m *mockTasksRepo) List(context.Context, models.ListParams) ([]models.Task, error) {
	return nil, nil
}

type mockAgentsRepo struct {
	insertFunc  func(ctx context.Context, externalID string, profile *models.AgentProfile, embedding []float32) (*models.Agent, error)
	getFunc     func(ctx context.Context, externalID string) (*models.Agent, error)
	nearestFunc func(ctx context.Context, query []float32, topN int) ([]models.Match, error)
}

func (m *mockAgentsRepo) Insert(
	ctx context.Context, externalID string, profile *models.AgentProfile, embedding []float32,
) (*models.Agent, error) {
	if m.insertFunc != nil {
		return m.insertFunc(ctx, externalID, profile, embedding)
	}

	return &models.Agent{ExternalID: externalID, AgentProfile: *profile, Embedding: embedding, HasEmbedding: embedding != nil}, nil
}

func (m *mockAgentsRepo) GetByExternalID(ctx context.Context, externalID string) (*models.Agent, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, externalID)
	}

	return nil, huberrors.NotFound("agent", externalID)
}

func (m *mockAgentsRepo) List(context.Context, models.ListParams) ([]models.Agent, error) {
	return nil, nil
}

func (m *mockAgentsRepo) FindNearest(ctx context.Context, query []float32, topN int) ([]models.Match, error) {
	if m.nearestFunc != nil {
		return m.nearestFunc(ctx, query, topN)
	}

	return nil, nil
}

type upsertCall struct {
	taskID    int64
	personIDs []string
	agentIDs  []string
}

type mockDelegationsRepo struct {
	upserts   []upsertCall
	upsertErr error
}

func (m *mockDelegationsRepo) Upsert(_ context.Context, taskID int64, personIDs, agentIDs []string) (*models.Delegation, error) {
	m.upserts = append(m.upserts, upsertCall{taskID, personIDs, agentIDs})
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}

	return &models.Delegation{TaskID: taskID, MemberIDs: personIDs, AgentIDs: agentIDs}, nil
}

func (m *mockDelegationsRepo) List(context.Context, models.ListParams) ([]models.Delegation, error) {
	return nil, nil
}

type mockDecider struct {
	decideFunc func(ctx context.Context, dc DelegationContext) (*models.DelegationDecision, error)
	calls      int
	last       DelegationContext
}

func (m *mockDecider) DecideDelegation(ctx context.Context, dc DelegationContext) (*models.DelegationDecision, error) {
	m.calls++
	m.last = dc

	if m.decideFunc != nil {
		return m.decideFunc(ctx, dc)
	}

	return &models.DelegationDecision{BestCombination: map[string]string{}, Reasoning: "none needed"}, nil
}
