package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
)

var errUndefinedTable = fmt.Errorf("failed to insert: %w", &pgconn.PgError{Code: "42P01", Message: `relation "tasks" does not exist`})

func fixedEmbedder(vec []float32) *mockEmbedder {
	return &mockEmbedder{embedFunc: func(context.Context, string, string) ([]float32, bool) {
		return vec, vec != nil
	}}
}

func TestTasksService_CreateTask(t *testing.T) {
	t.Run("extracts after transient failures and stores vector", func(t *testing.T) {
		gen := replies("", "not json", validTaskJSON)
		vec := make([]float32, models.EmbeddingDimensions)

		var stored []float32

		repo := &mockTasksRepo{insertFunc: func(
			_ context.Context, externalID string, profile *models.TaskProfile, embedding []float32,
		) (*models.Task, error) {
			stored = embedding

			return &models.Task{ID: 9, ExternalID: externalID, TaskProfile: *profile, HasEmbedding: embedding != nil}, nil
		}}

		svc := NewTasksService(TasksServiceParams{
			Repo: repo, Extractor: NewExtractor(gen, nil), Embedder: fixedEmbedder(vec), MaxAttempts: 10,
		})

		task, err := svc.CreateTask(context.Background(), " finance_0 ", "Automate reports")
		require.NoError(t, err)

		assert.Equal(t, "finance_0", task.ExternalID)
		assert.True(t, task.HasEmbedding)
		assert.Len(t, stored, models.EmbeddingDimensions)
		assert.Len(t, gen.requests, 3)
	})

	t.Run("exhaustion", func(t *testing.T) {
		gen := replies("[]")
		inserted := false
		repo := &mockTasksRepo{insertFunc: func(context.Context, string, *models.TaskProfile, []float32) (*models.Task, error) {
			inserted = true

			return nil, errors.New("unreachable")
		}}

		svc := NewTasksService(TasksServiceParams{Repo: repo, Extractor: NewExtractor(gen, nil), Embedder: fixedEmbedder(nil), MaxAttempts: 4})

		_, err := svc.CreateTask(context.Background(), "t", "d")
		assert.ErrorIs(t, err, huberrors.ErrRetryExhausted)
		assert.NotErrorIs(t, err, huberrors.ErrMalformedOutput)
		assert.Len(t, gen.requests, 4)
		assert.False(t, inserted)
	})

	t.Run("absent vector still stores", func(t *testing.T) {
		svc := NewTasksService(TasksServiceParams{
			Repo: &mockTasksRepo{}, Extractor: NewExtractor(replies(validTaskJSON), nil), Embedder: fixedEmbedder(nil), MaxAttempts: 1,
		})

		task, err := svc.CreateTask(context.Background(), "t", "d")
		require.NoError(t, err)
		assert.False(t, task.HasEmbedding)
	})

	t.Run("missing table is created and insert retried once", func(t *testing.T) {
		calls := 0
		repo := &mockTasksRepo{insertFunc: func(
			_ context.Context, externalID string, profile *models.TaskProfile, _ []float32,
		) (*models.Task, error) {
			calls++
			if calls == 1 {
				return nil, errUndefinedTable
			}

			return &models.Task{ExternalID: externalID, TaskProfile: *profile}, nil
		}}
		schema := &mockSchema{}

		svc := NewTasksService(TasksServiceParams{
			Repo: repo, Schema: schema, Extractor: NewExtractor(replies(validTaskJSON), nil), Embedder: fixedEmbedder(nil), MaxAttempts: 1,
		})

		_, err := svc.CreateTask(context.Background(), "t", "d")
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, schema.ensureCalls)
	})

	t.Run("second missing table error is returned", func(t *testing.T) {
		calls := 0
		repo := &mockTasksRepo{insertFunc: func(context.Context, string, *models.TaskProfile, []float32) (*models.Task, error) {
			calls++

			return nil, errUndefinedTable
		}}
		schema := &mockSchema{}

		svc := NewTasksService(TasksServiceParams{
			Repo: repo, Schema: schema, Extractor: NewExtractor(replies(validTaskJSON), nil), Embedder: fixedEmbedder(nil), MaxAttempts: 1,
		})

		_, err := svc.CreateTask(context.Background(), "t", "d")
		require.Error(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, 1, schema.ensureCalls)
	})

	t.Run("other insert errors are not retried", func(t *testing.T) {
		calls := 0
		repo := &mockTasksRepo{insertFunc: func(context.Context, string, *models.TaskProfile, []float32) (*models.Task, error) {
			calls++

			return nil, errors.New("connection refused")
		}}
		schema := &mockSchema{}

		svc := NewTasksService(TasksServiceParams{
			Repo: repo, Schema: schema, Extractor: NewExtractor(replies(validTaskJSON), nil), Embedder: fixedEmbedder(nil), MaxAttempts: 1,
		})

		_, err := svc.CreateTask(context.Background(), "t", "d")
		require.Error(t, err)
		assert.Equal(t, 1, calls)
		assert.Zero(t, schema.ensureCalls)
	})

	t.Run("validation", func(t *testing.T) {
		gen := replies(validTaskJSON)
		svc := NewTasksService(TasksServiceParams{Repo: &mockTasksRepo{}, Extractor: NewExtractor(gen, nil), Embedder: fixedEmbedder(nil), MaxAttempts: 1})

		_, err := svc.CreateTask(context.Background(), "", "d")
		assert.ErrorIs(t, err, huberrors.ErrValidation)

		_, err = svc.CreateTask(context.Background(), "t", "  ")
		assert.ErrorIs(t, err, huberrors.ErrValidation)
		assert.Empty(t, gen.requests)
	})
}

func TestPeopleService_CreatePerson(t *testing.T) {
	t.Run("creates from document", func(t *testing.T) {
		svc := NewPeopleService(PeopleServiceParams{
			Repo: &mockPeopleRepo{}, Extractor: NewExtractor(replies(validPersonJSON), nil),
			Embedder: fixedEmbedder(make([]float32, models.EmbeddingDimensions)), MaxAttempts: 5,
		})

		doc := &llm.Document{Name: "jane.pdf", MIMEType: "application/pdf", Data: []byte("%PDF")}

		person, err := svc.CreatePerson(context.Background(), "jane0", llm.DocumentSource(doc))
		require.NoError(t, err)
		assert.Equal(t, "jane0", person.ExternalID)
		assert.True(t, person.HasEmbedding)
	})

	t.Run("existing external id is rejected before extraction", func(t *testing.T) {
		gen := replies(validPersonJSON)
		repo := &mockPeopleRepo{getFunc: func(_ context.Context, externalID string) (*models.Person, error) {
			return &models.Person{ExternalID: externalID}, nil
		}}

		svc := NewPeopleService(PeopleServiceParams{Repo: repo, Extractor: NewExtractor(gen, nil), Embedder: fixedEmbedder(nil), MaxAttempts: 5})

		_, err := svc.CreatePerson(context.Background(), "jane0", llm.TextSource("resume"))
		assert.ErrorIs(t, err, huberrors.ErrDuplicateExternalID)
		assert.ErrorIs(t, err, huberrors.ErrConflict)
		assert.Empty(t, gen.requests)
	})

	t.Run("duplicate raced at insert", func(t *testing.T) {
		repo := &mockPeopleRepo{insertFunc: func(context.Context, string, *models.PersonProfile, []float32) (*models.Person, error) {
			return nil, fmt.Errorf("insert person: %w", huberrors.ErrDuplicateExternalID)
		}}

		svc := NewPeopleService(PeopleServiceParams{
			Repo: repo, Extractor: NewExtractor(replies(validPersonJSON), nil), Embedder: fixedEmbedder(nil), MaxAttempts: 5,
		})

		_, err := svc.CreatePerson(context.Background(), "jane0", llm.TextSource("resume"))
		assert.ErrorIs(t, err, huberrors.ErrDuplicateExternalID)
	})

	t.Run("lookup on missing table proceeds", func(t *testing.T) {
		repo := &mockPeopleRepo{getFunc: func(context.Context, string) (*models.Person, error) {
			return nil, errUndefinedTable
		}}

		svc := NewPeopleService(PeopleServiceParams{
			Repo: repo, Extractor: NewExtractor(replies(validPersonJSON), nil), Embedder: fixedEmbedder(nil), MaxAttempts: 5,
		})

		_, err := svc.CreatePerson(context.Background(), "jane0", llm.TextSource("resume"))
		assert.NoError(t, err)
	})

	t.Run("empty resume", func(t *testing.T) {
		svc := NewPeopleService(PeopleServiceParams{Repo: &mockPeopleRepo{}, MaxAttempts: 5})

		_, err := svc.CreatePerson(context.Background(), "jane0", llm.DocumentSource(&llm.Document{Name: "x.pdf"}))
		assert.ErrorIs(t, err, huberrors.ErrValidation)
	})
}

func TestAgentsService_CreateAgent(t *testing.T) {
	var composed string

	embedder := &mockEmbedder{embedFunc: func(_ context.Context, kind, text string) ([]float32, bool) {
		assert.Equal(t, "agent", kind)
		composed = text

		return nil, false
	}}

	svc := NewAgentsService(AgentsServiceParams{
		Repo: &mockAgentsRepo{}, Extractor: NewExtractor(replies(`{"tags": ["ops"], "skills": ["OCR"]}`), nil),
		Embedder: embedder, MaxAttempts: 5,
	})

	agent, err := svc.CreateAgent(context.Background(), "reader", "Reads invoices")
	require.NoError(t, err)
	assert.Equal(t, "reader", agent.ExternalID)
	assert.Equal(t, "ops OCR", composed)
	assert.Equal(t, []string{}, agent.Capabilities)
}

func TestGetters(t *testing.T) {
	people := NewPeopleService(PeopleServiceParams{Repo: &mockPeopleRepo{}})

	_, err := people.GetPerson(context.Background(), "nobody")
	assert.ErrorIs(t, err, huberrors.ErrNotFound)

	_, err = people.GetPerson(context.Background(), "")
	assert.ErrorIs(t, err, huberrors.ErrValidation)

	tasks := NewTasksService(TasksServiceParams{Repo: &mockTasksRepo{}})
	_, err = tasks.GetTask(context.Background(), "nothing")
	assert.ErrorIs(t, err, huberrors.ErrNotFound)
}
