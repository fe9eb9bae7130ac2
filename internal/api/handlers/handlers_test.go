package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/api/response"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/llm"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
)

type mockPeopleService struct {
	createFunc func(ctx context.Context, externalID string, resume llm.Source) (*models.Person, error)
	getFunc    func(ctx context.Context, externalID string) (*models.Person, error)
	listFunc   func(ctx context.Context, params models.ListParams) ([]models.Person, error)
}

func (m *mockPeopleService) CreatePerson(ctx context.Context, externalID string, resume llm.Source) (*models.Person, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, externalID, resume)
	}

	return &models.Person{ExternalID: externalID}, nil
}

func (m *mockPeopleService) GetPerson(ctx context.Context, externalID string) (*models.Person, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, externalID)
	}

	return &models.Person{ExternalID: externalID}, nil
}

func (m *mockPeopleService) ListPeople(ctx context.Context, params models.ListParams) ([]models.Person, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, params)
	}

	return nil, nil
}

type mockTasksService struct {
	createFunc func(ctx context.Context, externalID, description string) (*models.Task, error)
	getFunc    func(ctx context.Context, externalID string) (*models.Task, error)
}

func (m *mockTasksService) CreateTask(ctx context.Context, externalID, description string) (*models.Task, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, externalID, description)
	}

	return &models.Task{ExternalID: externalID}, nil
}

func (m *mockTasksService) GetTask(ctx context.Context, externalID string) (*models.Task, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, externalID)
	}

	return &models.Task{ExternalID: externalID}, nil
}

func (m *mockTasksService) ListTasks(context.Context, models.ListParams) ([]models.Task, error) {
	return []models.Task{{ID: 1, ExternalID: "a"}, {ID: 2, ExternalID: "b"}}, nil
}

type mockDelegator struct {
	delegateFunc func(ctx context.Context, taskExternalID string) (*models.DelegationDecision, error)
}

func (m *mockDelegator) Delegate(ctx context.Context, taskExternalID string) (*models.DelegationDecision, error) {
	return m.delegateFunc(ctx, taskExternalID)
}

type mockAgentsService struct {
	createFunc func(ctx context.Context, externalID, description string) (*models.Agent, error)
}

func (m *mockAgentsService) CreateAgent(ctx context.Context, externalID, description string) (*models.Agent, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, externalID, description)
	}

	return &models.Agent{ExternalID: externalID}, nil
}

func (m *mockAgentsService) GetAgent(context.Context, string) (*models.Agent, error) {
	return nil, huberrors.NotFound("agent", "a1")
}

func (m *mockAgentsService) ListAgents(context.Context, models.ListParams) ([]models.Agent, error) {
	return nil, errors.New("db down")
}

type mockDelegationsService struct {
	gotParams models.ListParams
}

func (m *mockDelegationsService) ListDelegations(_ context.Context, params models.ListParams) ([]models.Delegation, error) {
	m.gotParams = params

	return []models.Delegation{{TaskID: 3, MemberIDs: []string{"jane0"}, AgentIDs: []string{}}}, nil
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) response.ProblemDetails {
	t.Helper()

	var problem response.ProblemDetails
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))

	return problem
}

func TestPeopleHandler_CreateJSON(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		var got llm.Source

		h := NewPeopleHandler(&mockPeopleService{createFunc: func(_ context.Context, externalID string, resume llm.Source) (*models.Person, error) {
			got = resume

			return &models.Person{ID: 1, ExternalID: externalID}, nil
		}})

		req := httptest.NewRequest(http.MethodPost, "/v1/people", strings.NewReader(`{"external_id":"jane0","resume_text":"Go developer"}`))
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Go developer", got.Text)

		var person models.Person
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &person))
		assert.Equal(t, "jane0", person.ExternalID)
	})

	t.Run("invalid json", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewPeopleHandler(&mockPeopleService{}).Create(rec, httptest.NewRequest(http.MethodPost, "/v1/people", strings.NewReader("{")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing resume text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewPeopleHandler(&mockPeopleService{}).Create(rec,
			httptest.NewRequest(http.MethodPost, "/v1/people", strings.NewReader(`{"external_id":"jane0"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Validation Error", decodeProblem(t, rec).Title)
	})
}

func multipartResume(t *testing.T, externalID, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer

	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("external_id", externalID))

	part, err := mw.CreateFormFile("resume", filename)
	require.NoError(t, err)

	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/people", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestPeopleHandler_CreateMultipart(t *testing.T) {
	t.Run("pdf is attached as document", func(t *testing.T) {
		var got llm.Source

		h := NewPeopleHandler(&mockPeopleService{createFunc: func(_ context.Context, externalID string, resume llm.Source) (*models.Person, error) {
			got = resume

			return &models.Person{ExternalID: externalID}, nil
		}})

		rec := httptest.NewRecorder()
		h.Create(rec, multipartResume(t, "jane0", "Jane.pdf", []byte("%PDF-1.7")))

		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, got.Document)
		assert.Equal(t, "Jane.pdf", got.Document.Name)
		assert.Equal(t, "application/pdf", got.Document.MIMEType)
		assert.Equal(t, []byte("%PDF-1.7"), got.Document.Data)
	})

	t.Run("txt is passed as text", func(t *testing.T) {
		var got llm.Source

		h := NewPeopleHandler(&mockPeopleService{createFunc: func(_ context.Context, externalID string, resume llm.Source) (*models.Person, error) {
			got = resume

			return &models.Person{ExternalID: externalID}, nil
		}})

		rec := httptest.NewRecorder()
		h.Create(rec, multipartResume(t, "bob1", "bob.txt", []byte("Bob, analyst")))

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Nil(t, got.Document)
		assert.Equal(t, "Bob, analyst", got.Text)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewPeopleHandler(&mockPeopleService{}).Create(rec, multipartResume(t, "x", "photo.png", []byte("png")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decodeProblem(t, rec).Detail, ".pdf")
	})
}

func TestRespondServiceError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", huberrors.Invalid("external_id", "external_id is required"), http.StatusBadRequest},
		{"duplicate", fmt.Errorf("insert: %w", huberrors.ErrDuplicateExternalID), http.StatusConflict},
		{"not found", huberrors.NotFound("person", "alice0"), http.StatusNotFound},
		{"task not found", fmt.Errorf("%w: x", huberrors.ErrTaskNotFound), http.StatusNotFound},
		{"no embedding", fmt.Errorf("%w: x", huberrors.ErrNoEmbedding), http.StatusConflict},
		{"exhausted", fmt.Errorf("extract: %w", huberrors.ErrRetryExhausted), http.StatusUnprocessableEntity},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPeopleHandler(&mockPeopleService{getFunc: func(context.Context, string) (*models.Person, error) {
				return nil, tt.err
			}})

			rec := httptest.NewRecorder()
			h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/people/jane0", nil))

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}

	t.Run("500 hides the cause", func(t *testing.T) {
		h := NewPeopleHandler(&mockPeopleService{getFunc: func(context.Context, string) (*models.Person, error) {
			return nil, errors.New("password=hunter2")
		}})

		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/people/jane0", nil))

		assert.NotContains(t, rec.Body.String(), "hunter2")
	})
}

func TestTasksHandler(t *testing.T) {
	mux := http.NewServeMux()

	delegator := &mockDelegator{delegateFunc: func(_ context.Context, id string) (*models.DelegationDecision, error) {
		if id == "bare" {
			return nil, huberrors.ErrNoEmbedding
		}

		return &models.DelegationDecision{TaskExternalID: id, PersonIDs: []string{"jane0"}, AgentIDs: []string{}}, nil
	}}
	h := NewTasksHandler(&mockTasksService{}, delegator)

	mux.HandleFunc("POST /v1/tasks", h.Create)
	mux.HandleFunc("GET /v1/tasks", h.List)
	mux.HandleFunc("GET /v1/tasks/{external_id}", h.Get)
	mux.HandleFunc("POST /v1/tasks/{external_id}/delegate", h.Delegate)

	t.Run("create", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tasks",
			strings.NewReader(`{"external_id":"finance_0","description":"Automate reports"}`)))

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("create without description", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tasks", strings.NewReader(`{"external_id":"finance_0"}`)))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list envelope", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks?limit=2", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var body response.ListResponse[models.Task]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Len(t, body.Data, 2)
		assert.Equal(t, 2, body.Limit)
	})

	t.Run("list rejects bad limit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tasks?limit=0&offset=-1", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("delegate uses path id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tasks/finance_0/delegate", nil))

		require.Equal(t, http.StatusOK, rec.Code)

		var decision models.DelegationDecision
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decision))
		assert.Equal(t, "finance_0", decision.TaskExternalID)
		assert.Equal(t, []string{"jane0"}, decision.PersonIDs)
	})

	t.Run("delegate without embedding", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/tasks/bare/delegate", nil))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAgentsHandler(t *testing.T) {
	h := NewAgentsHandler(&mockAgentsService{})

	t.Run("create", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Create(rec, httptest.NewRequest(http.MethodPost, "/v1/agents",
			strings.NewReader(`{"external_id":"reader","description":"Reads invoices"}`)))

		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("get missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Get(rec, httptest.NewRequest(http.MethodGet, "/v1/agents/ghost", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list failure", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.List(rec, httptest.NewRequest(http.MethodGet, "/v1/agents", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestDelegationsHandler_List(t *testing.T) {
	svc := &mockDelegationsService{}

	rec := httptest.NewRecorder()
	NewDelegationsHandler(svc).List(rec, httptest.NewRequest(http.MethodGet, "/v1/delegations?limit=5&offset=10", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ListParams{Limit: 5, Offset: 10}, svc.gotParams)
	assert.Contains(t, rec.Body.String(), `"member_ids":["jane0"]`)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(nil).Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewHealthHandler(pingerFunc(func(context.Context) error { return errors.New("refused") })).
			Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
