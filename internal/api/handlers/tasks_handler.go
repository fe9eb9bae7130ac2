package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/api/response"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/validation"
)

// TasksService defines the task operations the handler needs.
type TasksService interface {
	CreateTask(ctx context.Context, externalID, description string) (*models.Task, error)
	GetTask(ctx context.Context, externalID string) (*models.Task, error)
	ListTasks(ctx context.Context, params models.ListParams) ([]models.Task, error)
}

// Delegator delegates a task to people and agents.
type Delegator interface {
	Delegate(ctx context.Context, taskExternalID string) (*models.DelegationDecision, error)
}

// TasksHandler handles HTTP requests for tasks and their delegation.
type TasksHandler struct {
	service   TasksService
	delegator Delegator
}

// NewTasksHandler creates a new tasks handler.
func NewTasksHandler(service TasksService, delegator Delegator) *TasksHandler {
	return &TasksHandler{service: service, delegator: delegator}
}

// Create handles POST /v1/tasks
// @Summary Create a task from a description
// @Tags Tasks
// @Accept json
// @Produce json
// @Param request body models.CreateTaskRequest true "Task description"
// @Success 201 {object} models.Task
// @Failure 400 {object} response.ProblemDetails
// @Failure 422 {object} response.ProblemDetails "description could not be processed"
// @Security BearerAuth
// @Router /v1/tasks [post]
func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	task, err := h.service.CreateTask(r.Context(), req.ExternalID, req.Description)
	if err != nil {
		respondServiceError(w, r, err, "task")

		return
	}

	response.RespondJSON(w, http.StatusCreated, task)
}

// Get handles GET /v1/tasks/{external_id}. The latest task with that id is returned.
func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, err := h.service.GetTask(r.Context(), r.PathValue("external_id"))
	if err != nil {
		respondServiceError(w, r, err, "task")

		return
	}

	response.RespondJSON(w, http.StatusOK, task)
}

// List handles GET /v1/tasks.
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	var params models.ListParams
	if err := validation.ValidateAndDecodeQueryParams(r, &params); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	tasks, err := h.service.ListTasks(r.Context(), params)
	if err != nil {
		respondServiceError(w, r, err, "task")

		return
	}

	response.RespondList(w, tasks, params.Limit, params.Offset)
}

// Delegate handles POST /v1/tasks/{external_id}/delegate
// @Summary Delegate a task
// @Description Matches the task to its nearest people and agents and asks the model for the best combination
// @Tags Tasks
// @Produce json
// @Param external_id path string true "Task external id"
// @Success 200 {object} models.DelegationDecision
// @Failure 404 {object} response.ProblemDetails "task not found"
// @Failure 409 {object} response.ProblemDetails "task has no embedding"
// @Failure 422 {object} response.ProblemDetails "decision could not be made"
// @Security BearerAuth
// @Router /v1/tasks/{external_id}/delegate [post]
func (h *TasksHandler) Delegate(w http.ResponseWriter, r *http.Request) {
	decision, err := h.delegator.Delegate(r.Context(), r.PathValue("external_id"))
	if err != nil {
		respondServiceError(w, r, err, "delegation")

		return
	}

	response.RespondJSON(w, http.StatusOK, decision)
}
