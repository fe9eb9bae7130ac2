package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/api/response"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/validation"
)

// AgentsService defines the agent operations the handler needs.
type AgentsService interface {
	CreateAgent(ctx context.Context, externalID, description string) (*models.Agent, error)
	GetAgent(ctx context.Context, externalID string) (*models.Agent, error)
	ListAgents(ctx context.Context, params models.ListParams) ([]models.Agent, error)
}

// AgentsHandler handles HTTP requests for agents.
type AgentsHandler struct {
	service AgentsService
}

// NewAgentsHandler creates a new agents handler.
func NewAgentsHandler(service AgentsService) *AgentsHandler {
	return &AgentsHandler{service: service}
}

// Create handles POST /v1/agents.
func (h *AgentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(&req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	agent, err := h.service.CreateAgent(r.Context(), req.ExternalID, req.Description)
	if err != nil {
		respondServiceError(w, r, err, "agent")

		return
	}

	response.RespondJSON(w, http.StatusCreated, agent)
}

// Get handles GET /v1/agents/{external_id}.
func (h *AgentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	agent, err := h.service.GetAgent(r.Context(), r.PathValue("external_id"))
	if err != nil {
		respondServiceError(w, r, err, "agent")

		return
	}

	response.RespondJSON(w, http.StatusOK, agent)
}

// List handles GET /v1/agents.
func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	var params models.ListParams
	if err := validation.ValidateAndDecodeQueryParams(r, &params); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	agents, err := h.service.ListAgents(r.Context(), params)
	if err != nil {
		respondServiceError(w, r, err, "agent")

		return
	}

	response.RespondList(w, agents, params.Limit, params.Offset)
}
