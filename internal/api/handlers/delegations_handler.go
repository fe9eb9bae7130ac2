package handlers

import (
	"context"
	"net/http"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/api/response"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/models"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/validation"
)

// DelegationsService lists stored delegations.
type DelegationsService interface {
	ListDelegations(ctx context.Context, params models.ListParams) ([]models.Delegation, error)
}

// DelegationsHandler handles HTTP requests for delegations.
type DelegationsHandler struct {
	service DelegationsService
}

// NewDelegationsHandler creates a new delegations handler.
func NewDelegationsHandler(service DelegationsService) *DelegationsHandler {
	return &DelegationsHandler{service: service}
}

// List handles GET /v1/delegations.
func (h *DelegationsHandler) List(w http.ResponseWriter, r *http.Request) {
	var params models.ListParams
	if err := validation.ValidateAndDecodeQueryParams(r, &params); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	delegations, err := h.service.ListDelegations(r.Context(), params)
	if err != nil {
		respondServiceError(w, r, err, "delegation")

		return
	}

	response.RespondList(w, delegations, params.Limit, params.Offset)
}
