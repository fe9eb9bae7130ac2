package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/api/response"
	"github.com/404drakefound/ucl-deepflow-task-delegation/internal/huberrors"
)

// respondServiceError maps service errors to problem responses. Unknown errors are logged and
// reported as 500 without their message.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	switch {
	case errors.Is(err, huberrors.ErrValidation):
		response.RespondBadRequest(w, err.Error())
	case errors.Is(err, huberrors.ErrConflict):
		response.RespondConflict(w, resource+" with this external_id already exists")
	case errors.Is(err, huberrors.ErrTaskNotFound):
		response.RespondNotFound(w, "Task not found")
	case errors.Is(err, huberrors.ErrNotFound):
		response.RespondNotFound(w, resource+" not found")
	case errors.Is(err, huberrors.ErrNoEmbedding):
		response.RespondConflict(w, "Task has no embedding and cannot be matched; recreate it once embeddings are available")
	case errors.Is(err, huberrors.ErrRetryExhausted):
		slog.WarnContext(r.Context(), "model output never validated", "resource", resource, "error", err)
		response.RespondUnprocessableEntity(w, "Failed to process "+resource+", please try again")
	default:
		slog.ErrorContext(r.Context(), "request failed", "resource", resource, "error", err)
		response.RespondInternalServerError(w, "An unexpected error occurred")
	}
}
