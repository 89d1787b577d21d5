package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/marketplace-workflow/internal/domain/workflow"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// errorStatus maps a service error onto an HTTP status and a machine-readable code
func errorStatus(err error) (int, string) {
	if deny, ok := workflow.AsDeny(err); ok {
		if deny.Reason == workflow.ReasonForbiddenRole {
			return http.StatusForbidden, deny.Code()
		}
		return http.StatusUnprocessableEntity, deny.Code()
	}

	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, workflow.ErrVersionConflict):
		return http.StatusConflict, "VERSION_CONFLICT"
	case errors.Is(err, workflow.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, workflow.ErrForbiddenRole):
		return http.StatusForbidden, string(workflow.ReasonForbiddenRole)
	case errors.Is(err, workflow.ErrIllegalTransition):
		return http.StatusUnprocessableEntity, string(workflow.ReasonIllegalTransition)
	case errors.Is(err, workflow.ErrGuardFailed):
		return http.StatusUnprocessableEntity, string(workflow.ReasonGuardFailed)
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// respondError writes the mapped error. Internal errors are logged and not echoed.
func (h *Handlers) respondError(c *gin.Context, op string, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "operation", op, "error", err)
		message = "internal error"
	} else {
		h.logger.Info("Request refused", "operation", op, "code", code, "error", err)
	}
	c.JSON(status, Response{Success: false, Code: code, Error: message})
}

// retry runs fn until it succeeds, fails with a non-retryable error or the
// attempts are used up. fn must re-load the entity on every call.
func (h *Handlers) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		err = fn()
		if err == nil || !workflow.IsRetryable(err) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		h.logger.Info("Retrying after version conflict", "operation", op, "attempt", attempt)
	}
	return err
}
