package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/manishonc/car-rental/internal/core"
	"github.com/manishonc/car-rental/pkg/problem"
)

func writeError(ctx context.Context, log *slog.Logger, w http.ResponseWriter, err error) {
	detail := err.Error()

	if ve, ok := core.AsValidationError(err); ok {
		log.WarnContext(ctx, "validation failed", "fields", len(ve.Fields))
		problem.WriteProblem(w, problem.Problem{
			Status: http.StatusUnprocessableEntity,
			Title:  "Validation Error",
			Detail: "Please correct the highlighted driver fields",
			Errors: ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		log.WarnContext(ctx, "resource not found", "err", err)
		problem.Write(w, http.StatusNotFound, "Not Found", detail)

	case errors.Is(err, core.ErrValidation):
		log.WarnContext(ctx, "validation failed", "err", err)
		problem.Write(w, http.StatusBadRequest, "Validation Error", detail)

	case errors.Is(err, core.ErrInvalidState):
		log.WarnContext(ctx, "state conflict", "err", err)
		problem.Write(w, http.StatusConflict, "Conflict", detail)

	case errors.Is(err, core.ErrForbidden):
		log.WarnContext(ctx, "forbidden operation", "err", err)
		problem.Write(w, http.StatusForbidden, "Forbidden", detail)

	case errors.Is(err, core.ErrUpstream):
		log.ErrorContext(ctx, "booking api failure", "err", err)
		problem.Write(w, http.StatusBadGateway, "Bad Gateway", "The booking service is unavailable. Please try again.")

	case errors.Is(err, context.DeadlineExceeded):
		log.ErrorContext(ctx, "operation timeout", "err", err)
		problem.Write(w, http.StatusGatewayTimeout, "Timeout", "Operation took too long.")

	default:
		log.ErrorContext(ctx, "internal server error", "err", err)
		problem.Write(w, http.StatusInternalServerError, "Internal Server Error", "An unexpected error occurred.")
	}
}
