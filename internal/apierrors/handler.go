package apierrors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/rs/zerolog"

	"picking-dash/internal/picklog"
	"picking-dash/internal/stats"
)

// Handler converts errors into problem responses.
type Handler struct {
	logger zerolog.Logger
}

// NewHandler creates a Handler logging through logger.
func NewHandler(logger zerolog.Logger) *Handler {
	return &Handler{logger: logger.With().Str("component", "error_handler").Logger()}
}

// HandleError maps err to a problem and writes it.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	reqID := middleware.GetReqID(r.Context())
	problem := ToProblem(err, r.URL.Path)

	event := h.logger.Warn()
	if problem.Status >= http.StatusInternalServerError {
		event = h.logger.Error()
	}
	event.Err(err).
		Str("request_id", reqID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", problem.Status).
		Msg("Request failed")

	problem.WithExtension("trace_id", reqID)
	_ = render.Render(w, r, problem)
}

// ToProblem maps domain and transport errors onto problem details.
func ToProblem(err error, instance string) *ProblemDetails {
	var (
		apiErr    *APIError
		schemaErr *picklog.SchemaError
		maxErr    *http.MaxBytesError
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErrorToProblem(apiErr, instance)

	case errors.As(err, &schemaErr):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeSchema, "Schema Error", err.Error(), instance).
			WithExtension("missing_columns", schemaErr.Missing).
			WithExtension("found_columns", schemaErr.Found)

	case errors.Is(err, picklog.ErrEmptyInput):
		return NewProblemDetails(http.StatusUnprocessableEntity, TypeEmptyInput, "Empty Input", err.Error(), instance)

	case errors.Is(err, picklog.ErrDatasetNotFound):
		return NewProblemDetails(http.StatusNotFound, TypeNotFound, "Dataset Not Found", err.Error(), instance)

	case errors.Is(err, stats.ErrUnknownDimension), errors.Is(err, stats.ErrUnknownMetric),
		errors.Is(err, stats.ErrInvalidFilter):
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Invalid Parameter", err.Error(), instance)

	case errors.As(err, &maxErr):
		return NewProblemDetails(http.StatusRequestEntityTooLarge, TypePayloadTooLarge, "Payload Too Large",
			fmt.Sprintf("The upload exceeds the maximum of %d bytes", maxErr.Limit), instance)

	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return NewProblemDetails(http.StatusGatewayTimeout, TypeTimeout, "Request Timeout",
			"The request took too long to process and was cancelled", instance)
	}

	return NewProblemDetails(http.StatusInternalServerError, TypeInternal, "Internal Server Error",
		"An unexpected error occurred while processing your request", instance)
}

func apiErrorToProblem(apiErr *APIError, instance string) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.StatusCode {
	case http.StatusBadRequest:
		problemType = TypeValidation
	case http.StatusNotFound:
		problemType = TypeNotFound
	case http.StatusRequestEntityTooLarge:
		problemType = TypePayloadTooLarge
	}

	problem := NewProblemDetails(apiErr.StatusCode, problemType, http.StatusText(apiErr.StatusCode), apiErr.Message, instance).
		WithExtension("error_code", apiErr.ErrorCode)
	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found",
		"The requested resource was not found", r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))
	_ = render.Render(w, r, problem)
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(http.StatusMethodNotAllowed, TypeMethod, "Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method), r.URL.Path).
		WithExtension("trace_id", middleware.GetReqID(r.Context()))
	_ = render.Render(w, r, problem)
}
