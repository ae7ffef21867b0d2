package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picking-dash/internal/picklog"
	"picking-dash/internal/stats"
)

func TestToProblem(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		probType string
	}{
		{"Schema", fmt.Errorf("load: %w", &picklog.SchemaError{Missing: []string{"Username"}}), http.StatusUnprocessableEntity, TypeSchema},
		{"EmptyInput", picklog.ErrEmptyInput, http.StatusUnprocessableEntity, TypeEmptyInput},
		{"DatasetNotFound", fmt.Errorf("%w: abc", picklog.ErrDatasetNotFound), http.StatusNotFound, TypeNotFound},
		{"UnknownDimension", stats.ErrUnknownDimension, http.StatusBadRequest, TypeValidation},
		{"UnknownMetric", stats.ErrUnknownMetric, http.StatusBadRequest, TypeValidation},
		{"InvalidFilter", fmt.Errorf("%w: unknown shift", stats.ErrInvalidFilter), http.StatusBadRequest, TypeValidation},
		{"TooLarge", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"Validation", NewValidationErrors([]ValidationError{{Field: "users", Message: "required"}}), http.StatusBadRequest, TypeValidation},
		{"Unexpected", errors.New("boom"), http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ToProblem(tt.err, "/api/x")
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.probType, p.Type)
			assert.Equal(t, "/api/x", p.Instance)
		})
	}
}

func TestToProblem_SchemaExtensions(t *testing.T) {
	p := ToProblem(&picklog.SchemaError{Missing: []string{"Date"}, Found: []string{"Username"}}, "/")
	assert.Equal(t, []string{"Date"}, p.Extensions["missing_columns"])
	assert.Equal(t, []string{"Username"}, p.Extensions["found_columns"])
}

func TestHandleError_WritesProblemJSON(t *testing.T) {
	h := NewHandler(zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/api/datasets/abc", nil)
	rec := httptest.NewRecorder()

	h.HandleError(rec, req, picklog.ErrDatasetNotFound)

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, TypeNotFound, body["type"])
	assert.Equal(t, "/api/datasets/abc", body["instance"])
	assert.Contains(t, body, "trace_id")
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	p := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "", "").
		WithExtension("error_code", "VALIDATION_FAILED")

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"/errors/validation","title":"Bad Request","status":400,"error_code":"VALIDATION_FAILED"}`, string(data))
}
