package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"picking-dash/internal/analysis"
	"picking-dash/internal/apierrors"
	"picking-dash/internal/stats"
)

// FilterRequest is the JSON body of the dashboard, outliers and export endpoints. Omitted users or
// workstations mean "all"; an explicit empty list selects nothing.
type FilterRequest struct {
	Users        []string `json:"users" validate:"omitempty,dive,max=256"`
	Workstations []string `json:"workstations" validate:"omitempty,dive,max=256"`

	Slicer    string `json:"slicer" validate:"omitempty,oneof=Today ThisWeek ThisMonth Custom"`
	Start     string `json:"start"`
	End       string `json:"end"`
	TimeOfDay bool   `json:"timeOfDay"`

	Shifts  []string               `json:"shifts" validate:"omitempty,dive,oneof=AM PM NIGHT UNKNOWN"`
	Ranges  map[string]stats.Range `json:"ranges"`
	Metrics []string               `json:"metrics" validate:"omitempty,max=3,dive,oneof=SourceTotes DestinationTotes TotalRefills"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeFilter reads an optional FilterRequest body. An empty body selects everything.
func (s *Server) decodeFilter(r *http.Request) (stats.FilterParams, error) {
	var req FilterRequest
	if r.Body != nil {
		if err := render.DecodeJSON(r.Body, &req); err != nil && !errors.Is(err, io.EOF) {
			return stats.FilterParams{}, apierrors.InvalidRequest(err)
		}
	}
	if err := s.validateStruct(req); err != nil {
		return stats.FilterParams{}, err
	}
	return req.params(s.loc)
}

func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequest(err)
	}
	out := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(out)
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "max":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	}
	return fmt.Sprintf("failed %s validation", fe.Tag())
}

// params converts the request into pipeline parameters, interpreting zone-less dates in loc.
func (req FilterRequest) params(loc *time.Location) (stats.FilterParams, error) {
	p := stats.FilterParams{
		Users:        req.Users,
		Workstations: req.Workstations,
		Slicer:       req.Slicer,
		TimeOfDay:    req.TimeOfDay,
		Shifts:       req.Shifts,
		Ranges:       req.Ranges,
		Metrics:      req.Metrics,
	}

	var errs []apierrors.ValidationError
	for _, bound := range []struct {
		field string
		raw   string
		dst   **time.Time
	}{
		{"start", req.Start, &p.Start},
		{"end", req.End, &p.End},
	} {
		if bound.raw == "" {
			continue
		}
		t, err := analysis.ParseDate(bound.raw, loc)
		if err != nil {
			errs = append(errs, apierrors.ValidationError{Field: bound.field, Message: err.Error()})
			continue
		}
		*bound.dst = &t
	}
	if p.Start != nil && p.End != nil && p.End.Before(*p.Start) {
		errs = append(errs, apierrors.ValidationError{Field: "end", Message: "must not be before start"})
	}
	if len(errs) > 0 {
		return stats.FilterParams{}, apierrors.NewValidationErrors(errs)
	}
	return p, nil
}
