package picklog

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyInput is returned when the upload has no header row.
	ErrEmptyInput = errors.New("input has no header row")
	// ErrDatasetNotFound is returned by the store for unknown dataset ids.
	ErrDatasetNotFound = errors.New("dataset not found")
)

// SchemaError aborts a load because required columns are absent after trimming.
type SchemaError struct {
	Missing []string
	Found   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// ParseWarning records a cell that could not be coerced. The row is retained with a null value.
type ParseWarning struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("row %d, column %s: %q %s", w.Row, w.Column, w.Value, w.Reason)
}
