package model

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// FieldError reports a construction-time invariant violation on a single
// field. Constructors may return several FieldErrors combined with
// multierr when more than one field is invalid.
type FieldError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *FieldError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("invalid field %s: %s (value=%v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("invalid field %s: %s", e.Field, e.Message)
}

// NewFieldError creates a field-level invariant violation.
func NewFieldError(field string, value interface{}, message string) *FieldError {
	return &FieldError{Field: field, Value: value, Message: message}
}

// InvalidFields returns the names of all fields reported by err, in order.
// Returns nil when err carries no FieldError.
func InvalidFields(err error) []string {
	var fields []string
	for _, e := range multierr.Errors(err) {
		var fieldErr *FieldError
		if errors.As(e, &fieldErr) {
			fields = append(fields, fieldErr.Field)
		}
	}
	return fields
}

// UnknownCodeError indicates a document-type code outside the known set.
type UnknownCodeError struct {
	Code int
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("unknown document type code %d", e.Code)
}
