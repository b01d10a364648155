package xml

import "fmt"

// MissingFieldError indicates a required element was absent or had no
// text content.
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %s is missing or empty", e.Path)
}

// DecodeError indicates a present leaf whose text could not be decoded
// into the expected type.
type DecodeError struct {
	Path    string
	Value   string
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cannot decode field %s: %s (%v)", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("cannot decode field %s: %s", e.Path, e.Message)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// NotImplementedError marks a recognized but unsupported document shape.
// It is deliberately distinct from a validation failure: the input is
// structurally valid, this library just does not extract it.
type NotImplementedError struct {
	Shape string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("document shape %q is recognized but not supported", e.Shape)
}
