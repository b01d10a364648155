package xmlsafe

import "fmt"

// SyntaxError indicates malformed XML. Line is populated when the
// underlying decoder reports a position.
type SyntaxError struct {
	Line    int
	Message string
	Cause   error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("XML syntax error at line %d: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("XML syntax error: %s", e.Message)
}

func (e *SyntaxError) Unwrap() error { return e.Cause }

// ForbiddenFeatureError indicates the document used an XML feature the
// parser refuses on security grounds: entity declarations, external
// identifiers (SYSTEM/PUBLIC) or oversized input. A structurally plain
// DOCTYPE is allowed and does not trigger this error.
type ForbiddenFeatureError struct {
	Feature string
	Message string
}

func (e *ForbiddenFeatureError) Error() string {
	return fmt.Sprintf("forbidden XML feature %q: %s", e.Feature, e.Message)
}

// UnknownParsingError wraps parser failures that are neither syntax errors
// nor policy violations. The raw cause is kept for errors.Unwrap but never
// interpolated into the message, since it can echo attacker-controlled
// input.
type UnknownParsingError struct {
	Cause error
}

func (e *UnknownParsingError) Error() string {
	return "XML parsing failed for an unknown reason"
}

func (e *UnknownParsingError) Unwrap() error { return e.Cause }
