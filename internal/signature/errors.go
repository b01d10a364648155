package signature

import "fmt"

// NoSignatureError indicates the document carries no signature element.
type NoSignatureError struct{}

func (e *NoSignatureError) Error() string {
	return "no Signature element found in document"
}

// MultipleSignaturesError indicates the document carries more than one
// signature and the verifier was not configured for that.
type MultipleSignaturesError struct {
	Count int
}

func (e *MultipleSignaturesError) Error() string {
	return fmt.Sprintf("document has %d signatures and the verifier does not allow multiple signatures", e.Count)
}

// UnsupportedAlgorithmError indicates a canonicalization, digest or
// signature algorithm URI outside the supported set.
type UnsupportedAlgorithmError struct {
	Kind string
	URI  string
}

func (e *UnsupportedAlgorithmError) Error() string {
	return fmt.Sprintf("unsupported %s algorithm %q", e.Kind, e.URI)
}

// MalformedSignatureError indicates a structurally broken signature
// element (missing SignedInfo, Reference, etc).
type MalformedSignatureError struct {
	Message string
}

func (e *MalformedSignatureError) Error() string {
	return fmt.Sprintf("malformed signature: %s", e.Message)
}
