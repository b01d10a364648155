// Package signature defines the tri-state signature verification verdict
// and the input-error taxonomy shared by the XML verifier.
package signature

import "crypto/x509"

// Status is the outcome of a signature verification attempt. It is
// deliberately not a boolean: "the signature did not check out"
// (Unverified) and "verification could not be attempted" (Indeterminate)
// require different caller responses.
type Status int

const (
	// Verified means the digest matched and the cryptographic signature
	// checked out against the certificate's public key.
	Verified Status = iota
	// Unverified means verification ran and failed: a digest mismatch or
	// an invalid cryptographic signature.
	Unverified
	// Indeterminate means verification could not be attempted, typically
	// because the certificate bytes could not be loaded.
	Indeterminate
)

func (s Status) String() string {
	switch s {
	case Verified:
		return "verified"
	case Unverified:
		return "unverified"
	case Indeterminate:
		return "indeterminate"
	default:
		return "unknown"
	}
}

// Verdict is the full verification outcome.
type Verdict struct {
	Status Status

	// Reason explains a non-Verified status, identifying the failing
	// reference where applicable. Empty for Verified.
	Reason string

	// Cert is the certificate used, when it could be loaded. Certificate
	// trust (chain of issuance) is the caller's concern, not this
	// package's.
	Cert *x509.Certificate
}

// VerifiedVerdict builds a Verified verdict.
func VerifiedVerdict(cert *x509.Certificate) *Verdict {
	return &Verdict{Status: Verified, Cert: cert}
}

// UnverifiedVerdict builds an Unverified verdict with a reason.
func UnverifiedVerdict(reason string, cert *x509.Certificate) *Verdict {
	return &Verdict{Status: Unverified, Reason: reason, Cert: cert}
}

// IndeterminateVerdict builds an Indeterminate verdict with a reason.
func IndeterminateVerdict(reason string) *Verdict {
	return &Verdict{Status: Indeterminate, Reason: reason}
}
