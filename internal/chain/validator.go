// Package chain validates the chain of title carried by an AEC envelope:
// an ordered, gapless sequence of cesión records over one document,
// consistent with the referenced document and the envelope header.
package chain

import (
	"fmt"

	"github.com/cordada/lib-cl-sii-go/internal/model"
)

// Check identifies which chain invariant a ValidationError violated.
type Check int

const (
	// CheckNonEmpty: the chain must carry at least one record.
	CheckNonEmpty Check = iota + 1
	// CheckSequence: sequence numbers must be exactly 1, 2, 3, ... in
	// list order.
	CheckSequence
	// CheckSameDocument: every record must reference the same document
	// key.
	CheckSameDocument
	// CheckAmounts: the referenced document must have the same key and a
	// total no smaller than any assigned amount.
	CheckAmounts
	// CheckEnvelopeParties: the envelope's cedente/cesionario must equal
	// the last record's.
	CheckEnvelopeParties
)

func (c Check) String() string {
	switch c {
	case CheckNonEmpty:
		return "non-empty"
	case CheckSequence:
		return "sequence"
	case CheckSameDocument:
		return "same-document"
	case CheckAmounts:
		return "amounts"
	case CheckEnvelopeParties:
		return "envelope-parties"
	default:
		return "unknown"
	}
}

// ValidationError reports the first violated chain check. Seq is the
// 1-based list position of the offending record, or 0 when the violation
// is not record-specific.
type ValidationError struct {
	Check   Check
	Seq     int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Seq > 0 {
		return fmt.Sprintf("chain validation failed (%s) at position %d: %s", e.Check, e.Seq, e.Message)
	}
	return fmt.Sprintf("chain validation failed (%s): %s", e.Check, e.Message)
}

// Validate checks an AEC envelope against the referenced document,
// failing fast on the first violated check. The checks run in a fixed
// order so callers get deterministic errors for a given input.
func Validate(env model.AecEnvelope, refDoc model.DteDataL1) error {
	if len(env.Cesiones) == 0 {
		return &ValidationError{Check: CheckNonEmpty, Message: "envelope carries no cesión records"}
	}

	for i, cesion := range env.Cesiones {
		if want := i + 1; cesion.Seq != want {
			return &ValidationError{
				Check:   CheckSequence,
				Seq:     want,
				Message: fmt.Sprintf("sequence number is %d, want %d", cesion.Seq, want),
			}
		}
	}

	key := env.Cesiones[0].Dte.DocumentKey
	for i, cesion := range env.Cesiones {
		if !cesion.Dte.DocumentKey.Equal(key) {
			return &ValidationError{
				Check:   CheckSameDocument,
				Seq:     i + 1,
				Message: fmt.Sprintf("references document %s, want %s", cesion.Dte.Slug(), key.Slug()),
			}
		}
	}

	if !refDoc.DocumentKey.Equal(key) {
		return &ValidationError{
			Check:   CheckAmounts,
			Message: fmt.Sprintf("referenced document is %s, chain is over %s", refDoc.Slug(), key.Slug()),
		}
	}
	for i, cesion := range env.Cesiones {
		if cesion.MontoCedido.GreaterThan(refDoc.MontoTotal) {
			return &ValidationError{
				Check: CheckAmounts,
				Seq:   i + 1,
				Message: fmt.Sprintf("assigned amount %s exceeds document total %s",
					cesion.MontoCedido, refDoc.MontoTotal),
			}
		}
	}

	last := env.Cesiones[len(env.Cesiones)-1]
	if !env.Cedente.Equal(last.Cedente) {
		return &ValidationError{
			Check:   CheckEnvelopeParties,
			Seq:     last.Seq,
			Message: fmt.Sprintf("envelope cedente %s does not match last record's %s", env.Cedente, last.Cedente),
		}
	}
	if !env.Cesionario.Equal(last.Cesionario) {
		return &ValidationError{
			Check:   CheckEnvelopeParties,
			Seq:     last.Seq,
			Message: fmt.Sprintf("envelope cesionario %s does not match last record's %s", env.Cesionario, last.Cesionario),
		}
	}

	return nil
}
