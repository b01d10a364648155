// Package rut implements the Chilean national tax identifier (RUT):
// one to eight decimal digits plus a verification character computed
// with the "módulo 11" algorithm.
package rut

import (
	"fmt"
	"strconv"
	"strings"
)

// RUT is an immutable tax identifier. The zero value is invalid; obtain
// values through Parse or MustParse.
type RUT struct {
	digits string // 1-8 decimal digits, no leading separators
	check  byte   // '0'-'9' or 'K'
}

// FormatError indicates the input does not have the digits-dash-check shape.
type FormatError struct {
	Value   string
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid RUT format %q: %s", e.Value, e.Message)
}

// ChecksumError indicates a well-formed RUT whose check character does not
// match the one computed from its digits.
type ChecksumError struct {
	Value    string
	Expected byte
	Actual   byte
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("invalid RUT checksum for %q: expected %c, got %c", e.Value, e.Expected, e.Actual)
}

// Parse canonicalizes and parses a RUT string. Dots, spaces and a single
// dash separator are tolerated; the check character is uppercased. The
// checksum is NOT verified; call ValidateChecksum for that.
func Parse(raw string) (RUT, error) {
	cleaned := strings.ToUpper(canonicalize(raw))
	if cleaned == "" {
		return RUT{}, &FormatError{Value: raw, Message: "empty value"}
	}

	digits, check, err := split(raw, cleaned)
	if err != nil {
		return RUT{}, err
	}

	if len(digits) < 1 || len(digits) > 8 {
		return RUT{}, &FormatError{Value: raw, Message: "must have 1 to 8 digits"}
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return RUT{}, &FormatError{Value: raw, Message: "digit portion must be decimal"}
		}
	}
	if !isCheckChar(check) {
		return RUT{}, &FormatError{Value: raw, Message: "check character must be 0-9 or K"}
	}

	return RUT{digits: digits, check: check}, nil
}

// MustParse is like Parse but panics on error. Intended for constants and
// test fixtures.
func MustParse(raw string) RUT {
	r, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return r
}

// Checksum computes the verification character for a digit sequence using
// the módulo 11 algorithm: each digit, from least significant to most, is
// multiplied by a weight cycling 2,3,4,5,6,7; the verifier is
// 11 - (sum mod 11), with 10 mapped to 'K' and 11 mapped to '0'.
func Checksum(digits string) (byte, error) {
	if len(digits) < 1 || len(digits) > 8 {
		return 0, &FormatError{Value: digits, Message: "must have 1 to 8 digits"}
	}

	sum := 0
	weight := 2
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if d < '0' || d > '9' {
			return 0, &FormatError{Value: digits, Message: "digit portion must be decimal"}
		}
		sum += int(d-'0') * weight
		weight++
		if weight > 7 {
			weight = 2
		}
	}

	switch v := 11 - sum%11; v {
	case 10:
		return 'K', nil
	case 11:
		return '0', nil
	default:
		return byte('0' + v), nil
	}
}

// ValidateChecksum verifies that the RUT's check character matches the one
// computed from its digits.
func (r RUT) ValidateChecksum() error {
	expected, err := Checksum(r.digits)
	if err != nil {
		return err
	}
	if expected != r.check {
		return &ChecksumError{Value: r.String(), Expected: expected, Actual: r.check}
	}
	return nil
}

// Digits returns the digit portion without separators or leading zeros
// removed (leading zeros are preserved as parsed).
func (r RUT) Digits() string { return r.digits }

// Check returns the verification character.
func (r RUT) Check() byte { return r.check }

// String returns the canonical form "{digits}-{check}".
func (r RUT) String() string {
	return r.digits + "-" + string(r.check)
}

// IsZero reports whether r is the (invalid) zero value.
func (r RUT) IsZero() bool { return r.digits == "" }

// Equal reports whether two RUTs have the same canonical form.
func (r RUT) Equal(other RUT) bool {
	return r.digits == other.digits && r.check == other.check
}

// Compare orders RUTs by numeric digit value, so leading zeros do not
// affect ordering, then by check character. Returns -1, 0 or +1.
func (r RUT) Compare(other RUT) int {
	a, _ := strconv.ParseInt(r.digits, 10, 64)
	b, _ := strconv.ParseInt(other.digits, 10, 64)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	case r.check < other.check:
		return -1
	case r.check > other.check:
		return 1
	default:
		return 0
	}
}

// Less reports whether r orders before other.
func (r RUT) Less(other RUT) bool { return r.Compare(other) < 0 }

// MarshalText implements encoding.TextMarshaler using the canonical form.
func (r RUT) MarshalText() ([]byte, error) {
	if r.IsZero() {
		return nil, &FormatError{Value: "", Message: "zero RUT cannot be marshaled"}
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *RUT) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// List attaches sort.Interface to a RUT slice.
type List []RUT

func (l List) Len() int           { return len(l) }
func (l List) Less(i, j int) bool { return l[i].Less(l[j]) }
func (l List) Swap(i, j int)      { l[i], l[j] = l[j], l[i] }

// canonicalize strips thousands separators and surrounding whitespace.
func canonicalize(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	return cleaned
}

// split separates the digit portion from the check character. A single
// dash before the last character is accepted; without a dash the last
// character is taken as the check.
func split(raw, cleaned string) (digits string, check byte, err error) {
	if n := strings.Count(cleaned, "-"); n > 1 {
		return "", 0, &FormatError{Value: raw, Message: "multiple dashes"}
	} else if n == 1 {
		idx := strings.IndexByte(cleaned, '-')
		if idx != len(cleaned)-2 {
			return "", 0, &FormatError{Value: raw, Message: "dash must precede the check character"}
		}
		return cleaned[:idx], cleaned[idx+1], nil
	}

	if len(cleaned) < 2 {
		return "", 0, &FormatError{Value: raw, Message: "too short"}
	}
	return cleaned[:len(cleaned)-1], cleaned[len(cleaned)-1], nil
}

func isCheckChar(c byte) bool {
	return (c >= '0' && c <= '9') || c == 'K'
}
