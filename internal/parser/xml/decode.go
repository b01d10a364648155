package xml

import (
	"encoding/base64"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"

	"github.com/cordada/lib-cl-sii-go/internal/model"
	"github.com/cordada/lib-cl-sii-go/internal/rut"
)

// Leaf decoding: every helper takes the element the relative path is
// anchored at plus the path itself, so errors always carry the full
// location of the offending leaf.

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02T15:04:05"
)

var base64Alphabet = regexp.MustCompile(`^[A-Za-z0-9+/]*={0,2}$`)

// requiredText returns the trimmed text of a required leaf.
func requiredText(root *etree.Element, path string) (string, error) {
	elem := root.FindElement(path)
	if elem == nil {
		return "", &MissingFieldError{Path: locate(root, path)}
	}
	text := strings.TrimSpace(elem.Text())
	if text == "" {
		return "", &MissingFieldError{Path: locate(root, path)}
	}
	return text, nil
}

// optionalText returns the trimmed text of an optional leaf, or "" when
// the element is absent or empty.
func optionalText(root *etree.Element, path string) string {
	elem := root.FindElement(path)
	if elem == nil {
		return ""
	}
	return strings.TrimSpace(elem.Text())
}

// decodeInt decodes a strict decimal integer (optional leading minus, no
// separators, no whitespace beyond the outer trim).
func decodeInt(root *etree.Element, path string) (int64, error) {
	text, err := requiredText(root, path)
	if err != nil {
		return 0, err
	}
	v, convErr := strconv.ParseInt(text, 10, 64)
	if convErr != nil {
		return 0, &DecodeError{Path: locate(root, path), Value: text, Message: "not a decimal integer", Cause: convErr}
	}
	return v, nil
}

// decodeAmount decodes a decimal amount.
func decodeAmount(root *etree.Element, path string) (decimal.Decimal, error) {
	text, err := requiredText(root, path)
	if err != nil {
		return decimal.Zero, err
	}
	d, convErr := decimal.NewFromString(text)
	if convErr != nil {
		return decimal.Zero, &DecodeError{Path: locate(root, path), Value: text, Message: "not a decimal amount", Cause: convErr}
	}
	return d, nil
}

// decodeDate decodes an ISO-8601 date into midnight of the official
// timezone.
func decodeDate(root *etree.Element, path string) (time.Time, error) {
	text, err := requiredText(root, path)
	if err != nil {
		return time.Time{}, err
	}
	t, convErr := time.ParseInLocation(dateLayout, text, model.OfficialTZ())
	if convErr != nil {
		return time.Time{}, &DecodeError{Path: locate(root, path), Value: text, Message: "not an ISO-8601 date", Cause: convErr}
	}
	return t, nil
}

// decodeDateTime decodes a naive ISO-8601 datetime, attaching the
// official timezone.
func decodeDateTime(root *etree.Element, path string) (time.Time, error) {
	text, err := requiredText(root, path)
	if err != nil {
		return time.Time{}, err
	}
	t, convErr := time.ParseInLocation(datetimeLayout, text, model.OfficialTZ())
	if convErr != nil {
		return time.Time{}, &DecodeError{Path: locate(root, path), Value: text, Message: "not an ISO-8601 datetime", Cause: convErr}
	}
	return t, nil
}

// decodeRUT decodes a RUT leaf without verifying its checksum; checksum
// verification is a caller decision.
func decodeRUT(root *etree.Element, path string) (rut.RUT, error) {
	text, err := requiredText(root, path)
	if err != nil {
		return rut.RUT{}, err
	}
	r, convErr := rut.Parse(text)
	if convErr != nil {
		return rut.RUT{}, &DecodeError{Path: locate(root, path), Value: text, Message: "not a valid RUT", Cause: convErr}
	}
	return r, nil
}

// decodeTipoDTE decodes a document-type code against the closed set.
// Unknown codes propagate model.UnknownCodeError unchanged so callers can
// distinguish them from malformed input.
func decodeTipoDTE(root *etree.Element, path string) (model.TipoDTE, error) {
	code, err := decodeInt(root, path)
	if err != nil {
		return 0, err
	}
	return model.TipoDTEFromCode(int(code))
}

// decodeBase64 decodes base64 content tolerating embedded whitespace and
// newlines but rejecting any other character outside the alphabet.
func decodeBase64(root *etree.Element, path string, optional bool) ([]byte, error) {
	elem := root.FindElement(path)
	if elem == nil {
		if optional {
			return nil, nil
		}
		return nil, &MissingFieldError{Path: locate(root, path)}
	}

	compact := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		default:
			return r
		}
	}, elem.Text())

	if compact == "" {
		if optional {
			return nil, nil
		}
		return nil, &MissingFieldError{Path: locate(root, path)}
	}
	if !base64Alphabet.MatchString(compact) {
		return nil, &DecodeError{Path: locate(root, path), Message: "contains characters outside the base64 alphabet"}
	}
	decoded, convErr := base64.StdEncoding.DecodeString(compact)
	if convErr != nil {
		return nil, &DecodeError{Path: locate(root, path), Message: "malformed base64", Cause: convErr}
	}
	return decoded, nil
}

// locate renders an absolute-looking path for error messages.
func locate(root *etree.Element, path string) string {
	return root.GetPath() + "/" + path
}
