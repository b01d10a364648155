// Package xmlsafe parses untrusted XML byte streams into etree documents
// under a hardened policy: entity declarations and external identifiers
// are rejected before any DOM is built, and parse failures are classified
// into a small, stable error taxonomy.
package xmlsafe

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// loggedPrefixBytes bounds how much attacker-controlled input may reach
// the log on an unclassified parser failure.
const loggedPrefixBytes = 64

// Parser is an immutable parsing configuration. Construct it once and
// share it freely; it is safe for concurrent use.
type Parser struct {
	maxInputBytes int
	logger        *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithMaxInputBytes sets a hard cap on accepted input size. Zero (the
// default) disables the cap.
func WithMaxInputBytes(n int) Option {
	return func(p *Parser) { p.maxInputBytes = n }
}

// WithLogger sets the logger used for unclassified parse failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Parser) { p.logger = logger }
}

// NewParser creates a Parser with the given options.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse parses untrusted bytes into a DOM. A DOCTYPE may be present
// structurally, but entity declarations and SYSTEM/PUBLIC external
// identifiers fail with ForbiddenFeatureError. Malformed XML fails with
// SyntaxError; anything else fails with UnknownParsingError.
func (p *Parser) Parse(data []byte) (*etree.Document, error) {
	if p.maxInputBytes > 0 && len(data) > p.maxInputBytes {
		return nil, &ForbiddenFeatureError{
			Feature: "input-size",
			Message: "input exceeds the configured maximum size",
		}
	}

	if err := p.scan(data); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, p.classify(data, err)
	}
	if doc.Root() == nil {
		return nil, &SyntaxError{Message: "document has no root element"}
	}
	return doc, nil
}

// Serialize writes a DOM back to bytes. Output is deterministic for a
// given DOM state, so serialize-reparse round trips are stable.
func Serialize(doc *etree.Document) ([]byte, error) {
	out := doc.Copy()
	out.WriteSettings = etree.WriteSettings{
		CanonicalEndTags: true,
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	return out.WriteToBytes()
}

// scan walks the raw token stream before any DOM exists, enforcing the
// DTD policy. Undeclared entity references surface here as decoder syntax
// errors; since declaring an entity is itself forbidden, every entity
// expansion path is closed.
func (p *Parser) scan(data []byte) error {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return p.classify(data, err)
		}

		dir, ok := tok.(xml.Directive)
		if !ok {
			continue
		}
		if err := checkDirective(string(dir)); err != nil {
			return err
		}
	}
}

// checkDirective rejects DOCTYPE contents that declare entities or point
// at external resources.
func checkDirective(dir string) error {
	upper := strings.ToUpper(dir)
	if !strings.HasPrefix(upper, "DOCTYPE") {
		return nil
	}
	switch {
	case strings.Contains(upper, "<!ENTITY"):
		return &ForbiddenFeatureError{
			Feature: "entity-declaration",
			Message: "DOCTYPE declares entities",
		}
	case containsWord(upper, "SYSTEM"), containsWord(upper, "PUBLIC"):
		return &ForbiddenFeatureError{
			Feature: "external-reference",
			Message: "DOCTYPE references an external identifier",
		}
	}
	return nil
}

// classify maps a raw decoder error onto the package taxonomy. In the
// unknown case a bounded, quoted prefix of the input is logged; the raw
// error message is kept only behind errors.Unwrap.
func (p *Parser) classify(data []byte, err error) error {
	var xmlErr *xml.SyntaxError
	if errors.As(err, &xmlErr) {
		return &SyntaxError{Line: xmlErr.Line, Message: xmlErr.Msg, Cause: err}
	}

	prefix := data
	if len(prefix) > loggedPrefixBytes {
		prefix = prefix[:loggedPrefixBytes]
	}
	p.logger.Warn("unclassified XML parse failure",
		slog.String("input_prefix", strconv.Quote(string(prefix))),
		slog.Int("input_bytes", len(data)),
	)
	return &UnknownParsingError{Cause: err}
}

// containsWord reports whether s contains word delimited by non-alphanumeric
// characters, so e.g. attribute values containing "system" as a substring of
// a longer token do not match.
func containsWord(s, word string) bool {
	for idx := strings.Index(s, word); idx >= 0; {
		before := idx == 0 || !isAlnum(s[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx == len(s) || !isAlnum(s[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(s[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isAlnum(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
