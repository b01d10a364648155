package siidte

import (
	"context"
	"log/slog"
	"strings"

	"github.com/beevik/etree"

	"github.com/cordada/lib-cl-sii-go/internal/chain"
	"github.com/cordada/lib-cl-sii-go/internal/model"
	xmlparser "github.com/cordada/lib-cl-sii-go/internal/parser/xml"
	"github.com/cordada/lib-cl-sii-go/internal/schema"
	"github.com/cordada/lib-cl-sii-go/internal/signature"
	sigxml "github.com/cordada/lib-cl-sii-go/internal/signature/xml"
	"github.com/cordada/lib-cl-sii-go/internal/xmlsafe"
)

// Options configures a Processor.
type Options struct {
	// MaxInputBytes caps accepted input size; 0 disables the cap.
	MaxInputBytes int

	// AllowMultipleSignatures opts the signature verifier into
	// multi-signature documents (AEC envelopes routinely carry one
	// signature per cesión plus the envelope signature).
	AllowMultipleSignatures bool

	// VerifyRUTChecksums additionally verifies the check digit of every
	// extracted RUT.
	VerifyRUTChecksums bool

	// Logger receives the pipeline's few diagnostics. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns the options used by NewDefaultProcessor.
func DefaultOptions() Options {
	return Options{AllowMultipleSignatures: true}
}

// Processor is the document pipeline: safe parse, schema validation,
// field extraction, signature verification and chain validation. It is
// immutable and safe for concurrent use; independent documents may be
// processed in parallel.
type Processor struct {
	options  Options
	parser   *xmlsafe.Parser
	verifier *sigxml.Verifier
}

// NewProcessor creates a Processor with the given options.
func NewProcessor(opts Options) *Processor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var verifierOpts []sigxml.Option
	if opts.AllowMultipleSignatures {
		verifierOpts = append(verifierOpts, sigxml.AllowMultipleSignatures())
	}

	return &Processor{
		options: opts,
		parser: xmlsafe.NewParser(
			xmlsafe.WithMaxInputBytes(opts.MaxInputBytes),
			xmlsafe.WithLogger(logger),
		),
		verifier: sigxml.NewVerifier(verifierOpts...),
	}
}

// NewDefaultProcessor creates a Processor with default options.
func NewDefaultProcessor() *Processor {
	return NewProcessor(DefaultOptions())
}

// ParseDTE runs the full pipeline over one DTE document.
func (p *Processor) ParseDTE(ctx context.Context, data []byte) (model.DteDataL2, error) {
	doc, err := p.parseAs(data, xmlparser.FamilyDTE, schema.DTE())
	if err != nil {
		return model.DteDataL2{}, err
	}

	dte, err := xmlparser.NewDTEExtractor().Extract(doc)
	if err != nil {
		return model.DteDataL2{}, err
	}
	if err := p.verifyRUTs(dte.Emisor, dte.Receptor); err != nil {
		return model.DteDataL2{}, err
	}
	return dte, nil
}

// SignatureCheck pairs a signed fragment with its verification verdict.
type SignatureCheck struct {
	// FragmentID is the ID of the referenced fragment; empty when the
	// signature covers the whole document.
	FragmentID string
	Verdict    *signature.Verdict
}

// AecResult is the outcome of processing one AEC envelope: the typed
// envelope, the validated chain's referenced document, and one
// verification verdict per signature found.
type AecResult struct {
	Envelope model.AecEnvelope

	// ReferencedDte is the document the chain assigns, as declared by
	// the first cesión.
	ReferencedDte model.DteDataL1

	// Signatures holds one verdict per signature in document order.
	Signatures []SignatureCheck
}

// ParseAEC runs the full pipeline over one AEC envelope: parse, schema
// validation, extraction, chain-of-title validation, and signature
// verification per signed fragment. trustedCert, when non-nil, overrides
// the embedded certificates for every signature.
func (p *Processor) ParseAEC(ctx context.Context, data []byte, trustedCert []byte) (*AecResult, error) {
	doc, err := p.parseAs(data, xmlparser.FamilyAEC, schema.AEC())
	if err != nil {
		return nil, err
	}

	env, err := xmlparser.NewAECExtractor().Extract(doc)
	if err != nil {
		return nil, err
	}

	ruts := []rutPair{{env.Cedente, env.Cesionario}}
	for _, c := range env.Cesiones {
		ruts = append(ruts, rutPair{c.Cedente, c.Cesionario}, rutPair{c.Dte.Emisor, c.Dte.Receptor})
	}
	for _, pair := range ruts {
		if err := p.verifyRUTs(pair.a, pair.b); err != nil {
			return nil, err
		}
	}

	var refDte model.DteDataL1
	if len(env.Cesiones) > 0 {
		refDte = env.Cesiones[0].Dte
	}
	if err := chain.Validate(env, refDte); err != nil {
		return nil, err
	}

	checks, err := p.verifySignatures(doc, trustedCert)
	if err != nil {
		return nil, err
	}

	return &AecResult{Envelope: env, ReferencedDte: refDte, Signatures: checks}, nil
}

// VerifyDocumentSignature verifies one signature over a previously
// serialized document, for callers that manage parsing themselves.
func (p *Processor) VerifyDocumentSignature(ctx context.Context, data []byte, fragmentID string, trustedCert []byte) (*signature.Verdict, error) {
	doc, err := p.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	return p.verifier.Verify(doc, fragmentID, trustedCert)
}

// parseAs parses untrusted bytes, requires the expected family, and
// validates against the family schema.
func (p *Processor) parseAs(data []byte, family xmlparser.Family, s *schema.Schema) (*etree.Document, error) {
	doc, err := p.parser.Parse(data)
	if err != nil {
		return nil, err
	}
	if got := xmlparser.DetectFamily(doc); got != family {
		return nil, xmlparser.NewUnknownFamilyError(doc)
	}
	if err := s.Validate(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// verifySignatures runs the verifier once per distinct reference
// fragment found among the document's signatures, in document order.
func (p *Processor) verifySignatures(doc *etree.Document, trustedCert []byte) ([]SignatureCheck, error) {
	seen := map[string]bool{}
	var checks []SignatureCheck
	for _, sig := range doc.FindElements("//Signature") {
		ref := sig.FindElement("SignedInfo/Reference")
		if ref == nil {
			continue
		}
		fragmentID := strings.TrimPrefix(ref.SelectAttrValue("URI", ""), "#")
		if seen[fragmentID] {
			continue
		}
		seen[fragmentID] = true

		verdict, err := p.verifier.Verify(doc, fragmentID, trustedCert)
		if err != nil {
			return nil, err
		}
		checks = append(checks, SignatureCheck{FragmentID: fragmentID, Verdict: verdict})
	}
	return checks, nil
}

type rutPair struct{ a, b RUT }

func (p *Processor) verifyRUTs(ruts ...RUT) error {
	if !p.options.VerifyRUTChecksums {
		return nil
	}
	for _, r := range ruts {
		if err := r.ValidateChecksum(); err != nil {
			return err
		}
	}
	return nil
}
