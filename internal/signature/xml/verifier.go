// Package xml verifies enveloped XMLDSig signatures over etree documents.
// Canonicalization follows the algorithm URIs named inside the signature
// itself; digest and signature checks are recomputed from scratch.
package xml

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"github.com/russellhaering/goxmldsig/etreeutils"

	"github.com/cordada/lib-cl-sii-go/internal/signature"
)

// XMLDSig algorithm URIs supported by the verifier.
const (
	algC14N10Rec          = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	algC14N10WithComments = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315#WithComments"
	algExcC14N            = "http://www.w3.org/2001/10/xml-exc-c14n#"
	algExcC14NComments    = "http://www.w3.org/2001/10/xml-exc-c14n#WithComments"
	algC14N11             = "http://www.w3.org/2006/12/xml-c14n11"
	algEnvelopedSignature = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"

	algDigestSHA1   = "http://www.w3.org/2000/09/xmldsig#sha1"
	algDigestSHA256 = "http://www.w3.org/2001/04/xmlenc#sha256"

	algRSASHA1   = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	algRSASHA256 = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
)

// Verifier verifies XMLDSig signatures. It is immutable and safe for
// concurrent use.
type Verifier struct {
	allowMultiple bool
}

// Option configures a Verifier.
type Option func(*Verifier)

// AllowMultipleSignatures opts into documents carrying more than one
// signature. Without it, a multi-signature document is an input error,
// not a silent limitation.
func AllowMultipleSignatures() Option {
	return func(v *Verifier) { v.allowMultiple = true }
}

// NewVerifier creates a Verifier.
func NewVerifier(opts ...Option) *Verifier {
	v := &Verifier{}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify checks the signature over the fragment identified by fragmentID
// (matched against the signature's Reference URI; empty selects the first
// signature's reference). certBytes, when non-nil, supplies the
// already-trusted certificate in DER or PEM form; otherwise the
// certificate embedded in the signature's KeyInfo is used.
//
// Structural problems (no signature, disallowed multiple signatures,
// broken signature layout, unsupported algorithms) return an error.
// Everything verification can actually say about the document is a
// Verdict: Verified, Unverified or Indeterminate.
func (v *Verifier) Verify(doc *etree.Document, fragmentID string, certBytes []byte) (*signature.Verdict, error) {
	root := doc.Root()
	if root == nil {
		return nil, &signature.MalformedSignatureError{Message: "document has no root element"}
	}

	sigs := findSignatures(root)
	if len(sigs) == 0 {
		return nil, &signature.NoSignatureError{}
	}
	if len(sigs) > 1 && !v.allowMultiple {
		return nil, &signature.MultipleSignaturesError{Count: len(sigs)}
	}

	sig, ref, err := selectSignature(sigs, fragmentID)
	if err != nil {
		return nil, err
	}

	// Certificate loading failures are Indeterminate by design: the
	// caller must be able to tell "bad signature" from "could not try".
	cert, loadErr := v.loadCert(sig, certBytes)
	if loadErr != nil {
		return signature.IndeterminateVerdict(loadErr.Error()), nil
	}

	refURI := ref.SelectAttrValue("URI", "")
	target, err := resolveReference(root, refURI)
	if err != nil {
		return nil, err
	}

	digestOK, err := v.checkDigest(sig, ref, target)
	if err != nil {
		return nil, err
	}
	if !digestOK {
		return signature.UnverifiedVerdict(
			fmt.Sprintf("digest mismatch for reference %q: content was altered after signing", refURI), cert), nil
	}

	return v.checkSignatureValue(sig, cert)
}

// loadCert picks the caller-supplied certificate or falls back to the
// one embedded in KeyInfo.
func (v *Verifier) loadCert(sig *etree.Element, certBytes []byte) (*x509.Certificate, error) {
	if certBytes == nil {
		embedded := sig.FindElement("KeyInfo/X509Data/X509Certificate")
		if embedded == nil {
			return nil, fmt.Errorf("no certificate supplied and none embedded in signature")
		}
		der, err := base64.StdEncoding.DecodeString(stripSpace(embedded.Text()))
		if err != nil {
			return nil, fmt.Errorf("embedded certificate is not valid base64: %w", err)
		}
		certBytes = der
	}
	cert, err := signature.LoadCertificate(certBytes)
	if err != nil {
		return nil, err
	}
	return cert, nil
}

// checkDigest recomputes the reference digest over the canonicalized,
// transformed target and compares it to the embedded DigestValue.
func (v *Verifier) checkDigest(sig, ref *etree.Element, target *etree.Element) (bool, error) {
	digestValueElem := ref.FindElement("DigestValue")
	digestMethodElem := ref.FindElement("DigestMethod")
	if digestValueElem == nil || digestMethodElem == nil {
		return false, &signature.MalformedSignatureError{Message: "Reference lacks DigestMethod or DigestValue"}
	}

	expected, err := base64.StdEncoding.DecodeString(stripSpace(digestValueElem.Text()))
	if err != nil {
		return false, &signature.MalformedSignatureError{Message: "DigestValue is not valid base64"}
	}

	hash, err := hashFor("digest", digestMethodElem.SelectAttrValue("Algorithm", ""))
	if err != nil {
		return false, err
	}

	canonical, err := canonicalizeReference(sig, ref, target)
	if err != nil {
		return false, err
	}

	h := hash.New()
	h.Write(canonical)
	return bytes.Equal(h.Sum(nil), expected), nil
}

// checkSignatureValue canonicalizes SignedInfo and verifies the RSA
// signature over it.
func (v *Verifier) checkSignatureValue(sig *etree.Element, cert *x509.Certificate) (*signature.Verdict, error) {
	signedInfo := sig.FindElement("SignedInfo")
	sigValueElem := sig.FindElement("SignatureValue")
	if signedInfo == nil || sigValueElem == nil {
		return nil, &signature.MalformedSignatureError{Message: "signature lacks SignedInfo or SignatureValue"}
	}

	c14nMethod := signedInfo.FindElement("CanonicalizationMethod")
	if c14nMethod == nil {
		return nil, &signature.MalformedSignatureError{Message: "SignedInfo lacks CanonicalizationMethod"}
	}
	canonicalizer, err := canonicalizerFor(c14nMethod.SelectAttrValue("Algorithm", ""))
	if err != nil {
		return nil, err
	}

	sigMethod := signedInfo.FindElement("SignatureMethod")
	if sigMethod == nil {
		return nil, &signature.MalformedSignatureError{Message: "SignedInfo lacks SignatureMethod"}
	}
	hash, err := hashFor("signature", sigMethod.SelectAttrValue("Algorithm", ""))
	if err != nil {
		return nil, err
	}

	detached, err := detachWithNamespaces(signedInfo)
	if err != nil {
		return nil, fmt.Errorf("failed to detach SignedInfo: %w", err)
	}
	canonical, err := canonicalizer.Canonicalize(detached)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize SignedInfo: %w", err)
	}

	sigValue, err := base64.StdEncoding.DecodeString(stripSpace(sigValueElem.Text()))
	if err != nil {
		return signature.UnverifiedVerdict("SignatureValue is not valid base64", cert), nil
	}

	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return signature.IndeterminateVerdict(
			fmt.Sprintf("unsupported public key type %T", cert.PublicKey)), nil
	}

	h := hash.New()
	h.Write(canonical)
	if err := rsa.VerifyPKCS1v15(pub, hash, h.Sum(nil), sigValue); err != nil {
		return signature.UnverifiedVerdict("signature value does not verify over SignedInfo", cert), nil
	}
	return signature.VerifiedVerdict(cert), nil
}

// canonicalizeReference applies the reference's transforms in order and
// canonicalizes the result. The enveloped-signature transform removes the
// signature being verified from a copy of the target.
func canonicalizeReference(sig, ref *etree.Element, target *etree.Element) ([]byte, error) {
	work, err := detachWithNamespaces(target)
	if err != nil {
		return nil, err
	}
	canonicalizer := dsig.MakeC14N10RecCanonicalizer()

	for _, transform := range ref.FindElements("Transforms/Transform") {
		alg := transform.SelectAttrValue("Algorithm", "")
		switch alg {
		case algEnvelopedSignature:
			removeSignature(work, sig)
		default:
			c, err := canonicalizerFor(alg)
			if err != nil {
				return nil, err
			}
			canonicalizer = c
		}
	}

	return canonicalizer.Canonicalize(work)
}

// detachWithNamespaces copies an element for standalone canonicalization,
// declaring on the copy every namespace in scope at the element's position
// in the document. The canonical form of a bare copy would lack the
// declarations the signer saw (the dsig prefix on Signature, the default
// namespace on the document root), so its digest could never match.
func detachWithNamespaces(el *etree.Element) (*etree.Element, error) {
	nsCtx, err := etreeutils.NSBuildParentContext(el)
	if err != nil {
		return nil, err
	}
	return etreeutils.NSDetatch(nsCtx, el)
}

// removeSignature deletes from the working copy the signature that
// corresponds to the one being verified, matched by its SignatureValue.
func removeSignature(work *etree.Element, sig *etree.Element) {
	marker := ""
	if sv := sig.FindElement("SignatureValue"); sv != nil {
		marker = stripSpace(sv.Text())
	}
	for _, candidate := range findSignatures(work) {
		sv := candidate.FindElement("SignatureValue")
		if marker == "" || (sv != nil && stripSpace(sv.Text()) == marker) {
			if parent := candidate.Parent(); parent != nil {
				parent.RemoveChild(candidate)
			}
			return
		}
	}
}

// selectSignature picks the signature whose Reference URI matches the
// requested fragment. An empty fragment prefers a whole-document
// signature (empty Reference URI) and falls back to the first signature
// carrying a reference.
func selectSignature(sigs []*etree.Element, fragmentID string) (*etree.Element, *etree.Element, error) {
	var firstSig, firstRef *etree.Element
	for _, sig := range sigs {
		ref := sig.FindElement("SignedInfo/Reference")
		if ref == nil {
			continue
		}
		if firstSig == nil {
			firstSig, firstRef = sig, ref
		}
		uri := ref.SelectAttrValue("URI", "")
		if fragmentID == "" && uri == "" {
			return sig, ref, nil
		}
		if fragmentID != "" && uri == "#"+fragmentID {
			return sig, ref, nil
		}
	}
	if fragmentID != "" {
		return nil, nil, &signature.MalformedSignatureError{
			Message: fmt.Sprintf("no signature references fragment %q", fragmentID),
		}
	}
	if firstSig != nil {
		return firstSig, firstRef, nil
	}
	return nil, nil, &signature.MalformedSignatureError{Message: "signature lacks SignedInfo/Reference"}
}

// resolveReference locates the signed fragment: the document root for an
// empty URI, or the element whose ID attribute matches "#fragment".
func resolveReference(root *etree.Element, uri string) (*etree.Element, error) {
	if uri == "" {
		return root, nil
	}
	if !strings.HasPrefix(uri, "#") {
		return nil, &signature.UnsupportedAlgorithmError{Kind: "reference", URI: uri}
	}
	id := uri[1:]
	if target := findByID(root, id); target != nil {
		return target, nil
	}
	return nil, &signature.MalformedSignatureError{
		Message: fmt.Sprintf("no element with ID %q found for reference", id),
	}
}

func findByID(elem *etree.Element, id string) *etree.Element {
	for _, attr := range []string{"ID", "Id", "id"} {
		if elem.SelectAttrValue(attr, "") == id {
			return elem
		}
	}
	for _, child := range elem.ChildElements() {
		if found := findByID(child, id); found != nil {
			return found
		}
	}
	return nil
}

// findSignatures collects every Signature element (by local name) in
// document order, without descending into signatures.
func findSignatures(elem *etree.Element) []*etree.Element {
	var sigs []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		if e.Tag == "Signature" {
			sigs = append(sigs, e)
			return
		}
		for _, child := range e.ChildElements() {
			walk(child)
		}
	}
	walk(elem)
	return sigs
}

// canonicalizerFor maps an XMLDSig canonicalization URI onto a goxmldsig
// canonicalizer.
func canonicalizerFor(uri string) (dsig.Canonicalizer, error) {
	switch uri {
	case algC14N10Rec:
		return dsig.MakeC14N10RecCanonicalizer(), nil
	case algC14N10WithComments:
		return dsig.MakeC14N10WithCommentsCanonicalizer(), nil
	case algExcC14N:
		return dsig.MakeC14N10ExclusiveCanonicalizerWithPrefixList(""), nil
	case algExcC14NComments:
		return dsig.MakeC14N10ExclusiveWithCommentsCanonicalizerWithPrefixList(""), nil
	case algC14N11:
		return dsig.MakeC14N11Canonicalizer(), nil
	default:
		return nil, &signature.UnsupportedAlgorithmError{Kind: "canonicalization", URI: uri}
	}
}

// hashFor maps digest/signature algorithm URIs onto hash functions.
func hashFor(kind, uri string) (crypto.Hash, error) {
	switch uri {
	case algDigestSHA1, algRSASHA1:
		return crypto.SHA1, nil
	case algDigestSHA256, algRSASHA256:
		return crypto.SHA256, nil
	default:
		return 0, &signature.UnsupportedAlgorithmError{Kind: kind, URI: uri}
	}
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\r', '\n':
			return -1
		default:
			return r
		}
	}, s)
}
