package siidte

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/cordada/lib-cl-sii-go/internal/model"
	xmlparser "github.com/cordada/lib-cl-sii-go/internal/parser/xml"
)

// DocumentError wraps a per-document failure with enough context to find
// the offending document inside a batch.
type DocumentError struct {
	// Index is the document's position in the submitted batch.
	Index int

	// Slug identifies the document when its key fields could still be
	// read; empty otherwise.
	Slug string

	Err error
}

func (e *DocumentError) Error() string {
	if e.Slug != "" {
		return fmt.Sprintf("document %d (%s): %v", e.Index, e.Slug, e.Err)
	}
	return fmt.Sprintf("document %d: %v", e.Index, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// BatchEntry is the outcome for one document of a batch. Exactly one of
// Dte, Aec or Err is set.
type BatchEntry struct {
	Index int
	Dte   *model.DteDataL2
	Aec   *AecResult
	Err   *DocumentError
}

// ProcessBatch processes each document independently, dispatching on the
// detected family. A failing document never aborts the batch; its entry
// carries a DocumentError instead. trustedCert applies to every AEC in
// the batch. Processing stops early only when ctx is done, in which case
// the remaining documents get the context's error.
func (p *Processor) ProcessBatch(ctx context.Context, docs [][]byte, trustedCert []byte) []BatchEntry {
	entries := make([]BatchEntry, len(docs))
	for i, data := range docs {
		entries[i].Index = i
		if err := ctx.Err(); err != nil {
			entries[i].Err = &DocumentError{Index: i, Err: err}
			continue
		}
		entries[i] = p.processOne(ctx, i, data, trustedCert)
	}
	return entries
}

func (p *Processor) processOne(ctx context.Context, index int, data []byte, trustedCert []byte) BatchEntry {
	entry := BatchEntry{Index: index}

	doc, err := p.parser.Parse(data)
	if err != nil {
		entry.Err = &DocumentError{Index: index, Err: err}
		return entry
	}

	switch xmlparser.DetectFamily(doc) {
	case xmlparser.FamilyDTE:
		dte, err := p.ParseDTE(ctx, data)
		if err != nil {
			entry.Err = &DocumentError{Index: index, Slug: partialSlug(doc), Err: err}
			return entry
		}
		entry.Dte = &dte
	case xmlparser.FamilyAEC:
		aec, err := p.ParseAEC(ctx, data, trustedCert)
		if err != nil {
			entry.Err = &DocumentError{Index: index, Slug: partialSlug(doc), Err: err}
			return entry
		}
		entry.Aec = aec
	default:
		entry.Err = &DocumentError{Index: index, Err: xmlparser.NewUnknownFamilyError(doc)}
	}
	return entry
}

// partialSlug derives a best-effort document slug from whatever key
// fields the raw document exposes, for error context only. Values are
// taken as written; nothing here validates.
func partialSlug(doc *etree.Document) string {
	root := doc.Root()
	if root == nil {
		return ""
	}

	var emisor, tipo, folio string
	switch root.Tag {
	case "DTE":
		emisor = elementText(root, "Documento/Encabezado/Emisor/RUTEmisor")
		tipo = elementText(root, "Documento/Encabezado/IdDoc/TipoDTE")
		folio = elementText(root, "Documento/Encabezado/IdDoc/Folio")
	case "AEC":
		base := "DocumentoAEC/Cesiones/Cesion/DocumentoCesion/IdDTE/"
		emisor = elementText(root, base+"RUTEmisor")
		tipo = elementText(root, base+"TipoDTE")
		folio = elementText(root, base+"Folio")
	}
	if emisor == "" || tipo == "" || folio == "" {
		return ""
	}

	r, err := ParseRUT(emisor)
	if err != nil {
		return ""
	}
	if _, err := strconv.ParseInt(tipo, 10, 64); err != nil {
		return ""
	}
	if _, err := strconv.ParseInt(folio, 10, 64); err != nil {
		return ""
	}
	return fmt.Sprintf("%s--%s--%s", r, tipo, folio)
}

func elementText(root *etree.Element, path string) string {
	if elem := root.FindElement(path); elem != nil {
		return strings.TrimSpace(elem.Text())
	}
	return ""
}
