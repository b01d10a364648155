// Package xml extracts typed records from schema-validated SII
// documents. One extractor exists per document shape; a small registry
// detects the shape from the root element.
package xml

import (
	"github.com/beevik/etree"

	"github.com/cordada/lib-cl-sii-go/internal/model"
)

// SiiNamespace is the namespace every supported document family uses.
const SiiNamespace = "http://www.sii.cl/SiiDte"

// The three structural alternatives under <DTE>. Only Documento is
// extracted; the others are recognized and rejected.
const (
	shapeDocumento     = "Documento"
	shapeLiquidacion   = "Liquidacion"
	shapeExportaciones = "Exportaciones"
)

// DTEExtractor extracts DteDataL2 records from validated DTE documents.
type DTEExtractor struct{}

// NewDTEExtractor creates a DTE extractor.
func NewDTEExtractor() *DTEExtractor { return &DTEExtractor{} }

// Family returns the document family this extractor handles.
func (e *DTEExtractor) Family() Family { return FamilyDTE }

// CanExtract reports whether the document's root is a DTE.
func (e *DTEExtractor) CanExtract(doc *etree.Document) bool {
	root := doc.Root()
	return root != nil && root.Tag == "DTE"
}

// Extract navigates a schema-validated DTE and builds the level-2
// record. It expects schema.DTE().Validate to have passed.
func (e *DTEExtractor) Extract(doc *etree.Document) (model.DteDataL2, error) {
	root := doc.Root()

	documento := root.FindElement(shapeDocumento)
	if documento == nil {
		for _, alt := range []string{shapeLiquidacion, shapeExportaciones} {
			if root.FindElement(alt) != nil {
				return model.DteDataL2{}, &NotImplementedError{Shape: alt}
			}
		}
		return model.DteDataL2{}, &MissingFieldError{Path: "/DTE/" + shapeDocumento}
	}

	tipo, err := decodeTipoDTE(documento, "Encabezado/IdDoc/TipoDTE")
	if err != nil {
		return model.DteDataL2{}, err
	}
	folio, err := decodeInt(documento, "Encabezado/IdDoc/Folio")
	if err != nil {
		return model.DteDataL2{}, err
	}
	fchEmis, err := decodeDate(documento, "Encabezado/IdDoc/FchEmis")
	if err != nil {
		return model.DteDataL2{}, err
	}
	emisor, err := decodeRUT(documento, "Encabezado/Emisor/RUTEmisor")
	if err != nil {
		return model.DteDataL2{}, err
	}
	receptor, err := decodeRUT(documento, "Encabezado/Receptor/RUTRecep")
	if err != nil {
		return model.DteDataL2{}, err
	}
	montoTotal, err := decodeAmount(documento, "Encabezado/Totales/MntTotal")
	if err != nil {
		return model.DteDataL2{}, err
	}
	emisorRazon, err := requiredText(documento, "Encabezado/Emisor/RznSoc")
	if err != nil {
		return model.DteDataL2{}, err
	}
	receptorRazon, err := requiredText(documento, "Encabezado/Receptor/RznSocRecep")
	if err != nil {
		return model.DteDataL2{}, err
	}

	extras := model.DteL2Extras{
		EmisorRazonSocial:   emisorRazon,
		ReceptorRazonSocial: receptorRazon,
		EmisorGiro:          optionalText(documento, "Encabezado/Emisor/GiroEmis"),
		EmisorEmail:         optionalText(documento, "Encabezado/Emisor/CorreoEmisor"),
		ReceptorEmail:       optionalText(documento, "Encabezado/Receptor/CorreoRecep"),
	}

	if optionalText(documento, "Encabezado/IdDoc/FchVenc") != "" {
		venc, err := decodeDate(documento, "Encabezado/IdDoc/FchVenc")
		if err != nil {
			return model.DteDataL2{}, err
		}
		extras.FechaVencimiento = &venc
	}
	if optionalText(documento, "TmstFirma") != "" {
		firma, err := decodeDateTime(documento, "TmstFirma")
		if err != nil {
			return model.DteDataL2{}, err
		}
		extras.FirmaDocumento = &firma
	}

	// The enveloped signature block is optional on a standalone DTE.
	if sig := root.FindElement("Signature"); sig != nil {
		sigValue, err := decodeBase64(sig, "SignatureValue", true)
		if err != nil {
			return model.DteDataL2{}, err
		}
		certDER, err := decodeBase64(sig, "KeyInfo/X509Data/X509Certificate", true)
		if err != nil {
			return model.DteDataL2{}, err
		}
		extras.SignatureValue = sigValue
		extras.SignatureCertDER = certDER
	}

	key, err := model.NewDocumentKey(emisor, tipo, folio)
	if err != nil {
		return model.DteDataL2{}, err
	}
	l1, err := model.NewDteDataL1(key, fchEmis, receptor, montoTotal)
	if err != nil {
		return model.DteDataL2{}, err
	}
	return model.NewDteDataL2(l1, extras)
}
