package xml

import (
	"github.com/beevik/etree"

	"github.com/cordada/lib-cl-sii-go/internal/model"
)

// AECExtractor extracts AecEnvelope records from validated AEC envelopes.
type AECExtractor struct{}

// NewAECExtractor creates an AEC extractor.
func NewAECExtractor() *AECExtractor { return &AECExtractor{} }

// Family returns the document family this extractor handles.
func (e *AECExtractor) Family() Family { return FamilyAEC }

// CanExtract reports whether the document's root is an AEC envelope.
func (e *AECExtractor) CanExtract(doc *etree.Document) bool {
	root := doc.Root()
	return root != nil && root.Tag == "AEC"
}

// Extract navigates a schema-validated AEC envelope and builds the
// envelope record with its ordered cesión list. It expects
// schema.AEC().Validate to have passed.
func (e *AECExtractor) Extract(doc *etree.Document) (model.AecEnvelope, error) {
	root := doc.Root()

	caratula := root.FindElement("DocumentoAEC/Caratula")
	if caratula == nil {
		return model.AecEnvelope{}, &MissingFieldError{Path: "/AEC/DocumentoAEC/Caratula"}
	}

	cedente, err := decodeRUT(caratula, "RutCedente")
	if err != nil {
		return model.AecEnvelope{}, err
	}
	cesionario, err := decodeRUT(caratula, "RutCesionario")
	if err != nil {
		return model.AecEnvelope{}, err
	}
	firmaEnvio, err := decodeDateTime(caratula, "TmstFirmaEnvio")
	if err != nil {
		return model.AecEnvelope{}, err
	}

	var cesiones []model.CesionData
	for _, cesionElem := range root.FindElements("DocumentoAEC/Cesiones/Cesion") {
		cesion, err := extractCesion(cesionElem)
		if err != nil {
			return model.AecEnvelope{}, err
		}
		cesiones = append(cesiones, cesion)
	}
	if len(cesiones) == 0 {
		return model.AecEnvelope{}, &MissingFieldError{Path: "/AEC/DocumentoAEC/Cesiones/Cesion"}
	}

	return model.NewAecEnvelope(model.AecFields{
		Cedente:        cedente,
		Cesionario:     cesionario,
		FirmaEnvio:     firmaEnvio,
		NombreContacto: optionalText(caratula, "NmbContacto"),
		FonoContacto:   optionalText(caratula, "FonoContacto"),
		MailContacto:   optionalText(caratula, "MailContacto"),
		Cesiones:       cesiones,
	})
}

// extractCesion builds one assignment record from a <Cesion> element.
func extractCesion(cesionElem *etree.Element) (model.CesionData, error) {
	docCesion := cesionElem.FindElement("DocumentoCesion")
	if docCesion == nil {
		return model.CesionData{}, &MissingFieldError{Path: cesionElem.GetPath() + "/DocumentoCesion"}
	}

	tipo, err := decodeTipoDTE(docCesion, "IdDTE/TipoDTE")
	if err != nil {
		return model.CesionData{}, err
	}
	folio, err := decodeInt(docCesion, "IdDTE/Folio")
	if err != nil {
		return model.CesionData{}, err
	}
	dteEmisor, err := decodeRUT(docCesion, "IdDTE/RUTEmisor")
	if err != nil {
		return model.CesionData{}, err
	}
	dteReceptor, err := decodeRUT(docCesion, "IdDTE/RUTReceptor")
	if err != nil {
		return model.CesionData{}, err
	}
	fchEmis, err := decodeDate(docCesion, "IdDTE/FchEmis")
	if err != nil {
		return model.CesionData{}, err
	}
	mntTotal, err := decodeAmount(docCesion, "IdDTE/MntTotal")
	if err != nil {
		return model.CesionData{}, err
	}

	key, err := model.NewDocumentKey(dteEmisor, tipo, folio)
	if err != nil {
		return model.CesionData{}, err
	}
	dte, err := model.NewDteDataL1(key, fchEmis, dteReceptor, mntTotal)
	if err != nil {
		return model.CesionData{}, err
	}

	seq, err := decodeInt(docCesion, "SeqCesion")
	if err != nil {
		return model.CesionData{}, err
	}
	monto, err := decodeAmount(docCesion, "MontoCesion")
	if err != nil {
		return model.CesionData{}, err
	}
	fechaCesion, err := decodeDateTime(docCesion, "TmstCesion")
	if err != nil {
		return model.CesionData{}, err
	}
	ultimoVenc, err := decodeDate(docCesion, "UltimoVencimiento")
	if err != nil {
		return model.CesionData{}, err
	}
	cedente, err := decodeRUT(docCesion, "Cedente/RUT")
	if err != nil {
		return model.CesionData{}, err
	}
	cedenteRazon, err := requiredText(docCesion, "Cedente/RazonSocial")
	if err != nil {
		return model.CesionData{}, err
	}
	cedenteDir, err := requiredText(docCesion, "Cedente/Direccion")
	if err != nil {
		return model.CesionData{}, err
	}
	cedenteMail, err := requiredText(docCesion, "Cedente/eMail")
	if err != nil {
		return model.CesionData{}, err
	}
	cesionario, err := decodeRUT(docCesion, "Cesionario/RUT")
	if err != nil {
		return model.CesionData{}, err
	}
	cesionarioRazon, err := requiredText(docCesion, "Cesionario/RazonSocial")
	if err != nil {
		return model.CesionData{}, err
	}
	cesionarioDir, err := requiredText(docCesion, "Cesionario/Direccion")
	if err != nil {
		return model.CesionData{}, err
	}
	cesionarioMail, err := requiredText(docCesion, "Cesionario/eMail")
	if err != nil {
		return model.CesionData{}, err
	}

	return model.NewCesionData(model.CesionFields{
		Dte:                   dte,
		Seq:                   int(seq),
		Cedente:               cedente,
		Cesionario:            cesionario,
		MontoCedido:           monto,
		FechaCesion:           fechaCesion,
		UltimoVencimiento:     ultimoVenc,
		CedenteRazonSocial:    cedenteRazon,
		CesionarioRazonSocial: cesionarioRazon,
		CedenteDireccion:      cedenteDir,
		CesionarioDireccion:   cesionarioDir,
		CedenteEmail:          cedenteMail,
		CesionarioEmail:       cesionarioMail,
		DeclaracionJurada:     optionalText(docCesion, "Cedente/DeclaracionJurada"),
	})
}
