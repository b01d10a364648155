package model

// TipoDTE is the closed set of document-type codes handled by this
// library. Values outside the set are rejected at decode time.
type TipoDTE int

const (
	// TipoDTEFacturaElectronica is an electronic invoice (33).
	TipoDTEFacturaElectronica TipoDTE = 33
	// TipoDTEFacturaNoAfectaOExenta is a VAT-exempt electronic invoice (34).
	TipoDTEFacturaNoAfectaOExenta TipoDTE = 34
	// TipoDTELiquidacionFactura is an invoice settlement (43). The only
	// type whose total amount may be negative.
	TipoDTELiquidacionFactura TipoDTE = 43
	// TipoDTEFacturaCompraElectronica is an electronic purchase invoice (46).
	TipoDTEFacturaCompraElectronica TipoDTE = 46
	// TipoDTEGuiaDespacho is an electronic dispatch note (52).
	TipoDTEGuiaDespacho TipoDTE = 52
	// TipoDTENotaDebito is an electronic debit note (56).
	TipoDTENotaDebito TipoDTE = 56
	// TipoDTENotaCredito is an electronic credit note (61).
	TipoDTENotaCredito TipoDTE = 61
	// TipoDTEFacturaExportacion is an export invoice (110).
	TipoDTEFacturaExportacion TipoDTE = 110
	// TipoDTENotaDebitoExportacion is an export debit note (111).
	TipoDTENotaDebitoExportacion TipoDTE = 111
	// TipoDTENotaCreditoExportacion is an export credit note (112).
	TipoDTENotaCreditoExportacion TipoDTE = 112
)

var knownTipoDTE = map[TipoDTE]string{
	TipoDTEFacturaElectronica:       "factura electrónica",
	TipoDTEFacturaNoAfectaOExenta:   "factura no afecta o exenta electrónica",
	TipoDTELiquidacionFactura:       "liquidación-factura electrónica",
	TipoDTEFacturaCompraElectronica: "factura de compra electrónica",
	TipoDTEGuiaDespacho:             "guía de despacho electrónica",
	TipoDTENotaDebito:               "nota de débito electrónica",
	TipoDTENotaCredito:              "nota de crédito electrónica",
	TipoDTEFacturaExportacion:       "factura de exportación electrónica",
	TipoDTENotaDebitoExportacion:    "nota de débito de exportación electrónica",
	TipoDTENotaCreditoExportacion:   "nota de crédito de exportación electrónica",
}

// TipoDTEFromCode converts a numeric code into a TipoDTE, failing with
// UnknownCodeError for codes outside the known set.
func TipoDTEFromCode(code int) (TipoDTE, error) {
	t := TipoDTE(code)
	if _, ok := knownTipoDTE[t]; !ok {
		return 0, &UnknownCodeError{Code: code}
	}
	return t, nil
}

// IsKnown reports whether t belongs to the known code set.
func (t TipoDTE) IsKnown() bool {
	_, ok := knownTipoDTE[t]
	return ok
}

// AllowsNegativeTotal reports whether documents of this type may carry a
// negative total amount.
func (t TipoDTE) AllowsNegativeTotal() bool {
	return t == TipoDTELiquidacionFactura
}

// Description returns the Spanish document-type name, or "" if unknown.
func (t TipoDTE) Description() string {
	return knownTipoDTE[t]
}
