package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/cordada/lib-cl-sii-go/internal/rut"
)

// CesionData is one assignment (cesión) of the right to collect payment
// on a DTE, at a given position in the document's chain of title.
type CesionData struct {
	// Dte is the referenced document as declared inside the cesión
	// (IdDTE group).
	Dte DteDataL1

	// Seq is the 1-based position of this assignment in the chain.
	Seq int

	Cedente    rut.RUT
	Cesionario rut.RUT

	// MontoCedido is the assigned amount; it may not exceed the
	// referenced document's total.
	MontoCedido decimal.Decimal

	// FechaCesion is the assignment timestamp, stored at minute
	// precision in the official timezone.
	FechaCesion time.Time

	// UltimoVencimiento is the last due date of the assigned credit.
	UltimoVencimiento time.Time

	CedenteRazonSocial    string
	CesionarioRazonSocial string
	CedenteDireccion      string
	CesionarioDireccion   string
	CedenteEmail          string
	CesionarioEmail       string

	// DeclaracionJurada is the optional sworn-declaration text.
	DeclaracionJurada string
}

// CesionFields carries the inputs for NewCesionData.
type CesionFields struct {
	Dte                   DteDataL1
	Seq                   int
	Cedente               rut.RUT
	Cesionario            rut.RUT
	MontoCedido           decimal.Decimal
	FechaCesion           time.Time
	UltimoVencimiento     time.Time
	CedenteRazonSocial    string
	CesionarioRazonSocial string
	CedenteDireccion      string
	CesionarioDireccion   string
	CedenteEmail          string
	CesionarioEmail       string
	DeclaracionJurada     string
}

// NewCesionData validates and builds an assignment record. The assignment
// timestamp is truncated to the minute before it is stored.
func NewCesionData(f CesionFields) (CesionData, error) {
	var err error
	if f.Seq < 1 {
		err = multierr.Append(err, NewFieldError("Seq", f.Seq, "must be >= 1"))
	}
	if f.Cedente.IsZero() {
		err = multierr.Append(err, NewFieldError("Cedente", nil, "must be set"))
	}
	if f.Cesionario.IsZero() {
		err = multierr.Append(err, NewFieldError("Cesionario", nil, "must be set"))
	}
	if !montoInRange(f.MontoCedido) || f.MontoCedido.IsNegative() {
		err = multierr.Append(err, NewFieldError("MontoCedido", f.MontoCedido, "is out of range"))
	} else if f.MontoCedido.GreaterThan(f.Dte.MontoTotal) {
		err = multierr.Append(err, NewFieldError("MontoCedido", f.MontoCedido,
			fmt.Sprintf("exceeds the referenced document total %s", f.Dte.MontoTotal)))
	}
	if f.FechaCesion.IsZero() {
		err = multierr.Append(err, NewFieldError("FechaCesion", nil, "must be set"))
	} else if !inOfficialTZ(f.FechaCesion) {
		err = multierr.Append(err, NewFieldError("FechaCesion", f.FechaCesion,
			"must carry the official timezone "+OfficialTimezoneName))
	}
	if f.UltimoVencimiento.IsZero() {
		err = multierr.Append(err, NewFieldError("UltimoVencimiento", nil, "must be set"))
	} else if !inOfficialTZ(f.UltimoVencimiento) {
		err = multierr.Append(err, NewFieldError("UltimoVencimiento", f.UltimoVencimiento,
			"must carry the official timezone "+OfficialTimezoneName))
	}
	err = multierr.Append(err, requireCleanString("CedenteRazonSocial", f.CedenteRazonSocial))
	err = multierr.Append(err, requireCleanString("CesionarioRazonSocial", f.CesionarioRazonSocial))
	err = multierr.Append(err, requireCleanString("CedenteDireccion", f.CedenteDireccion))
	err = multierr.Append(err, requireCleanString("CesionarioDireccion", f.CesionarioDireccion))
	err = multierr.Append(err, requireCleanString("CedenteEmail", f.CedenteEmail))
	err = multierr.Append(err, requireCleanString("CesionarioEmail", f.CesionarioEmail))
	err = multierr.Append(err, optionalCleanString("DeclaracionJurada", f.DeclaracionJurada))
	if err != nil {
		return CesionData{}, err
	}

	return CesionData{
		Dte:                   f.Dte,
		Seq:                   f.Seq,
		Cedente:               f.Cedente,
		Cesionario:            f.Cesionario,
		MontoCedido:           f.MontoCedido,
		FechaCesion:           TruncateToMinute(f.FechaCesion),
		UltimoVencimiento:     f.UltimoVencimiento,
		CedenteRazonSocial:    f.CedenteRazonSocial,
		CesionarioRazonSocial: f.CesionarioRazonSocial,
		CedenteDireccion:      f.CedenteDireccion,
		CesionarioDireccion:   f.CesionarioDireccion,
		CedenteEmail:          f.CedenteEmail,
		CesionarioEmail:       f.CesionarioEmail,
		DeclaracionJurada:     f.DeclaracionJurada,
	}, nil
}

// Slug returns "{rut}--{tipo}--{folio}--{seq}".
func (c CesionData) Slug() string {
	return fmt.Sprintf("%s--%d", c.Dte.Slug(), c.Seq)
}

// AecEnvelope is the signed AEC envelope wrapping an ordered chain of
// cesión records for one document.
type AecEnvelope struct {
	// Cedente and Cesionario identify the parties of the envelope's
	// (latest) assignment, from the caratula.
	Cedente    rut.RUT
	Cesionario rut.RUT

	// FirmaEnvio is the envelope signing timestamp, minute precision,
	// official timezone.
	FirmaEnvio time.Time

	// Optional caratula contact fields; empty means absent.
	NombreContacto string
	FonoContacto   string
	MailContacto   string

	// Cesiones is the ordered assignment chain.
	Cesiones []CesionData
}

// AecFields carries the inputs for NewAecEnvelope.
type AecFields struct {
	Cedente        rut.RUT
	Cesionario     rut.RUT
	FirmaEnvio     time.Time
	NombreContacto string
	FonoContacto   string
	MailContacto   string
	Cesiones       []CesionData
}

// NewAecEnvelope validates and builds an AEC envelope. Cross-record chain
// invariants are checked separately by the chain validator.
func NewAecEnvelope(f AecFields) (AecEnvelope, error) {
	var err error
	if f.Cedente.IsZero() {
		err = multierr.Append(err, NewFieldError("Cedente", nil, "must be set"))
	}
	if f.Cesionario.IsZero() {
		err = multierr.Append(err, NewFieldError("Cesionario", nil, "must be set"))
	}
	if f.FirmaEnvio.IsZero() {
		err = multierr.Append(err, NewFieldError("FirmaEnvio", nil, "must be set"))
	} else if !inOfficialTZ(f.FirmaEnvio) {
		err = multierr.Append(err, NewFieldError("FirmaEnvio", f.FirmaEnvio,
			"must carry the official timezone "+OfficialTimezoneName))
	}
	err = multierr.Append(err, optionalCleanString("NombreContacto", f.NombreContacto))
	err = multierr.Append(err, optionalCleanString("FonoContacto", f.FonoContacto))
	err = multierr.Append(err, optionalCleanString("MailContacto", f.MailContacto))
	if err != nil {
		return AecEnvelope{}, err
	}

	cesiones := make([]CesionData, len(f.Cesiones))
	copy(cesiones, f.Cesiones)

	return AecEnvelope{
		Cedente:        f.Cedente,
		Cesionario:     f.Cesionario,
		FirmaEnvio:     TruncateToMinute(f.FirmaEnvio),
		NombreContacto: f.NombreContacto,
		FonoContacto:   f.FonoContacto,
		MailContacto:   f.MailContacto,
		Cesiones:       cesiones,
	}, nil
}

// Slug returns the envelope slug: the referenced document slug plus the
// highest sequence number, or "" for an empty envelope.
func (e AecEnvelope) Slug() string {
	if len(e.Cesiones) == 0 {
		return ""
	}
	return e.Cesiones[len(e.Cesiones)-1].Slug()
}
