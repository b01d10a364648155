// Package model defines the layered, immutable record types produced by
// the extraction pipeline: the document natural key, three progressively
// complete DTE record levels, and the cesión (assignment) records.
//
// Records are only constructed through the New* functions, which enforce
// every invariant up front; an invalid record is never observable.
// Constructors report all violated fields at once via multierr.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/cordada/lib-cl-sii-go/internal/rut"
)

// DocumentKey uniquely identifies a tax document: issuer RUT, document
// type code and sequential folio number.
type DocumentKey struct {
	Emisor rut.RUT
	Tipo   TipoDTE
	Folio  int64
}

// NewDocumentKey validates and builds a document key.
func NewDocumentKey(emisor rut.RUT, tipo TipoDTE, folio int64) (DocumentKey, error) {
	var err error
	if emisor.IsZero() {
		err = multierr.Append(err, NewFieldError("Emisor", nil, "must be set"))
	}
	if !tipo.IsKnown() {
		err = multierr.Append(err, NewFieldError("Tipo", int(tipo), "is not a known document type code"))
	}
	if folio < FolioMin || folio > FolioMax {
		err = multierr.Append(err, NewFieldError("Folio", folio,
			fmt.Sprintf("must be between %d and %d", FolioMin, FolioMax)))
	}
	if err != nil {
		return DocumentKey{}, err
	}
	return DocumentKey{Emisor: emisor, Tipo: tipo, Folio: folio}, nil
}

// Slug returns the deterministic natural-key slug
// "{rut}--{tipo}--{folio}".
func (k DocumentKey) Slug() string {
	return fmt.Sprintf("%s--%d--%d", k.Emisor, k.Tipo, k.Folio)
}

// Equal reports whether two keys identify the same document.
func (k DocumentKey) Equal(other DocumentKey) bool {
	return k.Emisor.Equal(other.Emisor) && k.Tipo == other.Tipo && k.Folio == other.Folio
}

// DteDataL0 is the least complete record level: the natural key alone.
type DteDataL0 struct {
	DocumentKey
}

// NewDteDataL0 validates and builds a level-0 record.
func NewDteDataL0(emisor rut.RUT, tipo TipoDTE, folio int64) (DteDataL0, error) {
	key, err := NewDocumentKey(emisor, tipo, folio)
	if err != nil {
		return DteDataL0{}, err
	}
	return DteDataL0{DocumentKey: key}, nil
}

// DteDataL1 extends level 0 with the fields needed for monetary
// processing: emission date, counterparty and total amount.
type DteDataL1 struct {
	DteDataL0

	// FechaEmision is the emission date at midnight in the official
	// timezone.
	FechaEmision time.Time

	// Receptor is the counterparty RUT.
	Receptor rut.RUT

	// MontoTotal is the document total. Negative only for document types
	// that allow it.
	MontoTotal decimal.Decimal
}

// NewDteDataL1 validates and builds a level-1 record on top of an
// existing key.
func NewDteDataL1(key DocumentKey, fechaEmision time.Time, receptor rut.RUT, montoTotal decimal.Decimal) (DteDataL1, error) {
	var err error
	if fechaEmision.IsZero() {
		err = multierr.Append(err, NewFieldError("FechaEmision", nil, "must be set"))
	} else if !inOfficialTZ(fechaEmision) {
		err = multierr.Append(err, NewFieldError("FechaEmision", fechaEmision,
			"must carry the official timezone "+OfficialTimezoneName))
	}
	if receptor.IsZero() {
		err = multierr.Append(err, NewFieldError("Receptor", nil, "must be set"))
	}
	if !montoInRange(montoTotal) {
		err = multierr.Append(err, NewFieldError("MontoTotal", montoTotal, "is out of range"))
	} else if montoTotal.IsNegative() && !key.Tipo.AllowsNegativeTotal() {
		err = multierr.Append(err, NewFieldError("MontoTotal", montoTotal,
			fmt.Sprintf("may not be negative for document type %d", key.Tipo)))
	}
	if err != nil {
		return DteDataL1{}, err
	}
	return DteDataL1{
		DteDataL0:    DteDataL0{DocumentKey: key},
		FechaEmision: fechaEmision,
		Receptor:     receptor,
		MontoTotal:   montoTotal,
	}, nil
}

// AsL0 projects the record down to level 0. Pure and total.
func (d DteDataL1) AsL0() DteDataL0 { return d.DteDataL0 }

// DteDataL2 extends level 1 with party names, optional dates, the
// optional signature block and optional contact fields.
type DteDataL2 struct {
	DteDataL1

	EmisorRazonSocial   string
	ReceptorRazonSocial string

	// FechaVencimiento is the optional due date.
	FechaVencimiento *time.Time

	// FirmaDocumento is the optional document signing timestamp.
	FirmaDocumento *time.Time

	// SignatureValue and SignatureCertDER carry the raw signature bytes
	// and the DER-encoded signer certificate, when embedded.
	SignatureValue   []byte
	SignatureCertDER []byte

	// Optional giro/contact strings; empty means absent.
	EmisorGiro    string
	EmisorEmail   string
	ReceptorEmail string
}

// DteL2Extras carries the level-2 fields for NewDteDataL2.
type DteL2Extras struct {
	EmisorRazonSocial   string
	ReceptorRazonSocial string
	FechaVencimiento    *time.Time
	FirmaDocumento      *time.Time
	SignatureValue      []byte
	SignatureCertDER    []byte
	EmisorGiro          string
	EmisorEmail         string
	ReceptorEmail       string
}

// NewDteDataL2 validates and builds a level-2 record on top of an
// existing level-1 record.
func NewDteDataL2(l1 DteDataL1, extras DteL2Extras) (DteDataL2, error) {
	var err error
	err = multierr.Append(err, requireCleanString("EmisorRazonSocial", extras.EmisorRazonSocial))
	err = multierr.Append(err, requireCleanString("ReceptorRazonSocial", extras.ReceptorRazonSocial))
	err = multierr.Append(err, optionalCleanString("EmisorGiro", extras.EmisorGiro))
	err = multierr.Append(err, optionalCleanString("EmisorEmail", extras.EmisorEmail))
	err = multierr.Append(err, optionalCleanString("ReceptorEmail", extras.ReceptorEmail))
	err = multierr.Append(err, optionalOfficialTime("FechaVencimiento", extras.FechaVencimiento))
	err = multierr.Append(err, optionalOfficialTime("FirmaDocumento", extras.FirmaDocumento))
	err = multierr.Append(err, optionalNonEmptyBytes("SignatureValue", extras.SignatureValue))
	err = multierr.Append(err, optionalNonEmptyBytes("SignatureCertDER", extras.SignatureCertDER))
	if err != nil {
		return DteDataL2{}, err
	}
	return DteDataL2{
		DteDataL1:           l1,
		EmisorRazonSocial:   extras.EmisorRazonSocial,
		ReceptorRazonSocial: extras.ReceptorRazonSocial,
		FechaVencimiento:    copyTime(extras.FechaVencimiento),
		FirmaDocumento:      copyTime(extras.FirmaDocumento),
		SignatureValue:      copyBytes(extras.SignatureValue),
		SignatureCertDER:    copyBytes(extras.SignatureCertDER),
		EmisorGiro:          extras.EmisorGiro,
		EmisorEmail:         extras.EmisorEmail,
		ReceptorEmail:       extras.ReceptorEmail,
	}, nil
}

// AsL1 projects the record down to level 1. Pure and total.
func (d DteDataL2) AsL1() DteDataL1 { return d.DteDataL1 }

func requireCleanString(field, value string) error {
	if value == "" {
		return NewFieldError(field, nil, "must not be empty")
	}
	if strings.TrimSpace(value) != value {
		return NewFieldError(field, value, "must not have leading or trailing whitespace")
	}
	return nil
}

func optionalCleanString(field, value string) error {
	if value == "" {
		return nil
	}
	return requireCleanString(field, value)
}

func optionalOfficialTime(field string, value *time.Time) error {
	if value == nil {
		return nil
	}
	if value.IsZero() {
		return NewFieldError(field, nil, "must not be the zero time")
	}
	if !inOfficialTZ(*value) {
		return NewFieldError(field, *value, "must carry the official timezone "+OfficialTimezoneName)
	}
	return nil
}

func optionalNonEmptyBytes(field string, value []byte) error {
	if value != nil && len(value) == 0 {
		return NewFieldError(field, nil, "must not be empty when present")
	}
	return nil
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
