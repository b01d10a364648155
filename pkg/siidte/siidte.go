// Package siidte is the public API for validating SII electronic tax
// documents (DTE) and credit-assignment envelopes (AEC cesión chains).
//
// The pipeline takes untrusted XML bytes and produces a validated, typed
// record or a precise error:
//
//	proc := siidte.NewProcessor(siidte.DefaultOptions())
//	dte, err := proc.ParseDTE(ctx, data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(dte.Slug())
package siidte

import (
	"github.com/cordada/lib-cl-sii-go/internal/chain"
	"github.com/cordada/lib-cl-sii-go/internal/model"
	xmlparser "github.com/cordada/lib-cl-sii-go/internal/parser/xml"
	"github.com/cordada/lib-cl-sii-go/internal/rut"
	"github.com/cordada/lib-cl-sii-go/internal/schema"
	"github.com/cordada/lib-cl-sii-go/internal/signature"
	"github.com/cordada/lib-cl-sii-go/internal/xmlsafe"
)

// Re-export core types for the public API.
type (
	RUT         = rut.RUT
	TipoDTE     = model.TipoDTE
	DocumentKey = model.DocumentKey
	DteDataL0   = model.DteDataL0
	DteDataL1   = model.DteDataL1
	DteDataL2   = model.DteDataL2
	CesionData  = model.CesionData
	AecEnvelope = model.AecEnvelope

	Verdict        = signature.Verdict
	SignatureState = signature.Status
)

// Re-export document type codes.
const (
	TipoDTEFacturaElectronica       = model.TipoDTEFacturaElectronica
	TipoDTEFacturaNoAfectaOExenta   = model.TipoDTEFacturaNoAfectaOExenta
	TipoDTELiquidacionFactura       = model.TipoDTELiquidacionFactura
	TipoDTEFacturaCompraElectronica = model.TipoDTEFacturaCompraElectronica
	TipoDTEGuiaDespacho             = model.TipoDTEGuiaDespacho
	TipoDTENotaDebito               = model.TipoDTENotaDebito
	TipoDTENotaCredito              = model.TipoDTENotaCredito
)

// Re-export signature verdict states.
const (
	SignatureVerified      = signature.Verified
	SignatureUnverified    = signature.Unverified
	SignatureIndeterminate = signature.Indeterminate
)

// Re-export error types callers are expected to match with errors.As.
type (
	RUTFormatError   = rut.FormatError
	RUTChecksumError = rut.ChecksumError

	XMLSyntaxError        = xmlsafe.SyntaxError
	ForbiddenFeatureError = xmlsafe.ForbiddenFeatureError
	UnknownParsingError   = xmlsafe.UnknownParsingError

	MissingFieldError   = xmlparser.MissingFieldError
	DecodeError         = xmlparser.DecodeError
	NotImplementedError = xmlparser.NotImplementedError
	UnknownFamilyError  = xmlparser.UnknownFamilyError

	FieldError            = model.FieldError
	UnknownCodeError      = model.UnknownCodeError
	SchemaValidationError = schema.ValidationError

	ChainValidationError = chain.ValidationError
)

// ParseRUT parses and canonicalizes a RUT string.
func ParseRUT(raw string) (RUT, error) { return rut.Parse(raw) }

// RUTChecksum computes the check character for a RUT digit sequence.
func RUTChecksum(digits string) (byte, error) { return rut.Checksum(digits) }
