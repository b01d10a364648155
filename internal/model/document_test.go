package model_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordada/lib-cl-sii-go/internal/model"
	"github.com/cordada/lib-cl-sii-go/internal/rut"
)

var (
	emisorRUT   = rut.MustParse("76354771-K")
	receptorRUT = rut.MustParse("96790240-3")
)

func officialDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, model.OfficialTZ())
}

func validL1(t *testing.T) model.DteDataL1 {
	t.Helper()
	key, err := model.NewDocumentKey(emisorRUT, model.TipoDTEFacturaElectronica, 170)
	require.NoError(t, err)
	l1, err := model.NewDteDataL1(key, officialDate(2019, time.April, 1), receptorRUT, decimal.NewFromInt(2996301))
	require.NoError(t, err)
	return l1
}

func TestNewDocumentKey(t *testing.T) {
	key, err := model.NewDocumentKey(emisorRUT, model.TipoDTEFacturaElectronica, 170)
	require.NoError(t, err)
	assert.Equal(t, int64(170), key.Folio)
	assert.Equal(t, "76354771-K--33--170", key.Slug())
}

func TestNewDocumentKey_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		emisor rut.RUT
		tipo   model.TipoDTE
		folio  int64
		fields []string
	}{
		{name: "zero folio", emisor: emisorRUT, tipo: 33, folio: 0, fields: []string{"Folio"}},
		{name: "folio too big", emisor: emisorRUT, tipo: 33, folio: 1e10 + 1, fields: []string{"Folio"}},
		{name: "unknown tipo", emisor: emisorRUT, tipo: 99, folio: 1, fields: []string{"Tipo"}},
		{name: "zero emisor", emisor: rut.RUT{}, tipo: 33, folio: 1, fields: []string{"Emisor"}},
		{name: "several at once", emisor: rut.RUT{}, tipo: 99, folio: -4, fields: []string{"Emisor", "Tipo", "Folio"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.NewDocumentKey(tt.emisor, tt.tipo, tt.folio)
			require.Error(t, err)
			assert.Equal(t, tt.fields, model.InvalidFields(err))
		})
	}
}

func TestTipoDTEFromCode(t *testing.T) {
	tipo, err := model.TipoDTEFromCode(61)
	require.NoError(t, err)
	assert.Equal(t, model.TipoDTENotaCredito, tipo)

	_, err = model.TipoDTEFromCode(35)
	require.Error(t, err)

	var unknownErr *model.UnknownCodeError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, 35, unknownErr.Code)
}

func TestNewDteDataL1_NegativeAmounts(t *testing.T) {
	fecha := officialDate(2019, time.April, 1)
	negative := decimal.NewFromInt(-10000)

	// Negative total rejected for a factura.
	keyFactura, err := model.NewDocumentKey(emisorRUT, model.TipoDTEFacturaElectronica, 1)
	require.NoError(t, err)
	_, err = model.NewDteDataL1(keyFactura, fecha, receptorRUT, negative)
	require.Error(t, err)
	assert.Equal(t, []string{"MontoTotal"}, model.InvalidFields(err))

	// Negative total accepted for a liquidación-factura.
	keyLiq, err := model.NewDocumentKey(emisorRUT, model.TipoDTELiquidacionFactura, 1)
	require.NoError(t, err)
	l1, err := model.NewDteDataL1(keyLiq, fecha, receptorRUT, negative)
	require.NoError(t, err)
	assert.True(t, l1.MontoTotal.Equal(negative))
}

func TestNewDteDataL1_AmountRange(t *testing.T) {
	key, err := model.NewDocumentKey(emisorRUT, model.TipoDTEFacturaElectronica, 1)
	require.NoError(t, err)

	tooBig := model.MontoTotalMax.Add(decimal.NewFromInt(1))
	_, err = model.NewDteDataL1(key, officialDate(2019, time.April, 1), receptorRUT, tooBig)
	require.Error(t, err)
	assert.Equal(t, []string{"MontoTotal"}, model.InvalidFields(err))
}

func TestNewDteDataL1_NaiveDatetimeRejected(t *testing.T) {
	key, err := model.NewDocumentKey(emisorRUT, model.TipoDTEFacturaElectronica, 1)
	require.NoError(t, err)

	utcDate := time.Date(2019, time.April, 1, 0, 0, 0, 0, time.UTC)
	_, err = model.NewDteDataL1(key, utcDate, receptorRUT, decimal.NewFromInt(100))
	require.Error(t, err)
	assert.Equal(t, []string{"FechaEmision"}, model.InvalidFields(err))
}

func TestNewDteDataL2(t *testing.T) {
	l1 := validL1(t)
	venc := officialDate(2019, time.May, 1)

	l2, err := model.NewDteDataL2(l1, model.DteL2Extras{
		EmisorRazonSocial:   "INGENIERIA ENACON SPA",
		ReceptorRazonSocial: "MINERA LOS PELAMBRES",
		FechaVencimiento:    &venc,
		SignatureValue:      []byte{0x01, 0x02},
		SignatureCertDER:    []byte{0x30, 0x82},
		EmisorGiro:          "Ingeniería y construcción",
	})
	require.NoError(t, err)
	assert.Equal(t, "INGENIERIA ENACON SPA", l2.EmisorRazonSocial)
	require.NotNil(t, l2.FechaVencimiento)
	assert.True(t, l2.FechaVencimiento.Equal(venc))
}

func TestNewDteDataL2_Invalid(t *testing.T) {
	l1 := validL1(t)
	naive := time.Date(2019, time.May, 1, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		extras model.DteL2Extras
		fields []string
	}{
		{
			name:   "empty names",
			extras: model.DteL2Extras{},
			fields: []string{"EmisorRazonSocial", "ReceptorRazonSocial"},
		},
		{
			name: "whitespace around name",
			extras: model.DteL2Extras{
				EmisorRazonSocial:   " padded ",
				ReceptorRazonSocial: "ok",
			},
			fields: []string{"EmisorRazonSocial"},
		},
		{
			name: "naive due date",
			extras: model.DteL2Extras{
				EmisorRazonSocial:   "a",
				ReceptorRazonSocial: "b",
				FechaVencimiento:    &naive,
			},
			fields: []string{"FechaVencimiento"},
		},
		{
			name: "present but empty signature bytes",
			extras: model.DteL2Extras{
				EmisorRazonSocial:   "a",
				ReceptorRazonSocial: "b",
				SignatureValue:      []byte{},
			},
			fields: []string{"SignatureValue"},
		},
		{
			name: "whitespace in optional giro",
			extras: model.DteL2Extras{
				EmisorRazonSocial:   "a",
				ReceptorRazonSocial: "b",
				EmisorGiro:          "giro\n",
			},
			fields: []string{"EmisorGiro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := model.NewDteDataL2(l1, tt.extras)
			require.Error(t, err)
			assert.Equal(t, tt.fields, model.InvalidFields(err))
		})
	}
}

func TestProjections_Idempotent(t *testing.T) {
	l1 := validL1(t)
	l2, err := model.NewDteDataL2(l1, model.DteL2Extras{
		EmisorRazonSocial:   "A",
		ReceptorRazonSocial: "B",
	})
	require.NoError(t, err)

	projected := l2.AsL1().AsL0()
	direct, err := model.NewDteDataL0(emisorRUT, model.TipoDTEFacturaElectronica, 170)
	require.NoError(t, err)

	assert.Equal(t, direct, projected)
	assert.Equal(t, l1, l2.AsL1())
	assert.Equal(t, direct.Slug(), projected.Slug())
}

func TestDteDataL2_Immutable(t *testing.T) {
	l1 := validL1(t)
	sig := []byte{0xAA, 0xBB}
	l2, err := model.NewDteDataL2(l1, model.DteL2Extras{
		EmisorRazonSocial:   "A",
		ReceptorRazonSocial: "B",
		SignatureValue:      sig,
	})
	require.NoError(t, err)

	// Mutating the caller's slice must not reach the record.
	sig[0] = 0x00
	assert.Equal(t, []byte{0xAA, 0xBB}, l2.SignatureValue)
}
