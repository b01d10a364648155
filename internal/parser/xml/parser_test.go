package xml_test

import (
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cordada/lib-cl-sii-go/internal/model"
	xmlparser "github.com/cordada/lib-cl-sii-go/internal/parser/xml"
)

func parseDoc(t *testing.T, src string) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(src))
	return doc
}

const fullDTE = `<DTE xmlns="http://www.sii.cl/SiiDte" version="1.0">
  <Documento ID="MiPE76354771-13419">
    <Encabezado>
      <IdDoc>
        <TipoDTE>33</TipoDTE>
        <Folio>170</Folio>
        <FchEmis>2019-04-01</FchEmis>
        <FchVenc>2019-05-01</FchVenc>
      </IdDoc>
      <Emisor>
        <RUTEmisor>76354771-K</RUTEmisor>
        <RznSoc>INGENIERIA ENACON SPA</RznSoc>
        <GiroEmis>Ingenieria y Construccion</GiroEmis>
        <CorreoEmisor>enaconltda@gmail.com</CorreoEmisor>
      </Emisor>
      <Receptor>
        <RUTRecep>96790240-3</RUTRecep>
        <RznSocRecep>MINERA LOS PELAMBRES</RznSocRecep>
        <CorreoRecep>fctcpagos@pelambres.cl</CorreoRecep>
      </Receptor>
      <Totales>
        <MntTotal>2996301</MntTotal>
      </Totales>
    </Encabezado>
    <TmstFirma>2019-04-01T10:22:32</TmstFirma>
  </Documento>
  <Signature>
    <SignatureValue>
      aGVsbG8g
      d29ybGQ=
    </SignatureValue>
    <KeyInfo><X509Data><X509Certificate>MIIB</X509Certificate></X509Data></KeyInfo>
  </Signature>
</DTE>`

func TestDetectFamily(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want xmlparser.Family
	}{
		{name: "DTE", src: `<DTE xmlns="http://www.sii.cl/SiiDte"/>`, want: xmlparser.FamilyDTE},
		{name: "AEC", src: `<AEC xmlns="http://www.sii.cl/SiiDte"/>`, want: xmlparser.FamilyAEC},
		{name: "wrong namespace", src: `<DTE xmlns="http://example.com"/>`, want: xmlparser.FamilyUnknown},
		{name: "other root", src: `<EnvioDTE xmlns="http://www.sii.cl/SiiDte"/>`, want: xmlparser.FamilyUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, xmlparser.DetectFamily(parseDoc(t, tt.src)))
		})
	}
}

func TestDTEExtractor_Extract(t *testing.T) {
	extractor := xmlparser.NewDTEExtractor()
	doc := parseDoc(t, fullDTE)
	require.True(t, extractor.CanExtract(doc))

	l2, err := extractor.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "76354771-K", l2.Emisor.String())
	assert.Equal(t, model.TipoDTEFacturaElectronica, l2.Tipo)
	assert.Equal(t, int64(170), l2.Folio)
	assert.Equal(t, "96790240-3", l2.Receptor.String())
	assert.True(t, l2.MontoTotal.Equal(decimal.NewFromInt(2996301)))
	assert.Equal(t, "INGENIERIA ENACON SPA", l2.EmisorRazonSocial)
	assert.Equal(t, "MINERA LOS PELAMBRES", l2.ReceptorRazonSocial)
	assert.Equal(t, "Ingenieria y Construccion", l2.EmisorGiro)
	assert.Equal(t, "enaconltda@gmail.com", l2.EmisorEmail)
	assert.Equal(t, "fctcpagos@pelambres.cl", l2.ReceptorEmail)

	expectedEmis := time.Date(2019, time.April, 1, 0, 0, 0, 0, model.OfficialTZ())
	assert.True(t, l2.FechaEmision.Equal(expectedEmis))

	require.NotNil(t, l2.FechaVencimiento)
	assert.True(t, l2.FechaVencimiento.Equal(time.Date(2019, time.May, 1, 0, 0, 0, 0, model.OfficialTZ())))

	require.NotNil(t, l2.FirmaDocumento)
	assert.Equal(t, "America/Santiago", l2.FirmaDocumento.Location().String())

	// Base64 with embedded whitespace decodes fine.
	assert.Equal(t, []byte("hello world"), l2.SignatureValue)
	assert.NotEmpty(t, l2.SignatureCertDER)

	assert.Equal(t, "76354771-K--33--170", l2.Slug())
}

func TestDTEExtractor_Idempotent(t *testing.T) {
	extractor := xmlparser.NewDTEExtractor()

	first, err := extractor.Extract(parseDoc(t, fullDTE))
	require.NoError(t, err)
	second, err := extractor.Extract(parseDoc(t, fullDTE))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDTEExtractor_OptionalFieldsAbsent(t *testing.T) {
	src := `<DTE xmlns="http://www.sii.cl/SiiDte">
  <Documento>
    <Encabezado>
      <IdDoc><TipoDTE>61</TipoDTE><Folio>9</Folio><FchEmis>2019-04-01</FchEmis></IdDoc>
      <Emisor><RUTEmisor>76354771-K</RUTEmisor><RznSoc>A</RznSoc></Emisor>
      <Receptor><RUTRecep>96790240-3</RUTRecep><RznSocRecep>B</RznSocRecep></Receptor>
      <Totales><MntTotal>100</MntTotal></Totales>
    </Encabezado>
  </Documento>
</DTE>`

	l2, err := xmlparser.NewDTEExtractor().Extract(parseDoc(t, src))
	require.NoError(t, err)

	assert.Nil(t, l2.FechaVencimiento)
	assert.Nil(t, l2.FirmaDocumento)
	assert.Nil(t, l2.SignatureValue)
	assert.Nil(t, l2.SignatureCertDER)
	assert.Empty(t, l2.EmisorGiro)
	assert.Empty(t, l2.EmisorEmail)
	assert.Empty(t, l2.ReceptorEmail)
}

func TestDTEExtractor_UnsupportedShapes(t *testing.T) {
	for _, shape := range []string{"Liquidacion", "Exportaciones"} {
		t.Run(shape, func(t *testing.T) {
			src := `<DTE xmlns="http://www.sii.cl/SiiDte"><` + shape + `><Algo/></` + shape + `></DTE>`
			_, err := xmlparser.NewDTEExtractor().Extract(parseDoc(t, src))
			require.Error(t, err)

			var notImpl *xmlparser.NotImplementedError
			require.ErrorAs(t, err, &notImpl)
			assert.Equal(t, shape, notImpl.Shape)
		})
	}
}

func TestDTEExtractor_ErrorTaxonomy(t *testing.T) {
	base := func(idDoc string) string {
		return `<DTE xmlns="http://www.sii.cl/SiiDte"><Documento><Encabezado>
  <IdDoc>` + idDoc + `</IdDoc>
  <Emisor><RUTEmisor>76354771-K</RUTEmisor><RznSoc>A</RznSoc></Emisor>
  <Receptor><RUTRecep>96790240-3</RUTRecep><RznSocRecep>B</RznSocRecep></Receptor>
  <Totales><MntTotal>100</MntTotal></Totales>
</Encabezado></Documento></DTE>`
	}

	t.Run("missing required folio", func(t *testing.T) {
		src := base(`<TipoDTE>33</TipoDTE><FchEmis>2019-04-01</FchEmis>`)
		_, err := xmlparser.NewDTEExtractor().Extract(parseDoc(t, src))
		var missing *xmlparser.MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Contains(t, missing.Path, "Folio")
	})

	t.Run("empty required element", func(t *testing.T) {
		src := base(`<TipoDTE>33</TipoDTE><Folio>  </Folio><FchEmis>2019-04-01</FchEmis>`)
		_, err := xmlparser.NewDTEExtractor().Extract(parseDoc(t, src))
		var missing *xmlparser.MissingFieldError
		require.ErrorAs(t, err, &missing)
	})

	t.Run("unknown tipo code", func(t *testing.T) {
		src := base(`<TipoDTE>35</TipoDTE><Folio>1</Folio><FchEmis>2019-04-01</FchEmis>`)
		_, err := xmlparser.NewDTEExtractor().Extract(parseDoc(t, src))
		var unknown *model.UnknownCodeError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, 35, unknown.Code)
	})

	t.Run("non-integer folio", func(t *testing.T) {
		src := base(`<TipoDTE>33</TipoDTE><Folio>1.5</Folio><FchEmis>2019-04-01</FchEmis>`)
		_, err := xmlparser.NewDTEExtractor().Extract(parseDoc(t, src))
		var decodeErr *xmlparser.DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})

	t.Run("malformed date", func(t *testing.T) {
		src := base(`<TipoDTE>33</TipoDTE><Folio>1</Folio><FchEmis>01/04/2019</FchEmis>`)
		_, err := xmlparser.NewDTEExtractor().Extract(parseDoc(t, src))
		var decodeErr *xmlparser.DecodeError
		require.ErrorAs(t, err, &decodeErr)
	})
}

func TestDTEExtractor_BadBase64(t *testing.T) {
	src := `<DTE xmlns="http://www.sii.cl/SiiDte">
  <Documento>
    <Encabezado>
      <IdDoc><TipoDTE>33</TipoDTE><Folio>1</Folio><FchEmis>2019-04-01</FchEmis></IdDoc>
      <Emisor><RUTEmisor>76354771-K</RUTEmisor><RznSoc>A</RznSoc></Emisor>
      <Receptor><RUTRecep>96790240-3</RUTRecep><RznSocRecep>B</RznSocRecep></Receptor>
      <Totales><MntTotal>100</MntTotal></Totales>
    </Encabezado>
  </Documento>
  <Signature><SignatureValue>not!base64</SignatureValue></Signature>
</DTE>`

	_, err := xmlparser.NewDTEExtractor().Extract(parseDoc(t, src))
	require.Error(t, err)

	var decodeErr *xmlparser.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Contains(t, decodeErr.Message, "base64")
}

const fullAEC = `<AEC xmlns="http://www.sii.cl/SiiDte">
  <DocumentoAEC>
    <Caratula>
      <RutCedente>76389992-6</RutCedente>
      <RutCesionario>76598556-0</RutCesionario>
      <NmbContacto>ST CAPITAL</NmbContacto>
      <MailContacto>APrat@Financiaenlinea.com</MailContacto>
      <TmstFirmaEnvio>2019-04-05T12:57:32</TmstFirmaEnvio>
    </Caratula>
    <Cesiones>
      <Cesion>
        <DocumentoCesion>
          <SeqCesion>1</SeqCesion>
          <IdDTE>
            <TipoDTE>33</TipoDTE>
            <RUTEmisor>76354771-K</RUTEmisor>
            <RUTReceptor>96790240-3</RUTReceptor>
            <FchEmis>2019-04-01</FchEmis>
            <MntTotal>2996301</MntTotal>
            <Folio>170</Folio>
          </IdDTE>
          <Cedente>
            <RUT>76354771-K</RUT>
            <RazonSocial>INGENIERIA ENACON SPA</RazonSocial>
            <Direccion>MERCED 753 16 ARBOLEDA DE QUIILOTA</Direccion>
            <eMail>enaconltda@gmail.com</eMail>
            <DeclaracionJurada>Se declara bajo juramento que...</DeclaracionJurada>
          </Cedente>
          <Cesionario>
            <RUT>76389992-6</RUT>
            <RazonSocial>ST CAPITAL S.A.</RazonSocial>
            <Direccion>Isidora Goyenechea 2939 Oficina 602</Direccion>
            <eMail>fynpal-app-notif-st-capital@fynpal.com</eMail>
          </Cesionario>
          <MontoCesion>2996301</MontoCesion>
          <UltimoVencimiento>2019-05-01</UltimoVencimiento>
          <TmstCesion>2019-04-05T12:50:12</TmstCesion>
        </DocumentoCesion>
      </Cesion>
      <Cesion>
        <DocumentoCesion>
          <SeqCesion>2</SeqCesion>
          <IdDTE>
            <TipoDTE>33</TipoDTE>
            <RUTEmisor>76354771-K</RUTEmisor>
            <RUTReceptor>96790240-3</RUTReceptor>
            <FchEmis>2019-04-01</FchEmis>
            <MntTotal>2996301</MntTotal>
            <Folio>170</Folio>
          </IdDTE>
          <Cedente>
            <RUT>76389992-6</RUT>
            <RazonSocial>ST CAPITAL S.A.</RazonSocial>
            <Direccion>Isidora Goyenechea 2939 Oficina 602</Direccion>
            <eMail>APrat@Financiaenlinea.com</eMail>
          </Cedente>
          <Cesionario>
            <RUT>76598556-0</RUT>
            <RazonSocial>Fondo de Inversion Privado Deuda y Facturas</RazonSocial>
            <Direccion>Arrayan 2750 Oficina 703 Providencia</Direccion>
            <eMail>solicitudes@stcapital.cl</eMail>
          </Cesionario>
          <MontoCesion>2996301</MontoCesion>
          <UltimoVencimiento>2019-05-01</UltimoVencimiento>
          <TmstCesion>2019-04-05T12:57:32</TmstCesion>
        </DocumentoCesion>
      </Cesion>
    </Cesiones>
  </DocumentoAEC>
</AEC>`

func TestAECExtractor_Extract(t *testing.T) {
	extractor := xmlparser.NewAECExtractor()
	doc := parseDoc(t, fullAEC)
	require.True(t, extractor.CanExtract(doc))

	env, err := extractor.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "76389992-6", env.Cedente.String())
	assert.Equal(t, "76598556-0", env.Cesionario.String())
	assert.Equal(t, "ST CAPITAL", env.NombreContacto)
	assert.Empty(t, env.FonoContacto)

	require.Len(t, env.Cesiones, 2)
	first, second := env.Cesiones[0], env.Cesiones[1]

	assert.Equal(t, 1, first.Seq)
	assert.Equal(t, 2, second.Seq)
	assert.Equal(t, "76354771-K--33--170", first.Dte.Slug())
	assert.Equal(t, "76354771-K--33--170--2", second.Slug())
	assert.Equal(t, "Se declara bajo juramento que...", first.DeclaracionJurada)
	assert.Empty(t, second.DeclaracionJurada)

	// The second cesión chains from the first cesionario.
	assert.True(t, first.Cesionario.Equal(second.Cedente))

	// Timestamps carry the official timezone at minute precision.
	assert.Equal(t, "America/Santiago", second.FechaCesion.Location().String())
	assert.Equal(t, 0, second.FechaCesion.Second())

	assert.Equal(t, "76354771-K--33--170--2", env.Slug())
}

func TestAECExtractor_NoCesiones(t *testing.T) {
	src := `<AEC xmlns="http://www.sii.cl/SiiDte"><DocumentoAEC>
  <Caratula>
    <RutCedente>76389992-6</RutCedente>
    <RutCesionario>76598556-0</RutCesionario>
    <TmstFirmaEnvio>2019-04-05T12:57:32</TmstFirmaEnvio>
  </Caratula>
  <Cesiones/>
</DocumentoAEC></AEC>`

	_, err := xmlparser.NewAECExtractor().Extract(parseDoc(t, src))
	require.Error(t, err)

	var missing *xmlparser.MissingFieldError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Path, "Cesion")
}
