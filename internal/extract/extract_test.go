package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"edurag/internal/models"
	"edurag/internal/util"

	"github.com/stretchr/testify/require"
)

func buildDOCX(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(documentXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

const sampleDocumentXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>La fotosíntesis</w:t></w:r><w:r><w:t xml:space="preserve"> ocurre en los cloroplastos.</w:t></w:r></w:p>
    <w:p></w:p>
    <w:p><w:r><w:t>Requiere luz</w:t><w:tab/><w:t>y agua.</w:t></w:r></w:p>
  </w:body>
</w:document>`

func TestExtractDOCX(t *testing.T) {
	text, err := Extract(buildDOCX(t, sampleDocumentXML), models.FormatDOCX)
	require.NoError(t, err)
	require.Equal(t, "La fotosíntesis ocurre en los cloroplastos.\n\nRequiere luz y agua.", text)
}

func TestExtractDOCXWithoutText(t *testing.T) {
	empty := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p/></w:body></w:document>`
	_, err := Extract(buildDOCX(t, empty), models.FormatDOCX)
	require.True(t, util.IsExtractionError(err))
	require.True(t, errors.Is(err, util.ErrNoExtractableText))
}

func TestExtractRejectsUnsupportedFormatFirst(t *testing.T) {
	_, err := Extract(nil, models.DocumentFormat("txt"))
	require.True(t, errors.Is(err, util.ErrUnsupportedFormat))
}

func TestExtractEmptyAndCorruptInput(t *testing.T) {
	_, err := Extract(nil, models.FormatPDF)
	require.True(t, errors.Is(err, util.ErrEmptyInput))

	_, err = Extract([]byte("definitely not a pdf"), models.FormatPDF)
	require.True(t, util.IsExtractionError(err))

	_, err = Extract([]byte("not a zip archive"), models.FormatDOCX)
	require.True(t, util.IsExtractionError(err))
}

func TestFormatFromFilename(t *testing.T) {
	require.Equal(t, models.FormatPDF, FormatFromFilename("Apuntes.PDF"))
	require.Equal(t, models.FormatDOCX, FormatFromFilename("tema-1.docx"))
	require.False(t, FormatFromFilename("notes.txt").Supported())
}
