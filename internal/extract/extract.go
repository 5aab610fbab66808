// Package extract turns raw uploaded document bytes into plain UTF-8 text.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"edurag/internal/models"
	"edurag/internal/util"

	"github.com/ledongthuc/pdf"
)

// Extract returns the plain text of data interpreted as format. Unsupported
// formats are rejected before any parsing is attempted.
func Extract(data []byte, format models.DocumentFormat) (string, error) {
	if !format.Supported() {
		return "", &util.ExtractionError{Format: string(format), Err: fmt.Errorf("%w: %q", util.ErrUnsupportedFormat, format)}
	}
	if len(data) == 0 {
		return "", &util.ExtractionError{Format: string(format), Err: util.ErrEmptyInput}
	}

	var (
		text string
		err  error
	)
	switch format {
	case models.FormatPDF:
		text, err = extractPDF(data)
	case models.FormatDOCX:
		text, err = extractDOCX(data)
	}
	if err != nil {
		return "", &util.ExtractionError{Format: string(format), Err: err}
	}
	text = util.SanitizeText(text)
	if text == "" {
		return "", &util.ExtractionError{Format: string(format), Err: util.ErrNoExtractableText}
	}
	return text, nil
}

// FormatFromFilename maps a file extension to a document format. The
// returned format may be unsupported; callers check Supported.
func FormatFromFilename(name string) models.DocumentFormat {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return models.DocumentFormat(ext)
}

func extractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("corrupt pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
