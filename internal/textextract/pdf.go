package textextract

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// errNoTextLayer means the PDF parsed but holds no extractable text (e.g. a scan).
var errNoTextLayer = fmt.Errorf("pdf has no text layer")

// PDFPlainText reads the text layer of a PDF in-process.
func PDFPlainText(data []byte) (text string, err error) {
	// the reader panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	if strings.TrimSpace(string(b)) == "" {
		return "", errNoTextLayer
	}
	return string(b), nil
}
