package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// pdfExtractor pulls the text layer out of a PDF. Scanned PDFs without a
// text layer come back empty, which is reported as a failure rather than
// silently ingesting nothing.
type pdfExtractor struct{}

func (pdfExtractor) Name() string { return "pdf" }

func (pdfExtractor) Extract(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	if buf.Len() == 0 {
		return "", fmt.Errorf("pdf has no extractable text layer")
	}
	return buf.String(), nil
}
