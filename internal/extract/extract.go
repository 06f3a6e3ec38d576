// Package extract turns uploaded files into plain text suitable for
// chunking. Extractors are tried in order and the first success wins; every
// failed attempt is kept so callers can report why a file was unreadable.
package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// Extractor converts raw file bytes into plain text.
type Extractor interface {
	Name() string
	Extract(data []byte) (string, error)
}

// Attempt records the outcome of one extractor in a chain run.
type Attempt struct {
	Extractor string
	Err       error
}

// ChainError reports that every extractor in the chain failed.
type ChainError struct {
	Filename string
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Extractor, a.Err))
	}
	return fmt.Sprintf("no extractor could read %s (%s)", e.Filename, strings.Join(parts, "; "))
}

// Text extracts plain text from an uploaded file. The extractor order is
// sniffed from the filename extension, with plain text as the final fallback
// for everything except PDFs.
func Text(filename string, data []byte) (string, []Attempt, error) {
	chain := chainFor(filename)

	attempts := make([]Attempt, 0, len(chain))
	for _, ex := range chain {
		text, err := ex.Extract(data)
		if err != nil {
			attempts = append(attempts, Attempt{Extractor: ex.Name(), Err: err})
			continue
		}
		return text, attempts, nil
	}
	return "", attempts, &ChainError{Filename: filename, Attempts: attempts}
}

func chainFor(filename string) []Extractor {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".html", ".htm":
		return []Extractor{htmlExtractor{}, plainExtractor{}}
	case ".json":
		return []Extractor{jsonExtractor{}, plainExtractor{}}
	case ".pdf":
		return []Extractor{pdfExtractor{}}
	default:
		return []Extractor{plainExtractor{}}
	}
}

// plainExtractor decodes bytes as best-effort UTF-8, dropping invalid
// sequences. It never fails.
type plainExtractor struct{}

func (plainExtractor) Name() string { return "plain" }

func (plainExtractor) Extract(data []byte) (string, error) {
	return string(bytes.ToValidUTF8(data, nil)), nil
}

// jsonExtractor re-indents JSON documents so field names survive chunking as
// readable text. Invalid JSON falls through to the next extractor.
type jsonExtractor struct{}

func (jsonExtractor) Name() string { return "json" }

func (jsonExtractor) Extract(data []byte) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return "", fmt.Errorf("invalid json: %w", err)
	}
	return buf.String(), nil
}
