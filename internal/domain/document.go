package domain

import "strings"

// DocumentType represents the kind of content a document carries
type DocumentType string

const (
	DocumentTypeSupportDoc DocumentType = "support_doc"
	DocumentTypeHTML       DocumentType = "html"
)

// IsValid checks if the document type is valid
func (t DocumentType) IsValid() bool {
	switch t {
	case DocumentTypeSupportDoc, DocumentTypeHTML:
		return true
	}
	return false
}

// Document is a unit of extracted text queued for knowledge base ingestion.
// SourceID is the caller-facing name (usually the uploaded filename) and is
// the identity used for idempotent re-ingestion.
type Document struct {
	SourceID string            `json:"source_id"`
	Type     DocumentType      `json:"type"`
	Text     string            `json:"text"`
	Tags     map[string]string `json:"tags,omitempty"`
}

// ValidateDocument validates a document before ingestion
func ValidateDocument(d *Document) error {
	if d == nil {
		return NewDomainError(ErrCodeValidation, "document is required")
	}
	if strings.TrimSpace(d.SourceID) == "" {
		return NewDomainError(ErrCodeValidation, "source_id is required")
	}
	if !d.Type.IsValid() {
		return ErrInvalidDocumentType
	}
	return nil
}
