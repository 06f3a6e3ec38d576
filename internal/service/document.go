package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/testloom-ai/testloom/internal/domain"
	"github.com/testloom-ai/testloom/internal/extract"
	"github.com/testloom-ai/testloom/internal/telemetry"
)

// HTMLSourceID is the source id under which the session's target page enters
// the knowledge base.
const HTMLSourceID = "target_page.html"

// RawArchiver stores the original uploaded bytes before extraction.
type RawArchiver interface {
	Archive(ctx context.Context, key, contentType string, data []byte) error
}

// DocumentService handles uploads: it archives the raw bytes, extracts plain
// text and stores the result in the session. The archiver is optional;
// archive failures are logged and never fail the upload.
type DocumentService struct {
	sessions *SessionStore
	archiver RawArchiver
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(sessions *SessionStore, archiver RawArchiver) *DocumentService {
	return &DocumentService{
		sessions: sessions,
		archiver: archiver,
	}
}

// UploadDocument extracts text from an uploaded support document and stores
// it in the session under its filename. A file no extractor can read is an
// EXTRACTION_FAILURE listing every attempt.
func (s *DocumentService) UploadDocument(ctx context.Context, sessionID, filename, contentType string, data []byte) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.upload", telemetry.SpanAttributes{
		SessionID: sessionID,
		SourceID:  filename,
		Operation: "upload_document",
	})
	defer span.End()

	if strings.TrimSpace(filename) == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}

	s.archiveRaw(ctx, sessionID, filename, contentType, data)

	text, _, err := extract.Text(filename, data)
	if err != nil {
		derr := domain.NewDomainErrorWithCause(domain.ErrCodeExtractionFailure,
			fmt.Sprintf("failed to extract text from %s", filename), err)
		span.SetError(derr)
		return nil, derr
	}

	doc := &domain.Document{
		SourceID: filename,
		Type:     domain.DocumentTypeSupportDoc,
		Text:     text,
		Tags:     map[string]string{"extension": strings.ToLower(filepath.Ext(filename))},
	}
	s.sessions.PutDocument(sessionID, doc)
	return doc, nil
}

// SetHTMLPage stores the session's target HTML page and returns the length
// of its visible text.
func (s *DocumentService) SetHTMLPage(ctx context.Context, sessionID, filename string, data []byte) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.document.set_html", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "set_html",
	})
	defer span.End()

	if len(data) == 0 {
		return 0, domain.NewDomainError(domain.ErrCodeValidation, "html content is required")
	}

	if filename == "" {
		filename = HTMLSourceID
	}
	s.archiveRaw(ctx, sessionID, filename, "text/html", data)

	text, _, err := extract.Text(HTMLSourceID, data)
	if err != nil {
		derr := domain.NewDomainErrorWithCause(domain.ErrCodeExtractionFailure, "failed to extract html text", err)
		span.SetError(derr)
		return 0, derr
	}

	s.sessions.SetHTML(sessionID, string(data))
	return len([]rune(text)), nil
}

// Corpus returns everything ingestable for the session: the uploaded support
// documents in upload order, plus the target page's visible text when a page
// is stored.
func (s *DocumentService) Corpus(sessionID string) []*domain.Document {
	docs := s.sessions.Documents(sessionID)

	if page, ok := s.sessions.HTML(sessionID); ok {
		text, _, err := extract.Text(HTMLSourceID, []byte(page))
		if err == nil {
			docs = append(docs, &domain.Document{
				SourceID: HTMLSourceID,
				Type:     domain.DocumentTypeHTML,
				Text:     text,
			})
		} else {
			log.Printf("document: skipping stored html page for session %s: %v", sessionID, err)
		}
	}
	return docs
}

func (s *DocumentService) archiveRaw(ctx context.Context, sessionID, filename, contentType string, data []byte) {
	if s.archiver == nil {
		return
	}
	key := fmt.Sprintf("uploads/%s/%s", sessionID, filename)
	if err := s.archiver.Archive(ctx, key, contentType, data); err != nil {
		log.Printf("document: failed to archive %s: %v", key, err)
	}
}
