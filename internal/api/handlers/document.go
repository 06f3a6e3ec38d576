package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/testloom-ai/testloom/internal/api"
	"github.com/testloom-ai/testloom/internal/api/middleware"
	"github.com/testloom-ai/testloom/internal/domain"
)

// multipartMemoryLimit caps how much of a multipart upload is buffered in
// memory before spilling to disk.
const multipartMemoryLimit = 8 << 20

type DocumentService interface {
	UploadDocument(ctx context.Context, sessionID, filename, contentType string, data []byte) (*domain.Document, error)
	SetHTMLPage(ctx context.Context, sessionID, filename string, data []byte) (int, error)
}

type SessionReader interface {
	Documents(sessionID string) []*domain.Document
	HTML(sessionID string) (string, bool)
}

type DocumentHandler struct {
	svc      DocumentService
	sessions SessionReader
}

func NewDocumentHandler(svc DocumentService, sessions SessionReader) *DocumentHandler {
	return &DocumentHandler{svc: svc, sessions: sessions}
}

type DocumentResponse struct {
	SourceID string `json:"source_id"`
	Type     string `json:"type"`
	Chars    int    `json:"chars"`
}

type HTMLUploadResponse struct {
	Chars int `json:"chars"`
}

type HTMLTextRequest struct {
	HTML string `json:"html"`
}

type HTMLResponse struct {
	HTML string `json:"html"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		SourceID: d.SourceID,
		Type:     string(d.Type),
		Chars:    len([]rune(d.Text)),
	}
}

// Upload handles POST /documents with a multipart "file" field.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	filename, data, ct, ok := readMultipartFile(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.UploadDocument(r.Context(), sessionID, filename, ct, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, documentToResponse(doc))
}

// List handles GET /documents.
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	docs := h.sessions.Documents(sessionID)
	out := make([]*DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentToResponse(d))
	}

	api.Success(w, http.StatusOK, out)
}

// UploadHTML handles POST /html with a multipart "file" field.
func (h *DocumentHandler) UploadHTML(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	filename, data, _, ok := readMultipartFile(w, r)
	if !ok {
		return
	}

	chars, err := h.svc.SetHTMLPage(r.Context(), sessionID, filename, data)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, HTMLUploadResponse{Chars: chars})
}

// UploadHTMLText handles POST /html/text with a JSON body.
func (h *DocumentHandler) UploadHTMLText(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var req HTMLTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.HTML == "" {
		api.Error(w, http.StatusBadRequest, "html is required")
		return
	}

	chars, err := h.svc.SetHTMLPage(r.Context(), sessionID, "", []byte(req.HTML))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, HTMLUploadResponse{Chars: chars})
}

// GetHTML handles GET /html.
func (h *DocumentHandler) GetHTML(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	html, ok := h.sessions.HTML(sessionID)
	if !ok {
		api.HandleError(w, domain.ErrHTMLNotFound)
		return
	}

	api.Success(w, http.StatusOK, HTMLResponse{HTML: html})
}

func readMultipartFile(w http.ResponseWriter, r *http.Request) (filename string, data []byte, contentType string, ok bool) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid multipart form")
		return "", nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.Error(w, http.StatusBadRequest, "file field is required")
		return "", nil, "", false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "failed to read uploaded file")
		return "", nil, "", false
	}

	return header.Filename, data, header.Header.Get("Content-Type"), true
}
