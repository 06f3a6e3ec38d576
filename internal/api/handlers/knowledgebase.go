package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/testloom-ai/testloom/internal/api"
	"github.com/testloom-ai/testloom/internal/api/middleware"
	"github.com/testloom-ai/testloom/internal/domain"
	"github.com/testloom-ai/testloom/internal/service"
)

const defaultSearchResults = 5

type KnowledgeBase interface {
	Ingest(ctx context.Context, input service.IngestInput) (*service.IngestOutput, error)
	Retrieve(ctx context.Context, input service.RetrieveInput) ([]*service.RetrievedChunk, error)
	Clear(ctx context.Context, sessionID string) error
	Count(ctx context.Context, sessionID string) (int, error)
	IsBuilt(sessionID string) bool
}

type CorpusProvider interface {
	Corpus(sessionID string) []*domain.Document
}

type KnowledgeBaseHandler struct {
	kb     KnowledgeBase
	corpus CorpusProvider
}

func NewKnowledgeBaseHandler(kb KnowledgeBase, corpus CorpusProvider) *KnowledgeBaseHandler {
	return &KnowledgeBaseHandler{kb: kb, corpus: corpus}
}

type BuildResponse struct {
	ChunkCount int                   `json:"chunk_count"`
	Errors     []service.IngestError `json:"errors,omitempty"`
}

type StatusResponse struct {
	Built      bool `json:"built"`
	ChunkCount int  `json:"chunk_count"`
}

type ClearResponse struct {
	Cleared bool `json:"cleared"`
}

type SearchRequest struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results"`
}

type SearchResponse struct {
	Results []*service.RetrievedChunk `json:"results"`
}

// Build handles POST /knowledge-base/build. It rebuilds the session's index
// from everything currently uploaded: previous contents are cleared first,
// then every document plus the target page is ingested.
func (h *KnowledgeBaseHandler) Build(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	docs := h.corpus.Corpus(sessionID)
	if len(docs) == 0 {
		api.Error(w, http.StatusBadRequest, "no documents or html uploaded for this session")
		return
	}

	if err := h.kb.Clear(r.Context(), sessionID); err != nil {
		api.HandleError(w, err)
		return
	}

	out, err := h.kb.Ingest(r.Context(), service.IngestInput{
		SessionID: sessionID,
		Documents: docs,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, BuildResponse{ChunkCount: out.ChunkCount, Errors: out.Errors})
}

// Status handles GET /knowledge-base/status.
func (h *KnowledgeBaseHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	count, err := h.kb.Count(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, StatusResponse{
		Built:      h.kb.IsBuilt(sessionID),
		ChunkCount: count,
	})
}

// Clear handles DELETE /knowledge-base.
func (h *KnowledgeBaseHandler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	if err := h.kb.Clear(r.Context(), sessionID); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ClearResponse{Cleared: true})
}

// Search handles POST /search.
func (h *KnowledgeBaseHandler) Search(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.GetSessionID(r.Context())

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}
	if req.NResults == 0 {
		req.NResults = defaultSearchResults
	}

	results, err := h.kb.Retrieve(r.Context(), service.RetrieveInput{
		SessionID: sessionID,
		Query:     req.Query,
		NResults:  req.NResults,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SearchResponse{Results: results})
}
