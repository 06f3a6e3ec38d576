package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testloom-ai/testloom/internal/api/handlers"
	"github.com/testloom-ai/testloom/internal/domain"
	"github.com/testloom-ai/testloom/internal/service"
)

// stubSessionReader records which session id reached it.
type stubSessionReader struct {
	lastSessionID string
	docs          []*domain.Document
}

func (s *stubSessionReader) Documents(sessionID string) []*domain.Document {
	s.lastSessionID = sessionID
	return s.docs
}

func (s *stubSessionReader) HTML(sessionID string) (string, bool) {
	s.lastSessionID = sessionID
	return "", false
}

type stubDocumentService struct{}

func (stubDocumentService) UploadDocument(ctx context.Context, sessionID, filename, contentType string, data []byte) (*domain.Document, error) {
	return &domain.Document{SourceID: filename, Type: domain.DocumentTypeSupportDoc}, nil
}

func (stubDocumentService) SetHTMLPage(ctx context.Context, sessionID, filename string, data []byte) (int, error) {
	return len(data), nil
}

type stubKnowledgeBase struct{}

func (stubKnowledgeBase) Ingest(ctx context.Context, input service.IngestInput) (*service.IngestOutput, error) {
	return &service.IngestOutput{}, nil
}

func (stubKnowledgeBase) Retrieve(ctx context.Context, input service.RetrieveInput) ([]*service.RetrievedChunk, error) {
	return []*service.RetrievedChunk{}, nil
}

func (stubKnowledgeBase) Clear(ctx context.Context, sessionID string) error { return nil }

func (stubKnowledgeBase) Count(ctx context.Context, sessionID string) (int, error) { return 0, nil }

func (stubKnowledgeBase) IsBuilt(sessionID string) bool { return false }

type stubCorpusProvider struct{}

func (stubCorpusProvider) Corpus(sessionID string) []*domain.Document { return nil }

type stubGenerator struct{}

func (stubGenerator) GenerateTestCases(ctx context.Context, input service.GenerateTestCasesInput) (*domain.TestCaseSet, error) {
	return &domain.TestCaseSet{}, nil
}

func (stubGenerator) GenerateScript(ctx context.Context, input service.GenerateScriptInput) (string, error) {
	return "print('ok')", nil
}

func setupRouter(sessions *stubSessionReader) http.Handler {
	return NewRouter(RouterConfig{
		DocumentHandler:      handlers.NewDocumentHandler(stubDocumentService{}, sessions),
		KnowledgeBaseHandler: handlers.NewKnowledgeBaseHandler(stubKnowledgeBase{}, stubCorpusProvider{}),
		GenerateHandler:      handlers.NewGenerateHandler(stubGenerator{}),
	})
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router := setupRouter(&stubSessionReader{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_SessionHeaderReachesHandlers(t *testing.T) {
	sessions := &stubSessionReader{}
	router := setupRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	req.Header.Set("X-Session-ID", "qa-team")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "qa-team", sessions.lastSessionID)
}

func TestRouter_MissingSessionHeaderDefaults(t *testing.T) {
	sessions := &stubSessionReader{}
	router := setupRouter(sessions)

	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", sessions.lastSessionID)
}

func TestRouter_RoutesAreWired(t *testing.T) {
	router := setupRouter(&stubSessionReader{})

	searchBody, _ := json.Marshal(map[string]string{"query": "login"})
	casesBody, _ := json.Marshal(map[string]string{"query": "login"})
	scriptBody, _ := json.Marshal(map[string]interface{}{
		"test_case": map[string]string{"test_scenario": "valid login"},
	})

	routes := []struct {
		method string
		path   string
		body   []byte
		want   int
	}{
		{http.MethodGet, "/documents", nil, http.StatusOK},
		{http.MethodGet, "/html", nil, http.StatusNotFound},
		{http.MethodGet, "/knowledge-base/status", nil, http.StatusOK},
		{http.MethodDelete, "/knowledge-base", nil, http.StatusOK},
		{http.MethodPost, "/knowledge-base/build", nil, http.StatusBadRequest},
		{http.MethodPost, "/search", searchBody, http.StatusOK},
		{http.MethodPost, "/generate/test-cases", casesBody, http.StatusOK},
		{http.MethodPost, "/generate/script", scriptBody, http.StatusOK},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, bytes.NewReader(route.body))
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, route.want, w.Code)
		})
	}
}
