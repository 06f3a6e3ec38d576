package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/testloom-ai/testloom/internal/api/middleware"
	"github.com/testloom-ai/testloom/internal/domain"
	"github.com/testloom-ai/testloom/internal/service"
)

type MockKnowledgeBase struct {
	mock.Mock
}

func (m *MockKnowledgeBase) Ingest(ctx context.Context, input service.IngestInput) (*service.IngestOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.IngestOutput), args.Error(1)
}

func (m *MockKnowledgeBase) Retrieve(ctx context.Context, input service.RetrieveInput) ([]*service.RetrievedChunk, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*service.RetrievedChunk), args.Error(1)
}

func (m *MockKnowledgeBase) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *MockKnowledgeBase) Count(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MockKnowledgeBase) IsBuilt(sessionID string) bool {
	args := m.Called(sessionID)
	return args.Bool(0)
}

type MockCorpusProvider struct {
	mock.Mock
}

func (m *MockCorpusProvider) Corpus(sessionID string) []*domain.Document {
	args := m.Called(sessionID)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*domain.Document)
}

func requestWithSession(method, url string, body []byte) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), middleware.SessionIDKey, "sess-1")
	return req.WithContext(ctx)
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestKnowledgeBaseHandler_Build_Success(t *testing.T) {
	mockKB := new(MockKnowledgeBase)
	mockCorpus := new(MockCorpusProvider)
	handler := NewKnowledgeBaseHandler(mockKB, mockCorpus)

	docs := []*domain.Document{
		{SourceID: "manual.txt", Type: domain.DocumentTypeSupportDoc, Text: "alpha"},
	}
	mockCorpus.On("Corpus", "sess-1").Return(docs)
	mockKB.On("Clear", mock.Anything, "sess-1").Return(nil)
	mockKB.On("Ingest", mock.Anything, service.IngestInput{SessionID: "sess-1", Documents: docs}).
		Return(&service.IngestOutput{ChunkCount: 7}, nil)

	rec := httptest.NewRecorder()
	handler.Build(rec, requestWithSession(http.MethodPost, "/knowledge-base/build", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp BuildResponse
	decodeData(t, rec, &resp)
	assert.Equal(t, 7, resp.ChunkCount)
	assert.Empty(t, resp.Errors)
	mockKB.AssertExpectations(t)
}

func TestKnowledgeBaseHandler_Build_ReportsPerDocumentErrors(t *testing.T) {
	mockKB := new(MockKnowledgeBase)
	mockCorpus := new(MockCorpusProvider)
	handler := NewKnowledgeBaseHandler(mockKB, mockCorpus)

	mockCorpus.On("Corpus", "sess-1").Return([]*domain.Document{
		{SourceID: "manual.txt", Type: domain.DocumentTypeSupportDoc, Text: "alpha"},
	})
	mockKB.On("Clear", mock.Anything, "sess-1").Return(nil)
	mockKB.On("Ingest", mock.Anything, mock.Anything).Return(&service.IngestOutput{
		ChunkCount: 3,
		Errors:     []service.IngestError{{SourceID: "bad.txt", Reason: "embedding failed"}},
	}, nil)

	rec := httptest.NewRecorder()
	handler.Build(rec, requestWithSession(http.MethodPost, "/knowledge-base/build", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp BuildResponse
	decodeData(t, rec, &resp)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "bad.txt", resp.Errors[0].SourceID)
}

func TestKnowledgeBaseHandler_Build_EmptyCorpus(t *testing.T) {
	mockKB := new(MockKnowledgeBase)
	mockCorpus := new(MockCorpusProvider)
	handler := NewKnowledgeBaseHandler(mockKB, mockCorpus)

	mockCorpus.On("Corpus", "sess-1").Return([]*domain.Document{})

	rec := httptest.NewRecorder()
	handler.Build(rec, requestWithSession(http.MethodPost, "/knowledge-base/build", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockKB.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything)
}

func TestKnowledgeBaseHandler_Build_IndexUnavailable(t *testing.T) {
	mockKB := new(MockKnowledgeBase)
	mockCorpus := new(MockCorpusProvider)
	handler := NewKnowledgeBaseHandler(mockKB, mockCorpus)

	mockCorpus.On("Corpus", "sess-1").Return([]*domain.Document{
		{SourceID: "manual.txt", Type: domain.DocumentTypeSupportDoc, Text: "alpha"},
	})
	mockKB.On("Clear", mock.Anything, "sess-1").
		Return(domain.NewDomainError(domain.ErrCodeIndexUnavailable, "index offline"))

	rec := httptest.NewRecorder()
	handler.Build(rec, requestWithSession(http.MethodPost, "/knowledge-base/build", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestKnowledgeBaseHandler_Status(t *testing.T) {
	mockKB := new(MockKnowledgeBase)
	handler := NewKnowledgeBaseHandler(mockKB, new(MockCorpusProvider))

	mockKB.On("Count", mock.Anything, "sess-1").Return(12, nil)
	mockKB.On("IsBuilt", "sess-1").Return(true)

	rec := httptest.NewRecorder()
	handler.Status(rec, requestWithSession(http.MethodGet, "/knowledge-base/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp StatusResponse
	decodeData(t, rec, &resp)
	assert.True(t, resp.Built)
	assert.Equal(t, 12, resp.ChunkCount)
}

func TestKnowledgeBaseHandler_Clear(t *testing.T) {
	mockKB := new(MockKnowledgeBase)
	handler := NewKnowledgeBaseHandler(mockKB, new(MockCorpusProvider))

	mockKB.On("Clear", mock.Anything, "sess-1").Return(nil)

	rec := httptest.NewRecorder()
	handler.Clear(rec, requestWithSession(http.MethodDelete, "/knowledge-base", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ClearResponse
	decodeData(t, rec, &resp)
	assert.True(t, resp.Cleared)
}

func TestKnowledgeBaseHandler_Search_Success(t *testing.T) {
	mockKB := new(MockKnowledgeBase)
	handler := NewKnowledgeBaseHandler(mockKB, new(MockCorpusProvider))

	results := []*service.RetrievedChunk{
		{Content: "alpha", Metadata: domain.RecordMetadata{SourceID: "manual.txt"}, Distance: 0.1},
	}
	mockKB.On("Retrieve", mock.Anything, service.RetrieveInput{
		SessionID: "sess-1",
		Query:     "login",
		NResults:  3,
	}).Return(results, nil)

	body, _ := json.Marshal(SearchRequest{Query: "login", NResults: 3})
	rec := httptest.NewRecorder()
	handler.Search(rec, requestWithSession(http.MethodPost, "/search", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp SearchResponse
	decodeData(t, rec, &resp)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "manual.txt", resp.Results[0].Metadata.SourceID)
}

func TestKnowledgeBaseHandler_Search_DefaultsNResults(t *testing.T) {
	mockKB := new(MockKnowledgeBase)
	handler := NewKnowledgeBaseHandler(mockKB, new(MockCorpusProvider))

	mockKB.On("Retrieve", mock.Anything, mock.MatchedBy(func(input service.RetrieveInput) bool {
		return input.NResults == defaultSearchResults
	})).Return([]*service.RetrievedChunk{}, nil)

	body, _ := json.Marshal(SearchRequest{Query: "login"})
	rec := httptest.NewRecorder()
	handler.Search(rec, requestWithSession(http.MethodPost, "/search", body))

	assert.Equal(t, http.StatusOK, rec.Code)
	mockKB.AssertExpectations(t)
}

func TestKnowledgeBaseHandler_Search_MissingQuery(t *testing.T) {
	mockKB := new(MockKnowledgeBase)
	handler := NewKnowledgeBaseHandler(mockKB, new(MockCorpusProvider))

	body, _ := json.Marshal(SearchRequest{})
	rec := httptest.NewRecorder()
	handler.Search(rec, requestWithSession(http.MethodPost, "/search", body))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	mockKB.AssertNotCalled(t, "Retrieve", mock.Anything, mock.Anything)
}

func TestKnowledgeBaseHandler_Search_InvalidBody(t *testing.T) {
	handler := NewKnowledgeBaseHandler(new(MockKnowledgeBase), new(MockCorpusProvider))

	rec := httptest.NewRecorder()
	handler.Search(rec, requestWithSession(http.MethodPost, "/search", []byte("{not json")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
