package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/testloom-ai/testloom/internal/domain"
	"github.com/testloom-ai/testloom/internal/telemetry"
)

// Embedder maps a batch of texts to fixed-length vectors.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RecordStore persists embedded chunks and answers nearest-neighbor queries.
type RecordStore interface {
	Upsert(ctx context.Context, records []domain.Record) error
	Query(ctx context.Context, sessionID string, embedding []float32, k int) ([]*RetrievedChunk, error)
	DeleteBySession(ctx context.Context, sessionID string) error
	CountBySession(ctx context.Context, sessionID string) (int, error)
}

// RetrievedChunk is one nearest-neighbor hit. Distance is cosine distance,
// lower is closer.
type RetrievedChunk struct {
	Content  string                `json:"content"`
	Metadata domain.RecordMetadata `json:"metadata"`
	Distance float32               `json:"distance"`
}

// IngestError records why one document was skipped during ingestion.
type IngestError struct {
	SourceID string `json:"source_id"`
	Reason   string `json:"reason"`
}

// IngestInput contains the data for ingesting documents into a session's
// knowledge base.
type IngestInput struct {
	SessionID string
	Documents []*domain.Document
}

// IngestOutput summarizes an ingestion run.
type IngestOutput struct {
	ChunkCount int           `json:"chunk_count"`
	Errors     []IngestError `json:"errors,omitempty"`
}

// RetrieveInput contains the parameters for a similarity search.
type RetrieveInput struct {
	SessionID string
	Query     string
	NResults  int
}

// KnowledgeBaseService manages per-session chunk ingestion and retrieval.
// Index access is serialized through a single mutex; embedding calls happen
// outside the lock so a slow provider never blocks readers of other sessions.
type KnowledgeBaseService struct {
	embedder Embedder
	store    RecordStore
	chunkCfg ChunkConfig

	mu    sync.Mutex
	built map[string]bool
}

// NewKnowledgeBaseService creates a new KnowledgeBaseService instance
func NewKnowledgeBaseService(embedder Embedder, store RecordStore, chunkCfg ChunkConfig) *KnowledgeBaseService {
	return &KnowledgeBaseService{
		embedder: embedder,
		store:    store,
		chunkCfg: chunkCfg,
		built:    make(map[string]bool),
	}
}

// Ingest chunks, embeds and indexes the given documents. Failures are
// isolated per document: a document that fails extraction-side validation,
// embedding or indexing is reported in IngestOutput.Errors and the remaining
// documents still commit. A cancelled context stops between documents;
// documents committed before the cancellation stay committed.
func (s *KnowledgeBaseService) Ingest(ctx context.Context, input IngestInput) (*IngestOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.knowledgebase.ingest", telemetry.SpanAttributes{
		SessionID: input.SessionID,
		Operation: "ingest",
	})
	defer span.End()

	if err := s.chunkCfg.Validate(); err != nil {
		span.SetError(err)
		return nil, err
	}

	out := &IngestOutput{}
	for _, doc := range input.Documents {
		if err := ctx.Err(); err != nil {
			span.SetError(err)
			return out, err
		}

		added, err := s.ingestDocument(ctx, input.SessionID, doc)
		if err != nil {
			out.Errors = append(out.Errors, IngestError{SourceID: doc.SourceID, Reason: err.Error()})
			continue
		}
		out.ChunkCount += added
	}

	if out.ChunkCount > 0 {
		s.mu.Lock()
		s.built[input.SessionID] = true
		s.mu.Unlock()
	}

	return out, nil
}

func (s *KnowledgeBaseService) ingestDocument(ctx context.Context, sessionID string, doc *domain.Document) (int, error) {
	if err := domain.ValidateDocument(doc); err != nil {
		return 0, err
	}

	// Config was validated at the top of Ingest, so this cannot fail.
	chunks, err := SplitText(doc.Text, s.chunkCfg)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	vectors, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailure,
			fmt.Sprintf("failed to embed %d chunks of %s", len(chunks), doc.SourceID), err)
	}
	if len(vectors) != len(chunks) {
		return 0, domain.NewDomainError(domain.ErrCodeEmbeddingFailure,
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)))
	}

	now := time.Now().UTC()
	records := make([]domain.Record, 0, len(chunks))
	for i, chunk := range chunks {
		records = append(records, domain.Record{
			ID:        domain.RecordID(sessionID, doc.SourceID, i),
			SessionID: sessionID,
			Content:   chunk,
			Metadata: domain.RecordMetadata{
				SourceID:     doc.SourceID,
				DocumentType: doc.Type,
				ChunkIndex:   i,
				TotalChunks:  len(chunks),
				Tags:         doc.Tags,
			},
			Embedding: vectors[i],
			CreatedAt: now,
		})
	}

	s.mu.Lock()
	err = s.store.Upsert(ctx, records)
	s.mu.Unlock()
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeIndexUnavailable,
			fmt.Sprintf("failed to index %s", doc.SourceID), err)
	}

	return len(records), nil
}

// Retrieve embeds the query and returns the n nearest chunks in the session,
// ascending by cosine distance. An empty knowledge base yields an empty slice
// and no error; embedder or index failures abort the call rather than being
// masked as empty results.
func (s *KnowledgeBaseService) Retrieve(ctx context.Context, input RetrieveInput) ([]*RetrievedChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.knowledgebase.retrieve", telemetry.SpanAttributes{
		SessionID: input.SessionID,
		Operation: "retrieve",
	})
	defer span.End()

	if input.NResults <= 0 {
		err := domain.NewDomainError(domain.ErrCodeInvalidArgument,
			fmt.Sprintf("n_results must be positive, got %d", input.NResults))
		span.SetError(err)
		return nil, err
	}

	vectors, err := s.embedder.EmbedBatch(ctx, []string{input.Query})
	if err != nil {
		derr := domain.NewDomainErrorWithCause(domain.ErrCodeEmbeddingFailure, "failed to embed query", err)
		span.SetError(derr)
		return nil, derr
	}
	if len(vectors) != 1 {
		derr := domain.NewDomainError(domain.ErrCodeEmbeddingFailure,
			fmt.Sprintf("embedder returned %d vectors for one query", len(vectors)))
		span.SetError(derr)
		return nil, derr
	}

	s.mu.Lock()
	chunks, err := s.store.Query(ctx, input.SessionID, vectors[0], input.NResults)
	s.mu.Unlock()
	if err != nil {
		derr := domain.NewDomainErrorWithCause(domain.ErrCodeIndexUnavailable, "similarity query failed", err)
		span.SetError(derr)
		return nil, derr
	}

	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Distance < chunks[j].Distance
	})

	if chunks == nil {
		chunks = []*RetrievedChunk{}
	}
	return chunks, nil
}

// Clear removes all indexed chunks for the session. Clearing a session that
// was never built is not an error.
func (s *KnowledgeBaseService) Clear(ctx context.Context, sessionID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.knowledgebase.clear", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "clear",
	})
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteBySession(ctx, sessionID); err != nil {
		derr := domain.NewDomainErrorWithCause(domain.ErrCodeIndexUnavailable,
			fmt.Sprintf("failed to clear session %s", sessionID), err)
		span.SetError(derr)
		return derr
	}
	delete(s.built, sessionID)
	return nil
}

// Count returns the number of indexed chunks for the session.
func (s *KnowledgeBaseService) Count(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.CountBySession(ctx, sessionID)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeIndexUnavailable,
			fmt.Sprintf("failed to count session %s", sessionID), err)
	}
	return n, nil
}

// IsBuilt reports whether the session has successfully ingested at least one
// document since the last Clear.
func (s *KnowledgeBaseService) IsBuilt(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.built[sessionID]
}
