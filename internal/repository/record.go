// Package repository persists embedded chunk records in Postgres with
// pgvector and answers cosine-distance nearest-neighbor queries.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/testloom-ai/testloom/internal/domain"
	"github.com/testloom-ai/testloom/internal/service"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RecordRepository stores chunk records in the kb_records table.
type RecordRepository struct {
	db dbtx
}

func NewRecordRepository(pool *pgxpool.Pool) *RecordRepository {
	return &RecordRepository{db: pool}
}

func NewRecordRepositoryWithTx(tx pgx.Tx) *RecordRepository {
	return &RecordRepository{db: tx}
}

// Upsert inserts records, overwriting any existing record with the same id.
// Record ids are deterministic per (session, source, chunk index), so
// re-ingesting a document replaces its old chunks instead of duplicating
// them, and sessions never touch each other's rows.
func (r *RecordRepository) Upsert(ctx context.Context, records []domain.Record) error {
	for _, rec := range records {
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}

		var tags []byte
		if rec.Metadata.Tags != nil {
			encoded, err := json.Marshal(rec.Metadata.Tags)
			if err != nil {
				return err
			}
			tags = encoded
		}

		_, err := r.db.Exec(ctx,
			`INSERT INTO kb_records
				(id, session_id, source_id, document_type, chunk_index, total_chunks, content, tags, embedding, created_at, updated_at)
			 VALUES
				($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
			 ON CONFLICT (id) DO UPDATE SET
				source_id = EXCLUDED.source_id,
				document_type = EXCLUDED.document_type,
				chunk_index = EXCLUDED.chunk_index,
				total_chunks = EXCLUDED.total_chunks,
				content = EXCLUDED.content,
				tags = EXCLUDED.tags,
				embedding = EXCLUDED.embedding,
				updated_at = EXCLUDED.updated_at`,
			rec.ID,
			rec.SessionID,
			rec.Metadata.SourceID,
			string(rec.Metadata.DocumentType),
			rec.Metadata.ChunkIndex,
			rec.Metadata.TotalChunks,
			rec.Content,
			tags,
			pgvector.NewVector(rec.Embedding),
			createdAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Query returns the k records nearest to the embedding within the session,
// ascending by cosine distance. k larger than the stored count returns
// everything.
func (r *RecordRepository) Query(ctx context.Context, sessionID string, embedding []float32, k int) ([]*service.RetrievedChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT content, source_id, document_type, chunk_index, total_chunks, tags,
		        embedding <=> $1 AS distance
		 FROM kb_records
		 WHERE session_id = $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`,
		pgvector.NewVector(embedding), sessionID, k,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*service.RetrievedChunk, 0, k)
	for rows.Next() {
		var chunk service.RetrievedChunk
		var documentType string
		var tags []byte
		var distance float64
		if err := rows.Scan(
			&chunk.Content,
			&chunk.Metadata.SourceID,
			&documentType,
			&chunk.Metadata.ChunkIndex,
			&chunk.Metadata.TotalChunks,
			&tags,
			&distance,
		); err != nil {
			return nil, err
		}
		chunk.Distance = float32(distance)
		chunk.Metadata.DocumentType = domain.DocumentType(documentType)
		if len(tags) > 0 {
			if err := json.Unmarshal(tags, &chunk.Metadata.Tags); err != nil {
				return nil, err
			}
		}
		results = append(results, &chunk)
	}

	return results, rows.Err()
}

// DeleteBySession removes every record belonging to the session.
func (r *RecordRepository) DeleteBySession(ctx context.Context, sessionID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM kb_records WHERE session_id = $1`, sessionID)
	return err
}

// CountBySession returns how many records the session has.
func (r *RecordRepository) CountBySession(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM kb_records WHERE session_id = $1`,
		sessionID,
	).Scan(&count)
	return count, err
}
