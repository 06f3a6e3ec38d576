package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Record is one embedded chunk as stored in the vector index.
type Record struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Content   string         `json:"content"`
	Metadata  RecordMetadata `json:"metadata"`
	Embedding []float32      `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// RecordMetadata describes where a chunk came from.
type RecordMetadata struct {
	SourceID     string            `json:"source_id"`
	DocumentType DocumentType      `json:"document_type"`
	ChunkIndex   int               `json:"chunk_index"`
	TotalChunks  int               `json:"total_chunks"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// RecordID derives the deterministic index id for a chunk. Ids are scoped to
// the session: the same source uploaded in two sessions indexes independently,
// while re-ingesting a source within one session yields the same ids so
// upserts overwrite instead of duplicating.
func RecordID(sessionID, sourceID string, chunkIndex int) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%d", sessionID, sourceID, chunkIndex))
	return hex.EncodeToString(sum[:])
}
