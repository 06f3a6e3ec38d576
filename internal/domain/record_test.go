package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordID_Deterministic(t *testing.T) {
	first := RecordID("s1", "manual.txt", 0)
	second := RecordID("s1", "manual.txt", 0)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64, "hex-encoded sha256")
}

func TestRecordID_DistinctPerChunkIndex(t *testing.T) {
	assert.NotEqual(t, RecordID("s1", "manual.txt", 0), RecordID("s1", "manual.txt", 1))
}

func TestRecordID_DistinctPerSource(t *testing.T) {
	assert.NotEqual(t, RecordID("s1", "manual.txt", 0), RecordID("s1", "faq.md", 0))
}

func TestRecordID_DistinctPerSession(t *testing.T) {
	// Two sessions uploading the same filename must never share rows.
	assert.NotEqual(t, RecordID("s1", "target_page.html", 0), RecordID("s2", "target_page.html", 0))
}

func TestRecordID_SeparatorPreventsCollisions(t *testing.T) {
	// "doc1" chunk 23 must not collide with "doc12" chunk 3,
	// and session/source concatenation must not be ambiguous either.
	assert.NotEqual(t, RecordID("s1", "doc1", 23), RecordID("s1", "doc12", 3))
	assert.NotEqual(t, RecordID("s1a", "b.txt", 0), RecordID("s1", "ab.txt", 0))
}
