package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testloom-ai/testloom/internal/domain"
)

func doc(sourceID, text string) *domain.Document {
	return &domain.Document{SourceID: sourceID, Type: domain.DocumentTypeSupportDoc, Text: text}
}

func TestSessionStore_PutAndList(t *testing.T) {
	store := NewSessionStore()

	store.PutDocument("s1", doc("a.txt", "alpha"))
	store.PutDocument("s1", doc("b.txt", "beta"))
	store.PutDocument("s2", doc("c.txt", "gamma"))

	docs := store.Documents("s1")
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].SourceID)
	assert.Equal(t, "b.txt", docs[1].SourceID)

	assert.Len(t, store.Documents("s2"), 1)
	assert.Empty(t, store.Documents("unknown"))
}

func TestSessionStore_ReuploadSupersedes(t *testing.T) {
	store := NewSessionStore()

	store.PutDocument("s1", doc("a.txt", "old"))
	store.PutDocument("s1", doc("b.txt", "beta"))
	store.PutDocument("s1", doc("a.txt", "new"))

	docs := store.Documents("s1")
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].SourceID, "replacement keeps the original position")
	assert.Equal(t, "new", docs[0].Text)
}

func TestSessionStore_HTML(t *testing.T) {
	store := NewSessionStore()

	_, ok := store.HTML("s1")
	assert.False(t, ok)

	store.SetHTML("s1", "<html>v1</html>")
	html, ok := store.HTML("s1")
	require.True(t, ok)
	assert.Equal(t, "<html>v1</html>", html)

	store.SetHTML("s1", "<html>v2</html>")
	html, _ = store.HTML("s1")
	assert.Equal(t, "<html>v2</html>", html)
}

func TestSessionStore_Delete(t *testing.T) {
	store := NewSessionStore()
	store.PutDocument("s1", doc("a.txt", "alpha"))
	store.SetHTML("s1", "<html></html>")

	store.Delete("s1")

	assert.Empty(t, store.Documents("s1"))
	_, ok := store.HTML("s1")
	assert.False(t, ok)
}

func TestSessionStore_SweepExpiresIdleSessions(t *testing.T) {
	store := NewSessionStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	store.PutDocument("stale", doc("a.txt", "alpha"))

	now = now.Add(30 * time.Minute)
	store.PutDocument("fresh", doc("b.txt", "beta"))

	removed := store.Sweep(10 * time.Minute)

	assert.Equal(t, []string{"stale"}, removed)
	assert.Empty(t, store.Documents("stale"))
	assert.Len(t, store.Documents("fresh"), 1)
}

func TestSessionStore_AccessKeepsSessionAlive(t *testing.T) {
	store := NewSessionStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	store.PutDocument("s1", doc("a.txt", "alpha"))

	now = now.Add(8 * time.Minute)
	store.Documents("s1") // read refreshes the idle clock

	now = now.Add(8 * time.Minute)
	removed := store.Sweep(10 * time.Minute)

	assert.Empty(t, removed)
}
