package service

import (
	"sync"
	"time"

	"github.com/testloom-ai/testloom/internal/domain"
)

// sessionState holds everything uploaded within one session. Documents keep
// their upload order; re-uploading under the same source id supersedes the
// previous version in place.
type sessionState struct {
	documents []*domain.Document
	byID      map[string]int
	html      string
	hasHTML   bool
	touchedAt time.Time
}

// SessionStore is the in-memory store of uploaded documents and the target
// HTML page, keyed by session id. It is process-local: a session belongs to
// a single interactive user and does not survive a restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionState
	now      func() time.Time
}

// NewSessionStore creates a new SessionStore instance
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionState),
		now:      time.Now,
	}
}

func (s *SessionStore) session(sessionID string) *sessionState {
	st, ok := s.sessions[sessionID]
	if !ok {
		st = &sessionState{byID: make(map[string]int)}
		s.sessions[sessionID] = st
	}
	st.touchedAt = s.now()
	return st
}

// PutDocument stores a document in the session, replacing any previous
// document with the same source id.
func (s *SessionStore) PutDocument(sessionID string, doc *domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.session(sessionID)
	if i, ok := st.byID[doc.SourceID]; ok {
		st.documents[i] = doc
		return
	}
	st.byID[doc.SourceID] = len(st.documents)
	st.documents = append(st.documents, doc)
}

// Documents returns the session's documents in upload order.
func (s *SessionStore) Documents(sessionID string) []*domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok {
		return nil
	}
	st.touchedAt = s.now()
	out := make([]*domain.Document, len(st.documents))
	copy(out, st.documents)
	return out
}

// SetHTML stores the session's target HTML page, replacing any previous one.
func (s *SessionStore) SetHTML(sessionID, html string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.session(sessionID)
	st.html = html
	st.hasHTML = true
}

// HTML returns the session's target HTML page, if one was stored.
func (s *SessionStore) HTML(sessionID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.sessions[sessionID]
	if !ok || !st.hasHTML {
		return "", false
	}
	st.touchedAt = s.now()
	return st.html, true
}

// Delete drops the whole session.
func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Sweep removes sessions untouched for longer than ttl and returns the ids
// of the removed sessions so callers can clear their indexed chunks too.
func (s *SessionStore) Sweep(ttl time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	var removed []string
	for id, st := range s.sessions {
		if st.touchedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed = append(removed, id)
		}
	}
	return removed
}
