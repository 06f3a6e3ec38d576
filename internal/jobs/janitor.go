package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// SessionSweeper removes sessions idle for longer than a TTL
type SessionSweeper interface {
	Sweep(ttl time.Duration) []string
}

// IndexCleaner removes a session's indexed chunks
type IndexCleaner interface {
	Clear(ctx context.Context, sessionID string) error
}

// SessionJanitor expires idle sessions and clears their indexed chunks
type SessionJanitor struct {
	sessions SessionSweeper
	index    IndexCleaner
	ttl      time.Duration
}

// NewSessionJanitor creates a new SessionJanitor instance
func NewSessionJanitor(sessions SessionSweeper, index IndexCleaner, ttl time.Duration) *SessionJanitor {
	return &SessionJanitor{
		sessions: sessions,
		index:    index,
		ttl:      ttl,
	}
}

// Sweep implements the Sweeper interface
func (j *SessionJanitor) Sweep(ctx context.Context) error {
	expired := j.sessions.Sweep(j.ttl)
	if len(expired) == 0 {
		return nil
	}

	log.Printf("Expiring %d idle sessions", len(expired))

	var failed int
	for _, sessionID := range expired {
		if err := j.index.Clear(ctx, sessionID); err != nil {
			log.Printf("Error clearing index for expired session %s: %v", sessionID, err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("failed to clear index for %d of %d expired sessions", failed, len(expired))
	}
	return nil
}
