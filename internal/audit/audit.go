package audit

import (
	"context"
	"time"
)

// Event is one credential lifecycle event. It never carries token strings,
// fingerprints or passwords.
type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	JTI       string            `json:"jti,omitempty"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events. The dispatcher calls Emit from a
// single goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}
