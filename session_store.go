package navigator

import (
	"context"
	"time"
)

// SessionSummary provides a summary view of a stored session token
type SessionSummary struct {
	Name            string    `json:"name"`
	SessionID       string    `json:"session_id"`
	WorkflowID      string    `json:"workflow_id"`
	CurrentActivity string    `json:"current_activity"`
	Status          Status    `json:"status"`
	StartedAt       time.Time `json:"started_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SessionStore keeps state tokens on the caller's side between invocations.
// The navigator itself never stores state; this exists for callers such as the
// CLI that need somewhere to put the token.
type SessionStore interface {
	// Save stores the latest token for a named session
	Save(ctx context.Context, name, token string) error

	// Load returns the latest token for a named session
	Load(ctx context.Context, name string) (string, error)

	// Delete removes a named session
	Delete(ctx context.Context, name string) error
}
