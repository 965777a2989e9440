package navigator

import (
	"context"
	"time"
)

// AuditEntry records one navigator operation.
type AuditEntry struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"session_id"`
	WorkflowID string         `json:"workflow_id"`
	Operation  string         `json:"operation"`
	Activity   string         `json:"activity"`
	Parameters map[string]any `json:"parameters,omitempty"`
	Success    bool           `json:"success"`
	ErrorCode  ErrorCode      `json:"error_code,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
	Duration   time.Duration  `json:"duration"`
}

// AuditLogger defines simple operation logging interface
type AuditLogger interface {
	// LogEntry logs a completed operation
	LogEntry(ctx context.Context, entry *AuditEntry) error

	// GetHistory retrieves the audit log for a session
	GetHistory(ctx context.Context, sessionID string) ([]*AuditEntry, error)
}
