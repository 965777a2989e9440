package navigator

import "context"

// NullAuditLogger discards all entries.
type NullAuditLogger struct{}

func NewNullAuditLogger() *NullAuditLogger {
	return &NullAuditLogger{}
}

func (l *NullAuditLogger) LogEntry(ctx context.Context, entry *AuditEntry) error {
	return nil
}

func (l *NullAuditLogger) GetHistory(ctx context.Context, sessionID string) ([]*AuditEntry, error) {
	return []*AuditEntry{}, nil
}
