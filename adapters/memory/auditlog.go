package memory

import (
	"context"
	"sync"

	"github.com/artpar/maintforms/domain/field"
	"github.com/artpar/maintforms/ports"
)

// AuditLog is an in-memory implementation of ports.AuditLog.
type AuditLog struct {
	mu      sync.RWMutex
	entries []ports.AuditEntry
}

// NewAuditLog creates an empty in-memory audit log.
func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

// Record appends an entry.
func (l *AuditLog) Record(ctx context.Context, e ports.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	return nil
}

// List returns a module's entries, newest first.
func (l *AuditLog) List(ctx context.Context, module field.Module, limit int) ([]ports.AuditEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []ports.AuditEntry
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Module != module {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Ensure interface compliance.
var _ ports.AuditLog = (*AuditLog)(nil)
