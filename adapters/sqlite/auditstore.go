package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artpar/maintforms/domain/field"
	"github.com/artpar/maintforms/ports"
)

// AuditStore implements ports.AuditLog using SQLite.
type AuditStore struct {
	db *DB
}

// NewAuditStore creates a new audit store.
func NewAuditStore(db *DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record appends an audit entry.
func (s *AuditStore) Record(ctx context.Context, e ports.AuditEntry) error {
	before, err := json.Marshal(e.Before)
	if err != nil {
		return fmt.Errorf("encode before: %w", err)
	}
	after, err := json.Marshal(e.After)
	if err != nil {
		return fmt.Errorf("encode after: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO field_audit (id, module, field_id, action, before_json, after_json, actor, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Module), e.FieldID, e.Action, string(before), string(after), e.Actor,
		e.RecordAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

// List returns a module's entries, newest first.
func (s *AuditStore) List(ctx context.Context, module field.Module, limit int) ([]ports.AuditEntry, error) {
	query := `SELECT id, module, field_id, action, before_json, after_json, actor, recorded_at
		FROM field_audit WHERE module = ? ORDER BY recorded_at DESC, rowid DESC`
	args := []any{string(module)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.AuditEntry
	for rows.Next() {
		var (
			e                 ports.AuditEntry
			mod, before, after string
			recordedAt        string
		)
		if err := rows.Scan(&e.ID, &mod, &e.FieldID, &e.Action, &before, &after, &e.Actor, &recordedAt); err != nil {
			return nil, err
		}
		e.Module = field.Module(mod)
		if err := json.Unmarshal([]byte(before), &e.Before); err != nil {
			return nil, fmt.Errorf("decode before: %w", err)
		}
		if err := json.Unmarshal([]byte(after), &e.After); err != nil {
			return nil, fmt.Errorf("decode after: %w", err)
		}
		e.RecordAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ensure interface compliance.
var _ ports.AuditLog = (*AuditStore)(nil)
