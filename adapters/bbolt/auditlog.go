package bbolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"github.com/artpar/maintforms/domain/field"
	"github.com/artpar/maintforms/ports"
)

// AuditLog stores audit entries in one nested bucket per module, keyed by
// the bucket sequence so cursor order is insertion order.
type AuditLog struct {
	db *bolt.DB
}

// AuditLog returns the audit log sharing this store's database file.
func (s *KVStore) AuditLog() *AuditLog {
	return &AuditLog{db: s.db}
}

// Record appends an entry.
func (l *AuditLog) Record(ctx context.Context, e ports.AuditEntry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode audit entry: %w", err)
	}

	return l.db.Update(func(tx *bolt.Tx) error {
		root := tx.Bucket(auditName)
		if root == nil {
			return ErrBucketNotFound
		}
		b, err := root.CreateBucketIfNotExists([]byte(e.Module))
		if err != nil {
			return err
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// List returns a module's entries, newest first.
func (l *AuditLog) List(ctx context.Context, module field.Module, limit int) ([]ports.AuditEntry, error) {
	var out []ports.AuditEntry
	err := l.db.View(func(tx *bolt.Tx) error {
		root := tx.Bucket(auditName)
		if root == nil {
			return ErrBucketNotFound
		}
		b := root.Bucket([]byte(module))
		if b == nil {
			return nil
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var e ports.AuditEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("decode audit entry: %w", err)
			}
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		return nil
	})
	return out, err
}

// Ensure interface compliance.
var _ ports.AuditLog = (*AuditLog)(nil)
