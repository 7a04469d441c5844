// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"time"

	"github.com/artpar/maintforms/domain/field"
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// Hasher provides one-way hashing of secrets such as the admin API key.
type Hasher interface {
	// Hash generates a hash from a plaintext value.
	Hash(plaintext string) (string, error)

	// Compare checks if plaintext matches hash.
	Compare(hash, plaintext string) bool
}

// -----------------------------------------------------------------------------
// Storage Ports
// -----------------------------------------------------------------------------

// KVStore is the durable key-value storage the field schema is persisted in.
// Values are opaque strings (JSON documents in practice).
type KVStore interface {
	// Get returns the value stored under key. found is false when the key
	// has never been set.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// AuditEntry records one change made to a system field.
type AuditEntry struct {
	ID       string
	Module   field.Module
	FieldID  string
	Action   string
	Before   field.Field
	After    field.Field
	Actor    string
	RecordAt time.Time
}

// AuditLog persists the audit trail of system-field edits.
type AuditLog interface {
	// Record appends an entry.
	Record(ctx context.Context, e AuditEntry) error

	// List returns the newest entries for a module, newest first.
	// limit <= 0 returns all entries.
	List(ctx context.Context, module field.Module, limit int) ([]AuditEntry, error)
}

// -----------------------------------------------------------------------------
// Collaborator Ports
// -----------------------------------------------------------------------------

// EquipmentOptions supplies the choices of equipment reference fields.
type EquipmentOptions interface {
	EquipmentOptions(ctx context.Context) ([]field.Option, error)
}
