package app

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/artpar/maintforms/adapters/metrics"
	"github.com/artpar/maintforms/domain/field"
	"github.com/artpar/maintforms/ports"
	"github.com/rs/zerolog"
)

// CustomIDPrefix prefixes the id of every custom field.
const CustomIDPrefix = "custom_"

// SystemFieldPolicy decides what happens when an edit targets a system field.
type SystemFieldPolicy string

const (
	// PolicyForbid rejects every edit of a system field with ErrSystemField.
	PolicyForbid SystemFieldPolicy = "forbid"

	// PolicyAudit allows presentational edits of system fields and records
	// each one in the audit log. Name and type stay locked.
	PolicyAudit SystemFieldPolicy = "audit"
)

// ParsePolicy parses a policy name. The empty string means PolicyForbid.
func ParsePolicy(s string) (SystemFieldPolicy, error) {
	switch p := SystemFieldPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyForbid, nil
	case PolicyForbid, PolicyAudit:
		return p, nil
	default:
		return "", fmt.Errorf("unknown system field policy %q", s)
	}
}

// RegistryDeps contains dependencies for the field registry.
type RegistryDeps struct {
	Store   *SchemaStore
	IDs     ports.IDGenerator
	Clock   ports.Clock
	Audit   ports.AuditLog
	Policy  SystemFieldPolicy
	Logger  zerolog.Logger
	Metrics *metrics.Collector
}

// Registry is the module-scoped field API used by forms and admin tooling.
// Every operation re-reads persisted state, so changes made by other
// registry instances sharing the store are observed.
type Registry struct {
	store   *SchemaStore
	ids     ports.IDGenerator
	clock   ports.Clock
	audit   ports.AuditLog
	logger  zerolog.Logger
	metrics *metrics.Collector

	// mu serializes read-modify-write cycles on the overlay record, which
	// is shared by all modules.
	mu     sync.RWMutex
	policy SystemFieldPolicy
}

// NewRegistry creates a field registry.
func NewRegistry(deps RegistryDeps) *Registry {
	policy := deps.Policy
	if policy == "" {
		policy = PolicyForbid
	}
	return &Registry{
		store:   deps.Store,
		ids:     deps.IDs,
		clock:   deps.Clock,
		audit:   deps.Audit,
		logger:  deps.Logger,
		metrics: deps.Metrics,
		policy:  policy,
	}
}

// Policy returns the active system field policy.
func (r *Registry) Policy() SystemFieldPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// SetPolicy switches the system field policy, e.g. after a config reload.
func (r *Registry) SetPolicy(p SystemFieldPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p != r.policy {
		r.logger.Info().Str("from", string(r.policy)).Str("to", string(p)).Msg("system field policy changed")
	}
	r.policy = p
}

// ModuleFields returns the merged fields of a module sorted by Order.
func (r *Registry) ModuleFields(ctx context.Context, m field.Module) ([]field.Field, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", field.ErrUnknownModule, m)
	}

	r.mu.RLock()
	set, err := r.store.Merged(ctx)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	fields := set[m]
	field.SortByOrder(fields)
	return fields, nil
}

// AddCustomField appends a custom field to a module and persists it.
// The id is generated and IsSystem forced to false; an Order of 0 places
// the field after every existing one.
func (r *Registry) AddCustomField(ctx context.Context, m field.Module, f field.Field) (field.Field, error) {
	if !m.Valid() {
		return field.Field{}, fmt.Errorf("%w: %q", field.ErrUnknownModule, m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.Merged(ctx)
	if err != nil {
		return field.Field{}, err
	}

	f = f.Clone()
	f.ID = CustomIDPrefix + r.ids.New()
	f.IsSystem = false
	if f.Order == 0 {
		f.Order = field.MaxOrder(set[m]) + 1
	}

	if err := f.Check(); err != nil {
		r.metrics.RecordOperation(string(m), "add", "invalid")
		return field.Field{}, err
	}
	if other, taken := findByName(set[m], f.Name, ""); taken {
		r.metrics.RecordOperation(string(m), "add", "conflict")
		return field.Field{}, fmt.Errorf("%w: %q is used by %s", field.ErrDuplicateName, f.Name, other.ID)
	}

	set[m] = append(set[m], f)
	if err := r.store.SaveOverlay(ctx, set); err != nil {
		r.metrics.RecordOperation(string(m), "add", "error")
		return field.Field{}, err
	}

	r.metrics.RecordOperation(string(m), "add", "ok")
	r.logger.Info().
		Str("module", string(m)).
		Str("field_id", f.ID).
		Str("name", f.Name).
		Msg("custom field added")
	return f, nil
}

// UpdateField shallow-merges patch into the field with id. It reports false
// when no such field exists in the module.
func (r *Registry) UpdateField(ctx context.Context, m field.Module, id string, patch field.Patch) (bool, error) {
	if !m.Valid() {
		return false, fmt.Errorf("%w: %q", field.ErrUnknownModule, m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.Merged(ctx)
	if err != nil {
		return false, err
	}

	fields := set[m]
	idx := indexByID(fields, id)
	if idx < 0 {
		r.metrics.RecordOperation(string(m), "update", "not_found")
		return false, nil
	}
	if patch.IsEmpty() {
		return true, nil
	}
	if err := patch.CheckClear(); err != nil {
		r.metrics.RecordOperation(string(m), "update", "invalid")
		return false, err
	}

	current := fields[idx]
	updated := current.Apply(patch)

	if current.IsSystem {
		if err := r.updateSystem(ctx, m, current, updated, patch); err != nil {
			return false, err
		}
		r.metrics.RecordOperation(string(m), "update", "ok")
		return true, nil
	}

	if err := updated.Check(); err != nil {
		r.metrics.RecordOperation(string(m), "update", "invalid")
		return false, err
	}
	if patch.Name != nil {
		if other, taken := findByName(fields, updated.Name, id); taken {
			r.metrics.RecordOperation(string(m), "update", "conflict")
			return false, fmt.Errorf("%w: %q is used by %s", field.ErrDuplicateName, updated.Name, other.ID)
		}
	}

	fields[idx] = updated
	if err := r.store.SaveOverlay(ctx, set); err != nil {
		r.metrics.RecordOperation(string(m), "update", "error")
		return false, err
	}

	r.metrics.RecordOperation(string(m), "update", "ok")
	r.logger.Info().Str("module", string(m)).Str("field_id", id).Msg("custom field updated")
	return true, nil
}

// updateSystem applies an edit to a system field under the active policy.
// Must be called with r.mu held.
func (r *Registry) updateSystem(ctx context.Context, m field.Module, current, updated field.Field, patch field.Patch) error {
	if r.policy != PolicyAudit {
		r.metrics.RecordOperation(string(m), "update", "forbidden")
		return fmt.Errorf("%w: %s cannot be modified", field.ErrSystemField, current.ID)
	}
	if patch.ChangesIdentity() {
		r.metrics.RecordOperation(string(m), "update", "forbidden")
		return fmt.Errorf("%w: name and type of %s are fixed", field.ErrSystemField, current.ID)
	}
	if err := updated.Check(); err != nil {
		r.metrics.RecordOperation(string(m), "update", "invalid")
		return err
	}

	overrides, err := r.store.LoadOverrides(ctx)
	if err != nil {
		r.metrics.RecordOperation(string(m), "update", "error")
		return err
	}
	before := overrides.Clone()
	overrides.Put(m, current.ID, patch)
	if err := r.store.SaveOverrides(ctx, overrides); err != nil {
		r.metrics.RecordOperation(string(m), "update", "error")
		return err
	}

	if r.audit != nil {
		entry := ports.AuditEntry{
			ID:       r.ids.New(),
			Module:   m,
			FieldID:  current.ID,
			Action:   "update",
			Before:   current,
			After:    updated,
			Actor:    ActorFrom(ctx),
			RecordAt: r.clock.Now(),
		}
		if err := r.audit.Record(ctx, entry); err != nil {
			// An unaudited edit must not stay in effect.
			if rerr := r.store.SaveOverrides(ctx, before); rerr != nil {
				r.logger.Error().Err(rerr).Str("field_id", current.ID).Msg("failed to roll back system field override")
			}
			r.metrics.RecordOperation(string(m), "update", "error")
			return fmt.Errorf("record audit entry: %w", err)
		}
	}

	r.logger.Warn().
		Str("module", string(m)).
		Str("field_id", current.ID).
		Str("actor", ActorFrom(ctx)).
		Msg("system field modified")
	return nil
}

// DeleteCustomField removes a custom field. It reports false when the id is
// unknown or names a system field.
func (r *Registry) DeleteCustomField(ctx context.Context, m field.Module, id string) (bool, error) {
	if !m.Valid() {
		return false, fmt.Errorf("%w: %q", field.ErrUnknownModule, m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.Merged(ctx)
	if err != nil {
		return false, err
	}

	fields := set[m]
	idx := indexByID(fields, id)
	if idx < 0 {
		r.metrics.RecordOperation(string(m), "delete", "not_found")
		return false, nil
	}
	if fields[idx].IsSystem {
		r.metrics.RecordOperation(string(m), "delete", "forbidden")
		r.logger.Debug().Str("module", string(m)).Str("field_id", id).Msg("refusing to delete system field")
		return false, nil
	}

	set[m] = append(fields[:idx], fields[idx+1:]...)
	if err := r.store.SaveOverlay(ctx, set); err != nil {
		r.metrics.RecordOperation(string(m), "delete", "error")
		return false, err
	}

	r.metrics.RecordOperation(string(m), "delete", "ok")
	r.logger.Info().Str("module", string(m)).Str("field_id", id).Msg("custom field deleted")
	return true, nil
}

// ReorderFields sets the Order of each listed field to its 1-based position
// in ids. Unknown ids are ignored and unlisted fields keep their Order.
// It returns the number of fields reordered.
func (r *Registry) ReorderFields(ctx context.Context, m field.Module, ids []string) (int, error) {
	if !m.Valid() {
		return 0, fmt.Errorf("%w: %q", field.ErrUnknownModule, m)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, err := r.store.Merged(ctx)
	if err != nil {
		return 0, err
	}
	overrides, err := r.store.LoadOverrides(ctx)
	if err != nil {
		return 0, err
	}
	before := overrides.Clone()

	fields := set[m]
	applied := 0
	systemTouched := false
	for pos, id := range ids {
		idx := indexByID(fields, id)
		if idx < 0 {
			continue
		}
		order := pos + 1
		fields[idx].Order = order
		if fields[idx].IsSystem {
			overrides.Put(m, id, field.Patch{Order: &order})
			systemTouched = true
		}
		applied++
	}

	// Overrides go first so a failure leaves both records untouched.
	if systemTouched {
		if err := r.store.SaveOverrides(ctx, overrides); err != nil {
			r.metrics.RecordOperation(string(m), "reorder", "error")
			return 0, err
		}
	}
	if err := r.store.SaveOverlay(ctx, set); err != nil {
		if systemTouched {
			if rerr := r.store.SaveOverrides(ctx, before); rerr != nil {
				r.logger.Error().Err(rerr).Str("module", string(m)).Msg("failed to roll back reorder overrides")
			}
		}
		r.metrics.RecordOperation(string(m), "reorder", "error")
		return 0, err
	}

	r.metrics.RecordOperation(string(m), "reorder", "ok")
	r.logger.Info().Str("module", string(m)).Int("reordered", applied).Msg("fields reordered")
	return applied, nil
}

// ValidateFieldValue validates a single value against a field definition.
func (r *Registry) ValidateFieldValue(f field.Field, value any) field.Result {
	res := field.ValidateValue(f, value)
	if !res.Valid {
		r.metrics.RecordValidationFailure(moduleOf(f), res.Rule)
	}
	return res
}

// moduleOf derives the module label of a field from its id, falling back to
// "custom" for generated ids.
func moduleOf(f field.Field) string {
	if i := strings.IndexByte(f.ID, '_'); i > 0 {
		if m := field.Module(f.ID[:i]); m.Valid() {
			return string(m)
		}
	}
	return "custom"
}

// ValidateField validates value against the field with id in module m.
// found is false when the module has no such field.
func (r *Registry) ValidateField(ctx context.Context, m field.Module, id string, value any) (res field.Result, found bool, err error) {
	fields, err := r.ModuleFields(ctx, m)
	if err != nil {
		return field.Result{}, false, err
	}
	idx := indexByID(fields, id)
	if idx < 0 {
		return field.Result{}, false, nil
	}
	res = field.ValidateValue(fields[idx], value)
	if !res.Valid {
		r.metrics.RecordValidationFailure(string(m), res.Rule)
	}
	return res, true, nil
}

// RecordValidation is the outcome of validating a whole record.
type RecordValidation struct {
	Valid  bool                    `json:"isValid"`
	Fields map[string]field.Result `json:"fields"`
}

// ValidateRecord validates every field of module m against values, keyed by
// field name. Absent values are validated as undefined.
func (r *Registry) ValidateRecord(ctx context.Context, m field.Module, values map[string]any) (RecordValidation, error) {
	fields, err := r.ModuleFields(ctx, m)
	if err != nil {
		return RecordValidation{}, err
	}

	out := RecordValidation{Valid: true, Fields: make(map[string]field.Result, len(fields))}
	for _, f := range fields {
		res := field.ValidateValue(f, values[f.Name])
		out.Fields[f.Name] = res
		if !res.Valid {
			out.Valid = false
			r.metrics.RecordValidationFailure(string(m), res.Rule)
		}
	}
	return out, nil
}

// AuditTrail returns the newest system field edits of module m.
func (r *Registry) AuditTrail(ctx context.Context, m field.Module, limit int) ([]ports.AuditEntry, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %q", field.ErrUnknownModule, m)
	}
	if r.audit == nil {
		return []ports.AuditEntry{}, nil
	}
	return r.audit.List(ctx, m, limit)
}

func indexByID(fields []field.Field, id string) int {
	for i, f := range fields {
		if f.ID == id {
			return i
		}
	}
	return -1
}

// findByName returns the field named name, ignoring the field with skipID.
func findByName(fields []field.Field, name, skipID string) (field.Field, bool) {
	for _, f := range fields {
		if f.Name == name && f.ID != skipID {
			return f, true
		}
	}
	return field.Field{}, false
}
