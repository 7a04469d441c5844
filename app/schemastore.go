// Package app contains the field schema services: the schema store that
// merges system and custom fields, the module-scoped field registry, and the
// form service built on top of it.
package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/artpar/maintforms/adapters/metrics"
	"github.com/artpar/maintforms/domain/field"
	"github.com/artpar/maintforms/ports"
	"github.com/rs/zerolog"
)

// Storage keys of the persisted schema records.
const (
	// CustomFieldsKey holds {module: Field[]} with custom fields only.
	CustomFieldsKey = "maintenance_custom_fields"

	// SystemOverridesKey holds {module: {fieldId: Patch}} for system fields.
	SystemOverridesKey = "maintenance_system_field_overrides"
)

// Overrides maps module and system field id to the changes layered on the
// shipped definition (reordering and audited edits).
type Overrides map[field.Module]map[string]field.Patch

// Get returns the patch stored for a system field.
func (o Overrides) Get(m field.Module, id string) (field.Patch, bool) {
	p, ok := o[m][id]
	return p, ok
}

// Put layers p over whatever is stored for the field.
func (o Overrides) Put(m field.Module, id string, p field.Patch) {
	if o[m] == nil {
		o[m] = make(map[string]field.Patch)
	}
	o[m][id] = o[m][id].Merge(p)
}

// Clone returns a deep copy of o.
func (o Overrides) Clone() Overrides {
	out := make(Overrides, len(o))
	for m, patches := range o {
		cp := make(map[string]field.Patch, len(patches))
		for id, p := range patches {
			cp[id] = p
		}
		out[m] = cp
	}
	return out
}

// SchemaStore owns the default schema and the read/write boundary to the
// key-value store.
type SchemaStore struct {
	schema  field.Schema
	kv      ports.KVStore
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewSchemaStore creates a schema store. m may be nil.
func NewSchemaStore(schema field.Schema, kv ports.KVStore, logger zerolog.Logger, m *metrics.Collector) *SchemaStore {
	return &SchemaStore{
		schema:  schema,
		kv:      kv,
		logger:  logger,
		metrics: m,
	}
}

// Defaults returns the shipped system fields of every module.
func (s *SchemaStore) Defaults() field.Set {
	return s.schema.Set()
}

// LoadOverlay reads the persisted custom fields.
// A missing or unparsable record yields an empty set; only storage errors
// are returned.
func (s *SchemaStore) LoadOverlay(ctx context.Context) (field.Set, error) {
	overlay := field.NewSet()

	var payload map[string][]field.Field
	ok, err := s.load(ctx, CustomFieldsKey, &payload)
	if err != nil || !ok {
		return overlay, err
	}

	for key, fields := range payload {
		m := field.Module(key)
		if !m.Valid() {
			s.logger.Warn().Str("module", key).Msg("ignoring custom fields of unknown module")
			continue
		}
		for _, f := range fields {
			if f.IsSystem {
				s.logger.Warn().Str("module", key).Str("field_id", f.ID).
					Msg("ignoring system field found in custom field overlay")
				continue
			}
			overlay[m] = append(overlay[m], f)
		}
	}
	return overlay, nil
}

// SaveOverlay persists the custom fields of set, replacing the previous record.
// System fields in set are skipped.
func (s *SchemaStore) SaveOverlay(ctx context.Context, set field.Set) error {
	payload := make(map[string][]field.Field, len(field.AllModules()))
	for _, m := range field.AllModules() {
		custom := []field.Field{}
		for _, f := range set[m] {
			if !f.IsSystem {
				custom = append(custom, f)
			}
		}
		payload[string(m)] = custom
		s.metrics.SetCustomFields(string(m), len(custom))
	}
	return s.save(ctx, CustomFieldsKey, payload)
}

// LoadOverrides reads the persisted system field overrides.
// A missing or unparsable record yields no overrides.
func (s *SchemaStore) LoadOverrides(ctx context.Context) (Overrides, error) {
	out := make(Overrides)

	var payload map[string]map[string]field.Patch
	ok, err := s.load(ctx, SystemOverridesKey, &payload)
	if err != nil || !ok {
		return out, err
	}

	for key, patches := range payload {
		m := field.Module(key)
		if !m.Valid() {
			continue
		}
		for id, p := range patches {
			out.Put(m, id, p)
		}
	}
	return out, nil
}

// SaveOverrides persists o, replacing the previous record.
func (s *SchemaStore) SaveOverrides(ctx context.Context, o Overrides) error {
	payload := make(map[string]map[string]field.Patch, len(o))
	for m, patches := range o {
		if len(patches) == 0 {
			continue
		}
		payload[string(m)] = patches
	}
	return s.save(ctx, SystemOverridesKey, payload)
}

// Merged returns, per module, the system fields (with overrides applied)
// followed by the custom fields. Fields are not sorted.
func (s *SchemaStore) Merged(ctx context.Context) (field.Set, error) {
	overrides, err := s.LoadOverrides(ctx)
	if err != nil {
		return nil, err
	}
	overlay, err := s.LoadOverlay(ctx)
	if err != nil {
		return nil, err
	}

	merged := s.Defaults()
	for _, m := range field.AllModules() {
		fields := merged[m]
		for i, f := range fields {
			if p, ok := overrides.Get(m, f.ID); ok {
				fields[i] = f.Apply(p)
			}
		}
		merged[m] = append(fields, overlay[m]...)
	}
	return merged, nil
}

// load decodes the JSON record under key into v. It reports false when the
// record is absent or malformed; malformed records are logged, not returned.
func (s *SchemaStore) load(ctx context.Context, key string, v any) (bool, error) {
	raw, found, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !found || raw == "" {
		return false, nil
	}

	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("stored schema record is malformed, ignoring it")
		s.metrics.RecordLoadError(key)
		return false, nil
	}
	return true, nil
}

func (s *SchemaStore) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
