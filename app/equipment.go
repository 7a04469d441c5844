package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/artpar/maintforms/domain/field"
	"github.com/artpar/maintforms/ports"
)

// EquipmentKey holds the equipment records, a JSON array of objects with at
// least "id" and "name".
const EquipmentKey = "maintenance_equipment"

// KVEquipmentOptions reads equipment choices from the key-value store.
type KVEquipmentOptions struct {
	kv ports.KVStore
}

// NewKVEquipmentOptions creates an equipment option source backed by kv.
func NewKVEquipmentOptions(kv ports.KVStore) *KVEquipmentOptions {
	return &KVEquipmentOptions{kv: kv}
}

type equipmentRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EquipmentOptions returns one option per stored equipment record, labelled
// "<name> (<id>)". Records without an id are skipped.
func (e *KVEquipmentOptions) EquipmentOptions(ctx context.Context) ([]field.Option, error) {
	raw, found, err := e.kv.Get(ctx, EquipmentKey)
	if err != nil {
		return nil, fmt.Errorf("load equipment: %w", err)
	}
	if !found || raw == "" {
		return []field.Option{}, nil
	}

	var records []equipmentRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode equipment: %w", err)
	}

	opts := make([]field.Option, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			continue
		}
		label := r.ID
		if r.Name != "" {
			label = r.Name + " (" + r.ID + ")"
		}
		opts = append(opts, field.Option{Value: r.ID, Label: label})
	}
	return opts, nil
}

// StaticEquipment is a fixed list of equipment choices.
type StaticEquipment []field.Option

// EquipmentOptions returns the list.
func (s StaticEquipment) EquipmentOptions(context.Context) ([]field.Option, error) {
	return append([]field.Option(nil), s...), nil
}
