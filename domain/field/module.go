// Package field defines the field schema of the maintenance modules:
// field metadata, the default (system) schema, and pure validation rules.
package field

import (
	"fmt"
	"strings"
)

// Module identifies one business module whose records are described by fields.
type Module string

const (
	ModuleEquipment  Module = "equipment"
	ModuleWorkOrders Module = "workorders"
	ModuleInventory  Module = "inventory"
	ModuleScheduling Module = "scheduling"
	ModuleDashboard  Module = "dashboard"
)

var allModules = []Module{
	ModuleEquipment,
	ModuleWorkOrders,
	ModuleInventory,
	ModuleScheduling,
	ModuleDashboard,
}

// AllModules returns every known module in canonical order.
func AllModules() []Module {
	out := make([]Module, len(allModules))
	copy(out, allModules)
	return out
}

// Valid reports whether m is one of the known modules.
func (m Module) Valid() bool {
	for _, k := range allModules {
		if k == m {
			return true
		}
	}
	return false
}

func (m Module) String() string {
	return string(m)
}

// ParseModule converts a string into a Module.
// Matching is case-insensitive; unknown names return ErrUnknownModule.
func ParseModule(s string) (Module, error) {
	m := Module(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownModule, s)
	}
	return m, nil
}

// Set maps each module to its ordered field sequence.
type Set map[Module][]Field

// NewSet returns a set with an empty, non-nil sequence for every module.
func NewSet() Set {
	s := make(Set, len(allModules))
	for _, m := range allModules {
		s[m] = []Field{}
	}
	return s
}

// Clone returns a deep copy of the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for m, fields := range s {
		cp := make([]Field, len(fields))
		for i, f := range fields {
			cp[i] = f.Clone()
		}
		out[m] = cp
	}
	return out
}
