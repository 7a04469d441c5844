package field

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Schema is the immutable set of system fields per module.
// It is built once at startup and shared by reference.
type Schema struct {
	fields Set
}

// NewSchema validates set and wraps it as a Schema.
// Every field must be a system field with a unique id and order in its module.
// Modules missing from set get an empty field list.
func NewSchema(set Set) (Schema, error) {
	out := NewSet()
	for m, fields := range set {
		if !m.Valid() {
			return Schema{}, fmt.Errorf("%w: %q", ErrUnknownModule, m)
		}

		ids := make(map[string]bool, len(fields))
		names := make(map[string]bool, len(fields))
		orders := make(map[int]string, len(fields))
		for _, f := range fields {
			if f.ID == "" {
				return Schema{}, fmt.Errorf("%w: %s.%s: id is required", ErrInvalidField, m, f.Name)
			}
			if !f.IsSystem {
				return Schema{}, fmt.Errorf("%w: %s.%s: default fields must be system fields", ErrInvalidField, m, f.ID)
			}
			if err := f.Check(); err != nil {
				return Schema{}, fmt.Errorf("%s: %w", m, err)
			}
			if ids[f.ID] {
				return Schema{}, fmt.Errorf("%w: %s.%s", ErrDuplicateID, m, f.ID)
			}
			if names[f.Name] {
				return Schema{}, fmt.Errorf("%w: %s.%s", ErrDuplicateName, m, f.Name)
			}
			if other, ok := orders[f.Order]; ok {
				return Schema{}, fmt.Errorf("%w: %s: %s and %s share order %d", ErrInvalidField, m, other, f.ID, f.Order)
			}
			ids[f.ID] = true
			names[f.Name] = true
			orders[f.Order] = f.ID
			out[m] = append(out[m], f.Clone())
		}
	}
	return Schema{fields: out}, nil
}

// MustSchema is like NewSchema but panics on an invalid set.
func MustSchema(set Set) Schema {
	s, err := NewSchema(set)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns a copy of the module's system fields in definition order.
func (s Schema) Fields(m Module) []Field {
	src := s.fields[m]
	out := make([]Field, len(src))
	for i, f := range src {
		out[i] = f.Clone()
	}
	return out
}

// Set returns a copy of every module's system fields.
func (s Schema) Set() Set {
	if s.fields == nil {
		return NewSet()
	}
	return s.fields.Clone()
}

// ParseSchemaFile loads a schema from a YAML file.
func ParseSchemaFile(path string) (Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Schema{}, fmt.Errorf("read schema: %w", err)
	}
	return ParseSchema(data)
}

// ParseSchema loads a schema from YAML keyed by module name:
//
//	equipment:
//	  - name: name
//	    label: Equipment Name
//	    type: text
//	    required: true
//	    order: 1
//
// Fields are always system fields; a missing id becomes "<module>_<name>".
func ParseSchema(data []byte) (Schema, error) {
	var raw map[string][]Field
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Schema{}, fmt.Errorf("parse schema: %w", err)
	}

	set := NewSet()
	for key, fields := range raw {
		m, err := ParseModule(key)
		if err != nil {
			return Schema{}, err
		}
		for _, f := range fields {
			f.IsSystem = true
			if f.ID == "" {
				f.ID = string(m) + "_" + f.Name
			}
			set[m] = append(set[m], f)
		}
	}
	return NewSchema(set)
}
