package field

import (
	"fmt"
	"sort"
	"strings"
)

// Field describes one attribute of a module record and how a form presents it.
type Field struct {
	// ID is stable and unique within a module.
	ID string `json:"id" yaml:"id"`

	// Name is the key a value is stored under in a record.
	// System field names map onto fixed business-object attributes.
	Name string `json:"name" yaml:"name"`

	Label       string `json:"label" yaml:"label"`
	Type        Type   `json:"type" yaml:"type"`
	Required    bool   `json:"required" yaml:"required,omitempty"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`

	// Options lists the allowed values of a select field, in display order.
	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	// DefaultValue seeds blank forms.
	DefaultValue any `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`

	Validation *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`

	// Order controls display order within a module. Not guaranteed unique.
	Order int `json:"order" yaml:"order"`

	// IsSystem marks built-in fields. They are never deleted or written to the overlay.
	IsSystem bool `json:"isSystem" yaml:"isSystem,omitempty"`
}

// Validation holds optional value rules of a field.
type Validation struct {
	Min     *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern string   `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Message string   `json:"message,omitempty" yaml:"message,omitempty"`
}

// Type is the input type of a field.
type Type string

const (
	TypeText     Type = "text"
	TypeNumber   Type = "number"
	TypeSelect   Type = "select"
	TypeTextarea Type = "textarea"
	TypeDate     Type = "date"
	TypeCheckbox Type = "checkbox"
	TypeEmail    Type = "email"
	TypeTel      Type = "tel"
)

// Valid reports whether t is one of the supported input types.
func (t Type) Valid() bool {
	switch t {
	case TypeText, TypeNumber, TypeSelect, TypeTextarea, TypeDate, TypeCheckbox, TypeEmail, TypeTel:
		return true
	}
	return false
}

// ZeroValue returns the blank form value for the type.
func (t Type) ZeroValue() any {
	switch t {
	case TypeNumber:
		return float64(0)
	case TypeCheckbox:
		return false
	default:
		return ""
	}
}

// EquipmentRefName is the field name whose select options are supplied from
// the equipment registry instead of the field's own option list.
const EquipmentRefName = "equipmentId"

// IsEquipmentRef reports whether the field selects an equipment record.
func (f Field) IsEquipmentRef() bool {
	return f.Name == EquipmentRefName && f.Type == TypeSelect
}

// Clone returns a copy that shares no slices or pointers with f.
func (f Field) Clone() Field {
	if f.Options != nil {
		f.Options = append([]string(nil), f.Options...)
	}
	if f.Validation != nil {
		v := f.Validation.clone()
		f.Validation = &v
	}
	return f
}

func (v Validation) clone() Validation {
	if v.Min != nil {
		min := *v.Min
		v.Min = &min
	}
	if v.Max != nil {
		max := *v.Max
		v.Max = &max
	}
	return v
}

// Check verifies a field definition is usable: id, name and label present,
// a known type, and options on select fields.
func (f Field) Check() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidField)
	}
	if strings.TrimSpace(f.Label) == "" {
		return fmt.Errorf("%w: %s: label is required", ErrInvalidField, f.Name)
	}
	if !f.Type.Valid() {
		return fmt.Errorf("%w: %s: %q", ErrInvalidType, f.Name, f.Type)
	}
	if f.Type == TypeSelect && len(f.Options) == 0 && !f.IsEquipmentRef() {
		return fmt.Errorf("%w: %s: select field needs options", ErrInvalidField, f.Name)
	}
	if f.Validation != nil && f.Validation.Min != nil && f.Validation.Max != nil &&
		*f.Validation.Min > *f.Validation.Max {
		return fmt.Errorf("%w: %s: min exceeds max", ErrInvalidField, f.Name)
	}
	return nil
}

// Patch is a partial field update. Nil members leave the field unchanged.
type Patch struct {
	Name         *string     `json:"name,omitempty" yaml:"name,omitempty"`
	Label        *string     `json:"label,omitempty" yaml:"label,omitempty"`
	Type         *Type       `json:"type,omitempty" yaml:"type,omitempty"`
	Required     *bool       `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder  *string     `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Options      *[]string   `json:"options,omitempty" yaml:"options,omitempty"`
	DefaultValue *any        `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Validation   *Validation `json:"validation,omitempty" yaml:"validation,omitempty"`
	Order        *int        `json:"order,omitempty" yaml:"order,omitempty"`

	// Clear resets the named optional attributes before any member above is
	// applied. JSON null cannot express this since it decodes to a nil member.
	Clear []string `json:"clear,omitempty" yaml:"clear,omitempty"`
}

// Attributes a Patch can clear.
const (
	ClearPlaceholder  = "placeholder"
	ClearOptions      = "options"
	ClearDefaultValue = "defaultValue"
	ClearValidation   = "validation"
)

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Label == nil && p.Type == nil && p.Required == nil &&
		p.Placeholder == nil && p.Options == nil && p.DefaultValue == nil &&
		p.Validation == nil && p.Order == nil && len(p.Clear) == 0
}

// CheckClear rejects unknown names in Clear.
func (p Patch) CheckClear() error {
	for _, c := range p.Clear {
		switch c {
		case ClearPlaceholder, ClearOptions, ClearDefaultValue, ClearValidation:
		default:
			return fmt.Errorf("%w: cannot clear %q", ErrInvalidField, c)
		}
	}
	return nil
}

// ChangesIdentity reports whether the patch touches name or type, the
// attributes that bind a system field to its business attribute.
func (p Patch) ChangesIdentity() bool {
	return p.Name != nil || p.Type != nil
}

// Merge layers q over p; members set or cleared in q win.
func (p Patch) Merge(q Patch) Patch {
	p.Clear = append([]string(nil), p.Clear...)
	for _, c := range q.Clear {
		p = p.cleared(c)
	}
	if q.Placeholder != nil {
		p.Clear = without(p.Clear, ClearPlaceholder)
	}
	if q.Options != nil {
		p.Clear = without(p.Clear, ClearOptions)
	}
	if q.DefaultValue != nil {
		p.Clear = without(p.Clear, ClearDefaultValue)
	}
	if q.Validation != nil {
		p.Clear = without(p.Clear, ClearValidation)
	}

	if q.Name != nil {
		p.Name = q.Name
	}
	if q.Label != nil {
		p.Label = q.Label
	}
	if q.Type != nil {
		p.Type = q.Type
	}
	if q.Required != nil {
		p.Required = q.Required
	}
	if q.Placeholder != nil {
		p.Placeholder = q.Placeholder
	}
	if q.Options != nil {
		p.Options = q.Options
	}
	if q.DefaultValue != nil {
		p.DefaultValue = q.DefaultValue
	}
	if q.Validation != nil {
		p.Validation = q.Validation
	}
	if q.Order != nil {
		p.Order = q.Order
	}
	return p
}

func (p Patch) cleared(name string) Patch {
	switch name {
	case ClearPlaceholder:
		p.Placeholder = nil
	case ClearOptions:
		p.Options = nil
	case ClearDefaultValue:
		p.DefaultValue = nil
	case ClearValidation:
		p.Validation = nil
	}
	p.Clear = append(without(p.Clear, name), name)
	return p
}

func without(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Apply returns f with the patch shallow-merged in. ID and IsSystem never change.
func (f Field) Apply(p Patch) Field {
	out := f.Clone()
	for _, c := range p.Clear {
		switch c {
		case ClearPlaceholder:
			out.Placeholder = ""
		case ClearOptions:
			out.Options = nil
		case ClearDefaultValue:
			out.DefaultValue = nil
		case ClearValidation:
			out.Validation = nil
		}
	}
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.Label != nil {
		out.Label = *p.Label
	}
	if p.Type != nil {
		out.Type = *p.Type
	}
	if p.Required != nil {
		out.Required = *p.Required
	}
	if p.Placeholder != nil {
		out.Placeholder = *p.Placeholder
	}
	if p.Options != nil {
		out.Options = append([]string(nil), (*p.Options)...)
	}
	if p.DefaultValue != nil {
		out.DefaultValue = *p.DefaultValue
	}
	if p.Validation != nil {
		v := p.Validation.clone()
		out.Validation = &v
	}
	if p.Order != nil {
		out.Order = *p.Order
	}
	return out
}

// SortByOrder sorts fields ascending by Order, keeping the relative position
// of fields that share an order.
func SortByOrder(fields []Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Order < fields[j].Order
	})
}

// MaxOrder returns the largest Order in fields, or 0 for none.
func MaxOrder(fields []Field) int {
	max := 0
	for _, f := range fields {
		if f.Order > max {
			max = f.Order
		}
	}
	return max
}

// Option is one choice of a select control.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// StaticOptions converts a field's option list to select options.
func StaticOptions(values []string) []Option {
	out := make([]Option, len(values))
	for i, v := range values {
		out[i] = Option{Value: v, Label: v}
	}
	return out
}
