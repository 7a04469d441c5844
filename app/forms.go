package app

import (
	"context"

	"github.com/artpar/maintforms/domain/field"
	"github.com/artpar/maintforms/ports"
	"github.com/rs/zerolog"
)

// Control is one rendered input of a form.
type Control struct {
	Field    field.Field    `json:"field"`
	Options  []field.Option `json:"options,omitempty"`
	HelpText string         `json:"helpText,omitempty"`
	Value    any            `json:"value"`
}

// Form is the render-ready description of a module's form: one control per
// field in display order.
type Form struct {
	Module   field.Module `json:"module"`
	Controls []Control    `json:"controls"`
}

// Values returns the current value of every control keyed by field name.
func (f *Form) Values() map[string]any {
	out := make(map[string]any, len(f.Controls))
	for _, c := range f.Controls {
		out[c.Field.Name] = c.Value
	}
	return out
}

// Set changes the value of the control bound to the named field. It reports
// false when the form has no such field.
func (f *Form) Set(name string, value any) bool {
	for i := range f.Controls {
		if f.Controls[i].Field.Name == name {
			f.Controls[i].Value = value
			return true
		}
	}
	return false
}

// OnChange returns a callback that writes changes back into the form.
func (f *Form) OnChange() OnChange {
	return func(name string, value any) {
		f.Set(name, value)
	}
}

// Validate checks every control value against its field.
func (f *Form) Validate() RecordValidation {
	out := RecordValidation{Valid: true, Fields: make(map[string]field.Result, len(f.Controls))}
	for _, c := range f.Controls {
		res := field.ValidateValue(c.Field, c.Value)
		out.Fields[c.Field.Name] = res
		if !res.Valid {
			out.Valid = false
		}
	}
	return out
}

// OnChange is invoked by a renderer when the user edits a control.
type OnChange func(fieldName string, value any)

// Renderer draws a form and reports edits through onChange.
// Implementations must emit exactly one control per field, in order, and
// source equipment reference choices from the control's Options.
type Renderer interface {
	Render(ctx context.Context, form Form, onChange OnChange) error
}

// FormService builds form data and render-ready forms from the registry.
type FormService struct {
	registry  *Registry
	equipment ports.EquipmentOptions
	logger    zerolog.Logger
}

// NewFormService creates a form service. equipment may be nil, in which case
// equipment reference fields fall back to their static options.
func NewFormService(registry *Registry, equipment ports.EquipmentOptions, logger zerolog.Logger) *FormService {
	return &FormService{
		registry:  registry,
		equipment: equipment,
		logger:    logger,
	}
}

// GenerateFormData returns one value per field of module m. A value present
// in existing wins, then the field's default, then the zero value of its type.
// Keys of existing that match no field are dropped.
func (s *FormService) GenerateFormData(ctx context.Context, m field.Module, existing map[string]any) (map[string]any, error) {
	fields, err := s.registry.ModuleFields(ctx, m)
	if err != nil {
		return nil, err
	}
	return formData(fields, existing), nil
}

func formData(fields []field.Field, existing map[string]any) map[string]any {
	data := make(map[string]any, len(fields))
	for _, f := range fields {
		data[f.Name] = initialValue(f, existing)
	}
	return data
}

func initialValue(f field.Field, existing map[string]any) any {
	if v, ok := existing[f.Name]; ok && v != nil {
		return v
	}
	if f.DefaultValue != nil {
		return f.DefaultValue
	}
	return f.Type.ZeroValue()
}

// BuildForm returns the form of module m prefilled from existing.
func (s *FormService) BuildForm(ctx context.Context, m field.Module, existing map[string]any) (Form, error) {
	fields, err := s.registry.ModuleFields(ctx, m)
	if err != nil {
		return Form{}, err
	}

	var equipment []field.Option
	loaded := false

	form := Form{Module: m, Controls: make([]Control, 0, len(fields))}
	for _, f := range fields {
		c := Control{
			Field: f,
			Value: initialValue(f, existing),
		}
		if f.Validation != nil {
			c.HelpText = f.Validation.Message
		}

		switch {
		case f.IsEquipmentRef():
			if !loaded {
				equipment = s.equipmentOptions(ctx)
				loaded = true
			}
			c.Options = equipment
			if len(c.Options) == 0 {
				c.Options = field.StaticOptions(f.Options)
			}
		case f.Type == field.TypeSelect:
			c.Options = field.StaticOptions(f.Options)
		}
		form.Controls = append(form.Controls, c)
	}
	return form, nil
}

// Render builds the form of module m and hands it to renderer.
func (s *FormService) Render(ctx context.Context, renderer Renderer, m field.Module, existing map[string]any) (Form, error) {
	form, err := s.BuildForm(ctx, m, existing)
	if err != nil {
		return Form{}, err
	}
	if err := renderer.Render(ctx, form, form.OnChange()); err != nil {
		return Form{}, err
	}
	return form, nil
}

func (s *FormService) equipmentOptions(ctx context.Context) []field.Option {
	if s.equipment == nil {
		return nil
	}
	opts, err := s.equipment.EquipmentOptions(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("equipment options unavailable")
		return nil
	}
	return opts
}
