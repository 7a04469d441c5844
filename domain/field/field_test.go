package field_test

import (
	"errors"
	"testing"

	"github.com/artpar/maintforms/domain/field"
)

func TestParseModule(t *testing.T) {
	tests := []struct {
		in      string
		want    field.Module
		wantErr bool
	}{
		{"equipment", field.ModuleEquipment, false},
		{"WorkOrders", field.ModuleWorkOrders, false},
		{" inventory ", field.ModuleInventory, false},
		{"scheduling", field.ModuleScheduling, false},
		{"dashboard", field.ModuleDashboard, false},
		{"assets", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := field.ParseModule(tt.in)
			if tt.wantErr {
				if !errors.Is(err, field.ErrUnknownModule) {
					t.Fatalf("err = %v, want ErrUnknownModule", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestType_ZeroValue(t *testing.T) {
	if v := field.TypeNumber.ZeroValue(); v != float64(0) {
		t.Errorf("number zero = %#v", v)
	}
	if v := field.TypeCheckbox.ZeroValue(); v != false {
		t.Errorf("checkbox zero = %#v", v)
	}
	for _, typ := range []field.Type{field.TypeText, field.TypeSelect, field.TypeDate, field.TypeEmail, field.TypeTel, field.TypeTextarea} {
		if v := typ.ZeroValue(); v != "" {
			t.Errorf("%s zero = %#v, want empty string", typ, v)
		}
	}
}

func TestField_Apply(t *testing.T) {
	orig := field.Field{
		ID:       "f1",
		Name:     "rpm",
		Label:    "RPM",
		Type:     field.TypeNumber,
		Options:  nil,
		Order:    3,
		IsSystem: false,
	}

	label := "Rated RPM"
	order := 7
	required := true
	got := orig.Apply(field.Patch{Label: &label, Order: &order, Required: &required})

	if got.ID != "f1" || got.Name != "rpm" || got.Type != field.TypeNumber {
		t.Errorf("identity changed: %+v", got)
	}
	if got.Label != label || got.Order != 7 || !got.Required {
		t.Errorf("patch not applied: %+v", got)
	}
	if orig.Label != "RPM" {
		t.Error("Apply mutated the original")
	}
}

func TestField_CloneIsolatesOptions(t *testing.T) {
	f := field.Field{Name: "s", Type: field.TypeSelect, Options: []string{"a", "b"},
		Validation: &field.Validation{Min: floatPtr(1)}}
	c := f.Clone()
	c.Options[0] = "z"
	*c.Validation.Min = 9

	if f.Options[0] != "a" {
		t.Error("clone shares options slice")
	}
	if *f.Validation.Min != 1 {
		t.Error("clone shares validation")
	}
}

func TestField_Check(t *testing.T) {
	tests := []struct {
		name    string
		field   field.Field
		wantErr error
	}{
		{"ok", field.Field{Name: "a", Label: "A", Type: field.TypeText}, nil},
		{"missing name", field.Field{Label: "A", Type: field.TypeText}, field.ErrInvalidField},
		{"missing label", field.Field{Name: "a", Type: field.TypeText}, field.ErrInvalidField},
		{"bad type", field.Field{Name: "a", Label: "A", Type: "color"}, field.ErrInvalidType},
		{"select without options", field.Field{Name: "a", Label: "A", Type: field.TypeSelect}, field.ErrInvalidField},
		{"equipment ref without options", field.Field{Name: "equipmentId", Label: "E", Type: field.TypeSelect}, nil},
		{"min above max", field.Field{Name: "a", Label: "A", Type: field.TypeNumber,
			Validation: &field.Validation{Min: floatPtr(5), Max: floatPtr(1)}}, field.ErrInvalidField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.field.Check()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSortByOrder_Stable(t *testing.T) {
	fields := []field.Field{
		{ID: "sys", Order: 2},
		{ID: "a", Order: 1},
		{ID: "custom", Order: 2},
		{ID: "b", Order: 0},
	}
	field.SortByOrder(fields)

	want := []string{"b", "a", "sys", "custom"}
	for i, id := range want {
		if fields[i].ID != id {
			t.Fatalf("position %d = %s, want %s", i, fields[i].ID, id)
		}
	}
}

func TestPatch_Merge(t *testing.T) {
	a, b := "first", "second"
	one, two := 1, 2
	p := field.Patch{Label: &a, Order: &one}.Merge(field.Patch{Order: &two})
	if *p.Label != "first" || *p.Order != 2 {
		t.Errorf("merge = label %s order %d", *p.Label, *p.Order)
	}
	p = p.Merge(field.Patch{Label: &b})
	if *p.Label != "second" {
		t.Errorf("label = %s", *p.Label)
	}
	if !(field.Patch{}).IsEmpty() {
		t.Error("zero patch should be empty")
	}
}

func TestPatch_Clear(t *testing.T) {
	var def any = "Medium"
	orig := field.Field{
		ID:           "custom_1",
		Name:         "risk",
		Label:        "Risk",
		Type:         field.TypeText,
		Placeholder:  "low/medium/high",
		DefaultValue: def,
		Validation:   &field.Validation{Pattern: "^[a-z]+$"},
	}

	p := field.Patch{Clear: []string{field.ClearDefaultValue, field.ClearValidation}}
	if p.IsEmpty() {
		t.Fatal("patch with clears should not be empty")
	}
	if err := p.CheckClear(); err != nil {
		t.Fatalf("CheckClear() error = %v", err)
	}

	got := orig.Apply(p)
	if got.DefaultValue != nil || got.Validation != nil {
		t.Errorf("Apply kept cleared attributes: %+v", got)
	}
	if got.Placeholder != "low/medium/high" {
		t.Errorf("Placeholder = %q, want untouched", got.Placeholder)
	}
	if orig.Validation == nil || orig.DefaultValue == nil {
		t.Error("Apply mutated the original")
	}

	if err := (field.Patch{Clear: []string{"name"}}).CheckClear(); !errors.Is(err, field.ErrInvalidField) {
		t.Errorf("CheckClear(name) error = %v, want ErrInvalidField", err)
	}
}

func TestPatch_MergeClear(t *testing.T) {
	ph := "Serial"
	var def any = "x"

	// A later clear drops an earlier value.
	p := field.Patch{Placeholder: &ph, DefaultValue: &def}.
		Merge(field.Patch{Clear: []string{field.ClearPlaceholder}})
	if p.Placeholder != nil || p.DefaultValue == nil {
		t.Errorf("merge = %+v, want placeholder cleared and default kept", p)
	}
	if len(p.Clear) != 1 || p.Clear[0] != field.ClearPlaceholder {
		t.Errorf("Clear = %v", p.Clear)
	}

	// A later value cancels an earlier clear.
	p = p.Merge(field.Patch{Placeholder: &ph})
	if p.Placeholder == nil || *p.Placeholder != "Serial" || len(p.Clear) != 0 {
		t.Errorf("merge = %+v, want placeholder set and no clears", p)
	}
}
