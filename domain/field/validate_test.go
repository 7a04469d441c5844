package field_test

import (
	"encoding/json"
	"testing"

	"github.com/artpar/maintforms/domain/field"
)

func floatPtr(f float64) *float64 {
	return &f
}

func TestValidateValue(t *testing.T) {
	hours := field.Field{
		Name:       "hours",
		Label:      "Hours",
		Type:       field.TypeNumber,
		Required:   true,
		Validation: &field.Validation{Min: floatPtr(10), Max: floatPtr(100)},
	}
	code := field.Field{
		Name:       "code",
		Label:      "Code",
		Type:       field.TypeText,
		Validation: &field.Validation{Pattern: `^[A-Z]{3}-[0-9]{2}$`, Message: "use AAA-00"},
	}
	optional := field.Field{
		Name:       "qty",
		Label:      "Qty",
		Type:       field.TypeNumber,
		Validation: &field.Validation{Min: floatPtr(0)},
	}

	tests := []struct {
		name     string
		field    field.Field
		value    any
		wantOK   bool
		wantRule string
		wantMsg  string
	}{
		{"required empty string", hours, "", false, field.RuleRequired, "Hours is required"},
		{"required nil", hours, nil, false, field.RuleRequired, "Hours is required"},
		{"below min", hours, 5, false, field.RuleMin, "Hours must be at least 10"},
		{"above max", hours, 101.5, false, field.RuleMax, "Hours must be at most 100"},
		{"numeric string below min", hours, "9", false, field.RuleMin, "Hours must be at least 10"},
		{"in range", hours, float64(50), true, "", ""},
		{"boundary min", hours, 10, true, "", ""},
		{"boundary max", hours, int64(100), true, "", ""},
		{"pattern mismatch uses custom message", code, "abc", false, field.RulePattern, "use AAA-00"},
		{"pattern match", code, "ABC-12", true, "", ""},
		{"pattern ignores non-strings", code, 42, true, "", ""},
		{"optional empty skips rules", optional, "", true, "", ""},
		{"optional negative", optional, -1, false, field.RuleMin, "Qty must be at least 0"},
		{"non-numeric skips numeric rules", optional, "n/a", true, "", ""},
		{"no rules", field.Field{Name: "x", Type: field.TypeText}, "anything", true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := field.ValidateValue(tt.field, tt.value)
			if got.Valid != tt.wantOK {
				t.Fatalf("Valid = %v, want %v (%+v)", got.Valid, tt.wantOK, got)
			}
			if got.Rule != tt.wantRule {
				t.Errorf("Rule = %q, want %q", got.Rule, tt.wantRule)
			}
			if got.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateValue_RequiredBeforeMin(t *testing.T) {
	f := field.Field{
		Name:       "level",
		Label:      "Level",
		Type:       field.TypeNumber,
		Required:   true,
		Validation: &field.Validation{Min: floatPtr(10), Message: "too low"},
	}

	if got := field.ValidateValue(f, ""); got.Rule != field.RuleRequired {
		t.Errorf("empty value rule = %q, want required", got.Rule)
	}
	got := field.ValidateValue(f, 5)
	if got.Rule != field.RuleMin {
		t.Errorf("5 rule = %q, want min", got.Rule)
	}
	if got.Message != "too low" {
		t.Errorf("Message = %q, want custom message", got.Message)
	}
}

func TestValidateValue_InvalidPatternSkipped(t *testing.T) {
	f := field.Field{
		Name:       "x",
		Type:       field.TypeText,
		Validation: &field.Validation{Pattern: "(["},
	}
	if got := field.ValidateValue(f, "value"); !got.Valid {
		t.Errorf("invalid regex should be skipped, got %+v", got)
	}
}

func TestValidateValue_LabelFallsBackToName(t *testing.T) {
	f := field.Field{Name: "serial", Type: field.TypeText, Required: true}
	got := field.ValidateValue(f, nil)
	if got.Message != "serial is required" {
		t.Errorf("Message = %q", got.Message)
	}
}

func TestValidateValue_NumericKinds(t *testing.T) {
	f := field.Field{
		Name:       "pressure",
		Label:      "Pressure",
		Type:       field.TypeNumber,
		Validation: &field.Validation{Min: floatPtr(10), Max: floatPtr(200)},
	}

	tests := []struct {
		name  string
		value any
		rule  string
	}{
		{"int8 below", int8(-1), field.RuleMin},
		{"int16 above", int16(300), field.RuleMax},
		{"int32 below", int32(-1), field.RuleMin},
		{"uint8 below", uint8(5), field.RuleMin},
		{"uint16 above", uint16(1000), field.RuleMax},
		{"uint32 above", uint32(500), field.RuleMax},
		{"uint32 within", uint32(50), ""},
		{"json.Number below", json.Number("2.5"), field.RuleMin},
		{"json.Number above", json.Number("1e3"), field.RuleMax},
		{"json.Number within", json.Number("42"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := field.ValidateValue(f, tt.value)
			if got.Rule != tt.rule {
				t.Errorf("ValidateValue(%v) rule = %q, want %q", tt.value, got.Rule, tt.rule)
			}
			if got.Valid != (tt.rule == "") {
				t.Errorf("ValidateValue(%v) valid = %v", tt.value, got.Valid)
			}
		})
	}
}
