package field

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Rule names reported in a failed Result.
const (
	RuleRequired = "required"
	RuleMin      = "min"
	RuleMax      = "max"
	RulePattern  = "pattern"
)

// Result is the outcome of validating one value.
type Result struct {
	Valid   bool   `json:"isValid"`
	Message string `json:"message,omitempty"`
	Rule    string `json:"rule,omitempty"`
}

func pass() Result {
	return Result{Valid: true}
}

func fail(rule, message string) Result {
	return Result{Valid: false, Rule: rule, Message: message}
}

// ValidateValue checks v against the field's rules and reports the first
// failure, in the order required, min, max, pattern.
// This is a PURE function and never panics.
func ValidateValue(f Field, v any) Result {
	if isEmpty(v) {
		if f.Required {
			return fail(RuleRequired, fmt.Sprintf("%s is required", f.caption()))
		}
		return pass()
	}

	rules := f.Validation
	if rules == nil {
		return pass()
	}

	if n, ok := toFloat64(v); ok {
		if rules.Min != nil && n < *rules.Min {
			return fail(RuleMin, rules.messageOr(
				fmt.Sprintf("%s must be at least %s", f.caption(), formatNumber(*rules.Min))))
		}
		if rules.Max != nil && n > *rules.Max {
			return fail(RuleMax, rules.messageOr(
				fmt.Sprintf("%s must be at most %s", f.caption(), formatNumber(*rules.Max))))
		}
	}

	if rules.Pattern != "" {
		if s, ok := v.(string); ok {
			re, err := regexp.Compile(rules.Pattern)
			if err == nil && !re.MatchString(s) {
				return fail(RulePattern, rules.messageOr(
					fmt.Sprintf("%s has an invalid format", f.caption())))
			}
		}
	}

	return pass()
}

func (v *Validation) messageOr(generated string) string {
	if v.Message != "" {
		return v.Message
	}
	return generated
}

func (f Field) caption() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// isEmpty treats nil and the empty string as "no value".
func isEmpty(v any) bool {
	switch s := v.(type) {
	case nil:
		return true
	case string:
		return s == ""
	case *string:
		return s == nil || *s == ""
	}
	return false
}

// toFloat64 converts numeric values and numeric strings.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
