package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tbxark/hrdesk/types"
)

func zeroValue(t types.FieldType) any {
	switch t {
	case types.FieldCheckbox:
		return false
	case types.FieldText, types.FieldEmail, types.FieldNumber, types.FieldPassword,
		types.FieldTextarea, types.FieldSelect, types.FieldDate:
		return ""
	default:
		return ""
	}
}

func coerce(t types.FieldType, raw any) any {
	if t == types.FieldCheckbox {
		switch v := raw.(type) {
		case bool:
			return v
		case string:
			switch strings.ToLower(strings.TrimSpace(v)) {
			case "true", "on", "1", "yes":
				return true
			}
			return false
		default:
			return false
		}
	}
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case bool:
		return !val
	default:
		return false
	}
}

// builtinRule is the type-specific check run after the required rule.
func builtinRule(t types.FieldType, v any) string {
	switch t {
	case types.FieldEmail:
		s, _ := v.(string)
		if s != "" && !types.EmailPattern.MatchString(s) {
			return "Invalid email address."
		}
	case types.FieldText, types.FieldNumber, types.FieldPassword, types.FieldTextarea,
		types.FieldSelect, types.FieldCheckbox, types.FieldDate:
	}
	return ""
}

// checkField applies required, type and custom rules in that order. The last
// rule that produces a message wins.
func checkField(f types.FieldSpec, v any, custom types.Validator) string {
	var msg string
	if f.Required && isEmpty(v) {
		msg = fmt.Sprintf("%s is required.", f.Label)
	}
	if m := builtinRule(f.Type, v); m != "" {
		msg = m
	}
	if custom != nil {
		if err := custom.Validate(v); err != nil {
			msg = err.Error()
		}
	}
	return msg
}
