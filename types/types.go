package types

import (
	"github.com/cloudwego/eino/schema"
)

// FieldType is the closed set of input kinds a form field can take.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldNumber   FieldType = "number"
	FieldPassword FieldType = "password"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
	FieldDate     FieldType = "date"
)

var FieldTypes = []FieldType{
	FieldText, FieldEmail, FieldNumber, FieldPassword,
	FieldTextarea, FieldSelect, FieldCheckbox, FieldDate,
}

func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldEmail, FieldNumber, FieldPassword,
		FieldTextarea, FieldSelect, FieldCheckbox, FieldDate:
		return true
	default:
		return false
	}
}

type Option struct {
	Value string `json:"value" jsonschema:"required,description=Machine value submitted for this option"`
	Label string `json:"label" jsonschema:"required,description=Text shown to the user"`
}

type FieldSpec struct {
	Name        string    `json:"name" jsonschema:"required,description=Unique key of the field inside the form"`
	Label       string    `json:"label" jsonschema:"required,description=Human readable caption"`
	Type        FieldType `json:"type" jsonschema:"required,enum=text,enum=email,enum=number,enum=password,enum=textarea,enum=select,enum=checkbox,enum=date"`
	Required    bool      `json:"required,omitempty" jsonschema:"description=Whether the field must be filled before submitting"`
	Placeholder string    `json:"placeholder,omitempty"`
	HelperText  string    `json:"helperText,omitempty" jsonschema:"description=Short hint shown below the input"`
	Options     []Option  `json:"options,omitempty" jsonschema:"description=Choices for select fields"`

	// Validation is an optional extra rule. It is never serialised.
	Validation Validator `json:"-"`
}

type FormSpec struct {
	Title            string         `json:"title" jsonschema:"required,description=Form title shown above the fields"`
	Description      string         `json:"description,omitempty" jsonschema:"description=One or two sentences explaining the form"`
	Fields           []FieldSpec    `json:"fields" jsonschema:"required,description=Ordered list of fields"`
	SubmitButtonText string         `json:"submitButtonText,omitempty" jsonschema:"description=Label of the submit button"`
	Prefill          map[string]any `json:"prefill,omitempty" jsonschema:"description=Values already known from the conversation keyed by field name"`
}

func (s FormSpec) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Values maps a field name to its current value: bool for checkboxes, string otherwise.
type Values map[string]any

func (v Values) Clone() Values {
	if v == nil {
		return nil
	}
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// FieldErrors maps a field name to its validation message. A missing key means no error.
type FieldErrors map[string]string

// Phase is the lifecycle position of a form.
type Phase string

const (
	PhaseEditable   Phase = "editable"
	PhaseSubmitting Phase = "submitting"
	PhaseLocked     Phase = "locked"
)

// ToolRequest is the context handed to every model-backed component.
type ToolRequest struct {
	Messages    []*schema.Message `json:"messages"`
	Intent      string            `json:"intent,omitempty"`
	Form        *FormSpec         `json:"form,omitempty"`
	Values      Values            `json:"values,omitempty"`
	Phase       Phase             `json:"phase,omitempty"`
	FieldErrors FieldErrors       `json:"field_errors,omitempty"`
	Result      map[string]any    `json:"result,omitempty"`
}

func (r *ToolRequest) LastUserInput() string {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if m := r.Messages[i]; m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}
