package types

import (
	"encoding/json"

	"github.com/eino-contrib/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ValuesSchema describes the values object a form submits.
func ValuesSchema(spec FormSpec) *jsonschema.Schema {
	props := orderedmap.New[string, *jsonschema.Schema]()
	var required []string
	for _, f := range spec.Fields {
		props.Set(f.Name, fieldSchema(f))
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Title:                spec.Title,
		Description:          spec.Description,
		Properties:           props,
		Required:             required,
		AdditionalProperties: jsonschema.FalseSchema,
	}
}

func fieldSchema(f FieldSpec) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Title:       f.Label,
		Description: f.HelperText,
	}
	switch f.Type {
	case FieldCheckbox:
		s.Type = "boolean"
	case FieldEmail:
		s.Type = "string"
		s.Format = "email"
	case FieldDate:
		s.Type = "string"
		s.Format = "date"
	case FieldSelect:
		s.Type = "string"
		for _, o := range f.Options {
			s.Enum = append(s.Enum, o.Value)
		}
	case FieldNumber:
		s.Type = "string"
		s.Pattern = `^-?[0-9]*\.?[0-9]*$`
	case FieldText, FieldPassword, FieldTextarea:
		s.Type = "string"
	default:
		s.Type = "string"
	}
	return s
}

func ValuesSchemaJSON(spec FormSpec) (string, error) {
	raw, err := json.Marshal(ValuesSchema(spec))
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
