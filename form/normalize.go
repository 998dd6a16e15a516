package form

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tbxark/hrdesk/types"
)

// Issue describes one problem found in a form description.
type Issue struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Field == "" {
		return fmt.Sprintf("field #%d: %s", i.Index, i.Message)
	}
	return fmt.Sprintf("field %q: %s", i.Field, i.Message)
}

// Check reports problems in spec without modifying it.
func Check(spec types.FormSpec) []Issue {
	_, issues := normalize(spec)
	return issues
}

// Normalize returns a copy of spec that satisfies the description invariants.
// Fields without a name and later duplicates are dropped, unknown types become
// text, and select fields get an empty option list when none was given.
func Normalize(spec types.FormSpec) (types.FormSpec, []Issue) {
	out, issues := normalize(spec)
	for _, issue := range issues {
		slog.Warn("form description coerced", "title", spec.Title, "issue", issue.String())
	}
	return out, issues
}

func normalize(spec types.FormSpec) (types.FormSpec, []Issue) {
	var issues []Issue
	out := spec
	out.Fields = make([]types.FieldSpec, 0, len(spec.Fields))
	seen := make(map[string]struct{}, len(spec.Fields))
	for i, f := range spec.Fields {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" {
			issues = append(issues, Issue{Index: i, Message: "missing name, field dropped"})
			continue
		}
		if _, dup := seen[f.Name]; dup {
			issues = append(issues, Issue{Index: i, Field: f.Name, Message: "duplicate name, field dropped"})
			continue
		}
		seen[f.Name] = struct{}{}
		if !f.Type.Valid() {
			issues = append(issues, Issue{Index: i, Field: f.Name, Message: fmt.Sprintf("unknown type %q, using text", f.Type)})
			f.Type = types.FieldText
		}
		if f.Label == "" {
			f.Label = f.Name
		}
		if f.Type == types.FieldSelect && len(f.Options) == 0 {
			issues = append(issues, Issue{Index: i, Field: f.Name, Message: "select without options"})
			f.Options = []types.Option{}
		}
		if len(f.Options) > 0 {
			f.Options = append([]types.Option(nil), f.Options...)
		}
		out.Fields = append(out.Fields, f)
	}
	if len(spec.Prefill) > 0 {
		out.Prefill = make(map[string]any, len(spec.Prefill))
		for k, v := range spec.Prefill {
			if _, ok := seen[k]; !ok {
				issues = append(issues, Issue{Index: -1, Field: k, Message: "prefill for unknown field ignored"})
				continue
			}
			out.Prefill[k] = v
		}
	}
	return out, issues
}

// Defaults returns the empty value of every field: false for checkboxes and "" otherwise.
func Defaults(spec types.FormSpec) types.Values {
	values := make(types.Values, len(spec.Fields))
	for _, f := range spec.Fields {
		values[f.Name] = zeroValue(f.Type)
	}
	return values
}

// InitialValues merges supplied values over the defaults. Keys that are not
// fields of spec are dropped and every value is coerced to its field's type.
func InitialValues(spec types.FormSpec, initial types.Values) types.Values {
	values := Defaults(spec)
	if len(initial) == 0 {
		return values
	}
	for _, f := range spec.Fields {
		if v, ok := initial[f.Name]; ok {
			values[f.Name] = coerce(f.Type, v)
		}
	}
	return values
}
