package types

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
)

func formatConversationSection(messages []*schema.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		if m == nil || m.Role == schema.System || strings.TrimSpace(m.Content) == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", m.Role, m.Content))
	}
	if sb.Len() == 0 {
		return ""
	}
	return "# Conversation:\n" + strings.TrimRight(sb.String(), "\n")
}

func formatFieldsSection(spec *FormSpec) string {
	if spec == nil || len(spec.Fields) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("# Form: %s\n", spec.Title))
	if spec.Description != "" {
		buf.WriteString(spec.Description + "\n")
	}
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Name", "Label", "Type", "Required")
	for _, f := range spec.Fields {
		required := "no"
		if f.Required {
			required = "yes"
		}
		_ = table.Append(f.Name, f.Label, string(f.Type), required)
	}
	_ = table.Render()
	return buf.String()
}

// FormatValues renders submitted values as a markdown table in field order.
func FormatValues(spec *FormSpec, values Values) string {
	if len(values) == 0 {
		return ""
	}
	var buf strings.Builder
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Value")
	if spec != nil {
		for _, f := range spec.Fields {
			v, ok := values[f.Name]
			if !ok {
				continue
			}
			_ = table.Append(f.Label, displayValue(f, v))
		}
	} else {
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			_ = table.Append(k, fmt.Sprint(values[k]))
		}
	}
	_ = table.Render()
	return buf.String()
}

func displayValue(f FieldSpec, v any) string {
	switch f.Type {
	case FieldCheckbox:
		if b, _ := v.(bool); b {
			return "yes"
		}
		return "no"
	case FieldPassword:
		return "********"
	case FieldSelect:
		s := fmt.Sprint(v)
		for _, o := range f.Options {
			if o.Value == s {
				return o.Label
			}
		}
		return s
	default:
		return fmt.Sprint(v)
	}
}

func formatFieldErrorsSection(spec *FormSpec, errs FieldErrors) string {
	if len(errs) == 0 {
		return ""
	}
	var buf strings.Builder
	buf.WriteString("# Validation errors:\n")
	table := tablewriter.NewTable(&buf, tablewriter.WithRenderer(renderer.NewMarkdown()))
	table.Header("Field", "Error")
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		label := k
		if spec != nil {
			if f, ok := spec.Field(k); ok {
				label = f.Label
			}
		}
		_ = table.Append(label, errs[k])
	}
	_ = table.Render()
	return buf.String()
}

func FormatToolRequest(req *ToolRequest) (string, error) {
	sections := []string{
		fmt.Sprintf("# Current Date: \n %s", time.Now().Format(time.RFC3339)),
	}
	if s := formatConversationSection(req.Messages); s != "" {
		sections = append(sections, s)
	}
	if req.Intent != "" {
		sections = append(sections, fmt.Sprintf("# Detected Intent:\n%s", req.Intent))
	}
	if s := formatFieldsSection(req.Form); s != "" {
		sections = append(sections, s)
		schemaJSON, err := ValuesSchemaJSON(*req.Form)
		if err != nil {
			return "", err
		}
		sections = append(sections, fmt.Sprintf("# Form values schema JSON:\n```json\n%s\n```", schemaJSON))
	}
	if req.Phase != "" {
		sections = append(sections, fmt.Sprintf("# Form Phase:\n%s", req.Phase))
	}
	if s := FormatValues(req.Form, req.Values); s != "" {
		sections = append(sections, "# Submitted values:\n"+s)
	}
	if s := formatFieldErrorsSection(req.Form, req.FieldErrors); s != "" {
		sections = append(sections, s)
	}
	if len(req.Result) > 0 {
		keys := make([]string, 0, len(req.Result))
		for k := range req.Result {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var sb strings.Builder
		sb.WriteString("# Result:\n")
		for _, k := range keys {
			sb.WriteString(fmt.Sprintf("- %s: %v\n", k, req.Result[k]))
		}
		sections = append(sections, strings.TrimRight(sb.String(), "\n"))
	}
	return strings.Join(sections, "\n\n"), nil
}
