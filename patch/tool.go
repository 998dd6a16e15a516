package patch

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/structured"
	"github.com/tbxark/hrdesk/types"
)

const (
	prefillFormToolName        = "prefill_form"
	prefillFormToolDescription = "Generate RFC6902 JSON Patch operations that fill form fields with details the employee already gave in the conversation."
)

// ToolBasedPatchGenerator asks the model which form fields it can fill from
// the conversation.
type ToolBasedPatchGenerator struct {
	chain *structured.Chain[*Request, UpdateFormArgs]
}

func NewToolBasedPatchGenerator(chatModel model.ToolCallingChatModel) (*ToolBasedPatchGenerator, error) {
	chain, err := structured.NewChain[*Request, UpdateFormArgs](
		chatModel,
		buildPatchPrompt,
		prefillFormToolName,
		prefillFormToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedPatchGenerator{chain: chain}, nil
}

func (g *ToolBasedPatchGenerator) GeneratePatch(ctx context.Context, req *Request) (*UpdateFormArgs, error) {
	result, err := g.chain.Invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}
	if result == nil {
		return &UpdateFormArgs{}, nil
	}
	names := make([]string, 0, len(req.Form.Fields))
	for _, f := range req.Form.Fields {
		names = append(names, f.Name)
	}
	if err := Validate(result.Ops, FieldPaths(names...)); err != nil {
		return nil, fmt.Errorf("generated patches failed validation: %w", err)
	}
	return result, nil
}

func buildPatchPrompt(ctx context.Context, req *Request) ([]*schema.Message, error) {
	systemPrompt := fmt.Sprintf("You are an HR support assistant. Read the conversation and call %s with RFC6902 JSON Patch operations that fill the form. Rules: only use details the employee stated explicitly; never guess emails or names; use add for empty fields; only use allowed paths; checkbox values are true or false; select values must be one of the listed option values; if nothing can be filled, return empty operations.", prefillFormToolName)

	toolReq := &types.ToolRequest{
		Messages: req.Messages,
		Form:     &req.Form,
		Values:   req.Values,
	}
	body, err := types.FormatToolRequest(toolReq)
	if err != nil {
		return nil, fmt.Errorf("format request: %w", err)
	}
	sections := []string{
		body,
		fmt.Sprintf("# Allowed paths:\n%s", formatAllowedPaths(req.Form)),
	}
	if s := formatOptionsSection(req.Form); s != "" {
		sections = append(sections, s)
	}
	return []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(strings.Join(sections, "\n\n")),
	}, nil
}

func formatAllowedPaths(spec types.FormSpec) string {
	if len(spec.Fields) == 0 {
		return "none"
	}
	var sb strings.Builder
	for _, f := range spec.Fields {
		sb.WriteString(fmt.Sprintf("- /%s (%s)\n", escapeJSONPointer(f.Name), f.Type))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatOptionsSection(spec types.FormSpec) string {
	var sb strings.Builder
	for _, f := range spec.Fields {
		if f.Type != types.FieldSelect || len(f.Options) == 0 {
			continue
		}
		values := make([]string, 0, len(f.Options))
		for _, o := range f.Options {
			values = append(values, o.Value)
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", f.Name, strings.Join(values, ", ")))
	}
	if sb.Len() == 0 {
		return ""
	}
	return "# Select options:\n" + strings.TrimRight(sb.String(), "\n")
}
