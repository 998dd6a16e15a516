package dialogue

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/intent"
	"github.com/tbxark/hrdesk/ticket"
	"github.com/tbxark/hrdesk/types"
)

const (
	greetingReply = "Hello! I'm your company assistant. I can help with leave requests, salary concerns, complaints and other HR questions."
	inquiryReply  = "I can help you apply for leave, raise a salary concern or submit a complaint to HR. Tell me what you need and I'll open the right form for you."
)

// LocalDialogueGenerator answers from fixed templates.
type LocalDialogueGenerator struct{}

func NewLocalDialogueGenerator() *LocalDialogueGenerator {
	return &LocalDialogueGenerator{}
}

func (g *LocalDialogueGenerator) GenerateDialogue(ctx context.Context, req *types.ToolRequest) (string, error) {
	switch req.Intent {
	case string(intent.SmallTalk):
		return greetingReply, nil
	case string(intent.Inquiry):
		return inquiryReply, nil
	case string(intent.Request), SituationFormShown:
		if req.Form == nil {
			return inquiryReply, nil
		}
		button := req.Form.SubmitButtonText
		if button == "" {
			button = "Submit"
		}
		return fmt.Sprintf("Please fill in the %s below and press %s when you are done.", req.Form.Title, button), nil
	case SituationFormInvalid:
		return formatFieldErrors(req), nil
	case SituationTicketCreated:
		return formatTicketConfirmation(req.Result), nil
	default:
		return inquiryReply, nil
	}
}

func (g *LocalDialogueGenerator) GenerateDialogueStream(ctx context.Context, req *types.ToolRequest) (*schema.StreamReader[string], error) {
	message, err := g.GenerateDialogue(ctx, req)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]string{message}), nil
}

func formatFieldErrors(req *types.ToolRequest) string {
	if len(req.FieldErrors) == 0 {
		return "Please check the form and try again."
	}
	var sb strings.Builder
	sb.WriteString("Some fields need your attention:\n")
	if req.Form != nil {
		for _, f := range req.Form.Fields {
			if msg, ok := req.FieldErrors[f.Name]; ok {
				sb.WriteString("- " + msg + "\n")
			}
		}
	} else {
		keys := make([]string, 0, len(req.FieldErrors))
		for k := range req.FieldErrors {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			sb.WriteString("- " + req.FieldErrors[k] + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatTicketConfirmation(result map[string]any) string {
	var sb strings.Builder
	sb.WriteString(ticket.SuccessMessage)
	sb.WriteString("\n\n")
	for _, row := range []struct{ key, label string }{
		{"ticketId", "Ticket ID"},
		{"name", "Name"},
		{"issueType", "Issue Type"},
		{"priority", "Priority"},
	} {
		if v, ok := result[row.key]; ok && v != "" {
			sb.WriteString(fmt.Sprintf("%s: %v\n", row.label, v))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

type FailbackDialogueGenerator struct {
	generators []Generator
}

func NewFailbackDialogueGenerator(generators ...Generator) *FailbackDialogueGenerator {
	return &FailbackDialogueGenerator{generators: generators}
}

func (g *FailbackDialogueGenerator) GenerateDialogue(ctx context.Context, req *types.ToolRequest) (string, error) {
	var lastErr error
	for _, generator := range g.generators {
		reply, err := generator.GenerateDialogue(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("all dialogue generators failed: %w", lastErr)
}

func (g *FailbackDialogueGenerator) GenerateDialogueStream(ctx context.Context, req *types.ToolRequest) (*schema.StreamReader[string], error) {
	var lastErr error
	for _, generator := range g.generators {
		stream, err := generator.GenerateDialogueStream(ctx, req)
		if err == nil {
			return stream, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all dialogue generators failed: %w", lastErr)
}
