package designer

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/structured"
	"github.com/tbxark/hrdesk/types"
)

const toolDescription = "Generate a dynamic form when more user information is needed for a ticket (leave, salary issue, etc.)"

// DefaultDesignerSystemPromptTemplate is the default system prompt template used by
// ToolBasedDesigner. The template may contain a single "%s" placeholder for the tool name.
const DefaultDesignerSystemPromptTemplate = `You are a helpful Company Assistant for HR and company-related issues such as leave requests, salary concerns and complaints.

The employee described an issue that needs internal handling. Call the '%s' tool to show a form that collects:
- Full Name (name "fullName", type text, required)
- Email (name "email", type email, required)
- Issue Type (name "issueType", type select with options leave, salary, complaint, other)
- Detailed Description (name "details", type textarea, required)
- Priority (name "priority", type select with options low, medium, high)

Make the form specific to the issue. Use "Leave Request Form" for leave, "Salary Concern Form" for salary issues and "Complaint Submission Form" for complaints.
Field names are camelCase. Every select field needs options. Put anything the employee already told you into "prefill" keyed by field name, and never invent values they did not give.
`

var ErrEmptyForm = errors.New("designed form has no fields")

type designerOptions struct {
	systemPromptTemplate string
}

type Option func(*designerOptions)

func WithDesignerSystemPromptTemplate(tpl string) Option {
	return func(o *designerOptions) {
		o.systemPromptTemplate = tpl
	}
}

type ToolBasedDesigner struct {
	chain *structured.Chain[*types.ToolRequest, types.FormSpec]
}

func NewToolBasedDesigner(chatModel model.ToolCallingChatModel, opts ...Option) (*ToolBasedDesigner, error) {
	options := designerOptions{systemPromptTemplate: DefaultDesignerSystemPromptTemplate}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	systemPrompt := fmt.Sprintf(options.systemPromptTemplate, ToolName)
	chain, err := structured.NewChain[*types.ToolRequest, types.FormSpec](
		chatModel,
		func(ctx context.Context, req *types.ToolRequest) ([]*schema.Message, error) {
			message, err := types.FormatToolRequest(req)
			if err != nil {
				return nil, fmt.Errorf("convert to prompt message failed: %w", err)
			}
			return []*schema.Message{
				schema.SystemMessage(systemPrompt),
				schema.UserMessage(message),
			}, nil
		},
		ToolName,
		toolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedDesigner{chain: chain}, nil
}

func (d *ToolBasedDesigner) DesignForm(ctx context.Context, req *types.ToolRequest) (*types.FormSpec, error) {
	spec, err := d.chain.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	normalized, _ := form.Normalize(*spec)
	if len(normalized.Fields) == 0 {
		return nil, ErrEmptyForm
	}
	if normalized.SubmitButtonText == "" {
		normalized.SubmitButtonText = "Submit"
	}
	return &normalized, nil
}
