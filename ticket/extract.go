package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/structured"
	"github.com/tbxark/hrdesk/types"
)

// Extractor turns submitted form values into ticket input.
type Extractor interface {
	Extract(ctx context.Context, req *types.ToolRequest) (*Input, error)
}

var errNoForm = errors.New("request carries no form")

// LocalExtractor maps values by field name and type.
type LocalExtractor struct{}

func NewLocalExtractor() *LocalExtractor {
	return &LocalExtractor{}
}

func matchField(name string, candidates ...string) bool {
	n := strings.ToLower(name)
	for _, c := range candidates {
		if n == c {
			return true
		}
	}
	return false
}

func (e *LocalExtractor) Extract(ctx context.Context, req *types.ToolRequest) (*Input, error) {
	if req.Form == nil {
		return nil, errNoForm
	}
	in := &Input{}
	var extra []string
	for _, f := range req.Form.Fields {
		var value string
		if v, ok := req.Values[f.Name]; ok && v != nil {
			value = strings.TrimSpace(fmt.Sprint(v))
		}
		switch {
		case in.Name == "" && matchField(f.Name, "fullname", "name", "employeename"):
			in.Name = value
		case in.Email == "" && (f.Type == types.FieldEmail || matchField(f.Name, "email", "emailaddress")):
			in.Email = value
		case in.IssueType == "" && matchField(f.Name, "issuetype", "issue", "category", "type"):
			in.IssueType = value
		case in.Details == "" && matchField(f.Name, "details", "description", "reason", "message"):
			in.Details = value
		case in.Priority == "" && matchField(f.Name, "priority", "urgency"):
			in.Priority = Priority(value)
		default:
			if value != "" && f.Type != types.FieldPassword {
				extra = append(extra, fmt.Sprintf("%s: %s", f.Label, value))
			}
		}
	}
	if in.IssueType == "" {
		in.IssueType = issueFromTitle(req.Form.Title)
	}
	if len(extra) > 0 {
		lines := strings.Join(extra, "\n")
		if in.Details == "" {
			in.Details = lines
		} else {
			in.Details += "\n\n" + lines
		}
	}
	return in, nil
}

func issueFromTitle(title string) string {
	t := strings.ToLower(title)
	for _, issue := range []string{"leave", "salary", "complaint"} {
		if strings.Contains(t, issue) {
			return issue
		}
	}
	return "other"
}

const extractSystemPrompt = `You are a helpful Company Assistant. The employee filled and submitted a form.
Call the 'createTicket' tool using the submitted information. Copy the name, email and priority exactly as submitted. Summarise everything else relevant into details. Use issueType leave, salary, complaint or other.`

type ToolBasedExtractor struct {
	chain *structured.Chain[*types.ToolRequest, Input]
}

func NewToolBasedExtractor(chatModel model.ToolCallingChatModel) (*ToolBasedExtractor, error) {
	chain, err := structured.NewChain[*types.ToolRequest, Input](
		chatModel,
		func(ctx context.Context, req *types.ToolRequest) ([]*schema.Message, error) {
			message, err := types.FormatToolRequest(req)
			if err != nil {
				return nil, fmt.Errorf("convert to prompt message failed: %w", err)
			}
			return []*schema.Message{
				schema.SystemMessage(extractSystemPrompt),
				schema.UserMessage(message),
			}, nil
		},
		ToolName,
		toolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedExtractor{chain: chain}, nil
}

func (e *ToolBasedExtractor) Extract(ctx context.Context, req *types.ToolRequest) (*Input, error) {
	if req.Form == nil {
		return nil, errNoForm
	}
	in, err := e.chain.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := in.Normalize(); err != nil {
		return nil, err
	}
	return in, nil
}

type FailbackExtractor struct {
	extractors []Extractor
}

func NewFailbackExtractor(extractors ...Extractor) *FailbackExtractor {
	return &FailbackExtractor{extractors: extractors}
}

func (e *FailbackExtractor) Extract(ctx context.Context, req *types.ToolRequest) (*Input, error) {
	var lastErr error
	for _, ex := range e.extractors {
		in, err := ex.Extract(ctx, req)
		if err == nil {
			return in, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all ticket extractors failed: %w", lastErr)
}
