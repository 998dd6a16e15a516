package designer

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbxark/hrdesk/types"
)

var issueKeywords = []struct {
	issue    IssueType
	keywords []string
}{
	{IssueLeave, []string{"leave", "vacation", "time off", "day off", "days off", "holiday", "sick"}},
	{IssueSalary, []string{"salary", "payroll", "pay slip", "payslip", "paid", "bonus", "reimburse"}},
	{IssueComplaint, []string{"complain", "complaint", "harass", "bully", "unfair", "manager"}},
}

// DetectIssueType guesses the request category from free text.
func DetectIssueType(text string) IssueType {
	normalized := strings.ToLower(text)
	for _, entry := range issueKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(normalized, kw) {
				return entry.issue
			}
		}
	}
	return IssueOther
}

func titleFor(issue IssueType) (title, description string) {
	switch issue {
	case IssueLeave:
		return "Leave Request Form", "Please fill in the details below to submit your leave request."
	case IssueSalary:
		return "Salary Concern Form", "Tell us about the salary issue so payroll can look into it."
	case IssueComplaint:
		return "Complaint Submission Form", "Describe your complaint. HR treats every submission confidentially."
	default:
		return "Support Request Form", "Please fill in the details below so HR can help you."
	}
}

// TicketForm returns the standard ticket form for an issue category.
func TicketForm(issue IssueType) types.FormSpec {
	title, description := titleFor(issue)
	detailsPlaceholder := "Describe your issue"
	if issue == IssueLeave {
		detailsPlaceholder = "Dates, leave type and anything your manager should know"
	}
	return types.FormSpec{
		Title:       title,
		Description: description,
		Fields: []types.FieldSpec{
			{Name: "fullName", Label: "Full Name", Type: types.FieldText, Required: true, Placeholder: "Jane Doe"},
			{Name: "email", Label: "Email", Type: types.FieldEmail, Required: true, Placeholder: "jane@company.com", HelperText: "We send ticket updates here."},
			{Name: "issueType", Label: "Issue Type", Type: types.FieldSelect, Required: true, Options: IssueTypes},
			{Name: "details", Label: "Detailed Description", Type: types.FieldTextarea, Required: true, Placeholder: detailsPlaceholder},
			{Name: "priority", Label: "Priority", Type: types.FieldSelect, Required: true, Options: Priorities},
		},
		SubmitButtonText: "Submit",
		Prefill: map[string]any{
			"issueType": string(issue),
			"priority":  "medium",
		},
	}
}

type LocalDesigner struct{}

func NewLocalDesigner() *LocalDesigner {
	return &LocalDesigner{}
}

func (d *LocalDesigner) DesignForm(ctx context.Context, req *types.ToolRequest) (*types.FormSpec, error) {
	spec := TicketForm(DetectIssueType(req.LastUserInput()))
	return &spec, nil
}

type FailbackDesigner struct {
	designers []Designer
}

func NewFailbackDesigner(designers ...Designer) *FailbackDesigner {
	return &FailbackDesigner{designers: designers}
}

func (d *FailbackDesigner) DesignForm(ctx context.Context, req *types.ToolRequest) (*types.FormSpec, error) {
	var lastErr error
	for _, designer := range d.designers {
		spec, err := designer.DesignForm(ctx, req)
		if err == nil {
			return spec, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("all form designers failed: %w", lastErr)
}
