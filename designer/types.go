package designer

import (
	"context"

	"github.com/tbxark/hrdesk/types"
)

// ToolName is the tool the assistant calls to show a form.
const ToolName = "dynamicformfields"

// Designer produces the form needed to handle an employee request.
type Designer interface {
	DesignForm(ctx context.Context, req *types.ToolRequest) (*types.FormSpec, error)
}

// IssueType is the category of an HR request.
type IssueType string

const (
	IssueLeave     IssueType = "leave"
	IssueSalary    IssueType = "salary"
	IssueComplaint IssueType = "complaint"
	IssueOther     IssueType = "other"
)

var IssueTypes = []types.Option{
	{Value: string(IssueLeave), Label: "Leave"},
	{Value: string(IssueSalary), Label: "Salary"},
	{Value: string(IssueComplaint), Label: "Complaint"},
	{Value: string(IssueOther), Label: "Other"},
}

var Priorities = []types.Option{
	{Value: "low", Label: "Low"},
	{Value: "medium", Label: "Medium"},
	{Value: "high", Label: "High"},
}
