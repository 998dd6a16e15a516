package ticket

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

const toolDescription = "Creates a new company support ticket using the form data provided by the user."

// NewTool exposes ticket creation as an invokable tool for the model.
func NewTool(svc *Service) (tool.InvokableTool, error) {
	t, err := utils.InferTool(ToolName, toolDescription, func(ctx context.Context, in *Input) (*Result, error) {
		if in == nil {
			return nil, fmt.Errorf("%w: empty input", ErrInvalidInput)
		}
		created, err := svc.Create(ctx, *in)
		if err != nil {
			return nil, err
		}
		return &Result{Message: SuccessMessage, Ticket: created}, nil
	})
	if err != nil {
		return nil, fmt.Errorf("infer %s tool: %w", ToolName, err)
	}
	return t, nil
}
