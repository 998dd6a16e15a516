package patch

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/types"
)

const (
	OperationAdd     = "add"
	OperationRemove  = "remove"
	OperationReplace = "replace"
)

type Operation struct {
	Op    string `json:"op" jsonschema:"required,enum=add,enum=remove,enum=replace"`
	Path  string `json:"path" jsonschema:"required,description=JSON Pointer of the field such as /email"`
	Value any    `json:"value,omitempty"`
}

type UpdateFormArgs struct {
	Ops []Operation `json:"ops" jsonschema:"required,description=RFC6902 operations that fill form fields"`
}

type Request struct {
	Messages []*schema.Message
	Form     types.FormSpec
	Values   types.Values
}

// Generator proposes edits for a form from the conversation so far.
type Generator interface {
	GeneratePatch(ctx context.Context, req *Request) (*UpdateFormArgs, error)
}
