package dialogue

import (
	"context"

	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/types"
)

// Situations the flow asks for a reply in, besides the recognised intents.
const (
	SituationFormShown     = "form_shown"
	SituationFormInvalid   = "form_invalid"
	SituationTicketCreated = "ticket_created"
)

type Generator interface {
	GenerateDialogue(ctx context.Context, req *types.ToolRequest) (string, error)
	GenerateDialogueStream(ctx context.Context, req *types.ToolRequest) (*schema.StreamReader[string], error)
}
