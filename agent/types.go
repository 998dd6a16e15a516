package agent

import (
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/intent"
	"github.com/tbxark/hrdesk/ticket"
	"github.com/tbxark/hrdesk/types"
)

type Request struct {
	ConversationID string `json:"conversation_id"`
	UserInput      string `json:"user_input"`
	// Stream asks for the reply text as a stream. Form replies are never streamed.
	Stream bool `json:"stream,omitempty"`
}

type Response struct {
	Intent intent.Intent `json:"intent,omitempty"`
	// Message is the assistant message. Its ToolCalls carry the form when one was created.
	Message *schema.Message `json:"message,omitempty"`
	// MessageStream replaces Message.Content when Stream was requested. The
	// caller drains it and passes the text to Flow.Remember.
	MessageStream *schema.StreamReader[string] `json:"-"`
	Session       *Session                     `json:"session,omitempty"`
	Metadata      map[string]string            `json:"metadata,omitempty"`
}

type SubmitResult struct {
	Session *Session          `json:"session"`
	Errors  types.FieldErrors `json:"errors,omitempty"`
	Ticket  *ticket.Ticket    `json:"ticket,omitempty"`
	// Output is the createTicket tool output stored with a locked form.
	Output  *ticket.Result `json:"output,omitempty"`
	Message string         `json:"message,omitempty"`
}
