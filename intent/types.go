package intent

import (
	"context"

	"github.com/tbxark/hrdesk/types"
)

type Intent string

const (
	// SmallTalk covers greetings, thanks and other chatter.
	SmallTalk Intent = "small_talk"
	// Inquiry is a general HR question that can be answered directly.
	Inquiry Intent = "inquiry"
	// Request needs structured details from the employee and ends in a ticket.
	Request Intent = "request"
)

func (i Intent) Valid() bool {
	switch i {
	case SmallTalk, Inquiry, Request:
		return true
	default:
		return false
	}
}

type Recognizer interface {
	RecognizeIntent(ctx context.Context, req *types.ToolRequest) (Intent, error)
}
