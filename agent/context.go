package agent

import (
	"context"
)

type conversationKeyContext struct{}

type formKeyContext struct{}

// WithConversationID routes history reads and writes to one conversation.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationKeyContext{}, id)
}

func ConversationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(conversationKeyContext{}).(string)
	return id, ok && id != ""
}

// WithFormID routes session reads and writes to one form.
func WithFormID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, formKeyContext{}, id)
}

func FormIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(formKeyContext{}).(string)
	return id, ok && id != ""
}
