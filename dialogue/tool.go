package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/types"
)

// ErrEmptyReply is returned when the model answers with blank text.
var ErrEmptyReply = errors.New("model returned an empty reply")

const assistantPrompt = `You are a helpful Company Assistant Chatbot. You help employees with HR and company-related issues: leave requests, salary concerns, complaints and other internal processes.

Reply to the employee based on the detected intent:
- small_talk: respond politely and briefly, and mention what you can help with.
- inquiry: answer the question directly and clearly. If the answer depends on company policy you do not know, say so and offer to open a request.
- form_shown: a form was just shown below your message. Briefly explain what it is for and ask the employee to fill it in.
- form_invalid: the submitted form has validation errors. Gently list what needs fixing.
- ticket_created: start with "✅ Ticket created successfully!", then give the Ticket ID and a short summary with Name, Issue Type and Priority.

Keep replies short and friendly. Use markdown sparingly. Never invent ticket ids.
Reply in %s.
`

type GeneratorOption func(*ToolBasedDialogueGenerator)

// WithDialogueLang sets the reply language. Ignored when a full prompt is set.
func WithDialogueLang(lang string) GeneratorOption {
	return func(g *ToolBasedDialogueGenerator) {
		if lang != "" {
			g.systemPrompt = fmt.Sprintf(assistantPrompt, lang)
		}
	}
}

// WithDialogueSystemPrompt replaces the assistant prompt entirely.
func WithDialogueSystemPrompt(prompt string) GeneratorOption {
	return func(g *ToolBasedDialogueGenerator) {
		if prompt != "" {
			g.systemPrompt = prompt
		}
	}
}

// ToolBasedDialogueGenerator writes assistant replies with a chat model. The
// request is rendered into one context message holding the conversation, the
// intent and any form state.
type ToolBasedDialogueGenerator struct {
	chatModel    model.ToolCallingChatModel
	systemPrompt string
}

func NewToolBasedDialogueGenerator(chatModel model.ToolCallingChatModel, opts ...GeneratorOption) *ToolBasedDialogueGenerator {
	g := &ToolBasedDialogueGenerator{
		chatModel:    chatModel,
		systemPrompt: fmt.Sprintf(assistantPrompt, "English"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

func (g *ToolBasedDialogueGenerator) GenerateDialogue(ctx context.Context, req *types.ToolRequest) (string, error) {
	input, err := g.prompt(req)
	if err != nil {
		return "", err
	}
	msg, err := g.chatModel.Generate(ctx, input)
	if err != nil {
		return "", fmt.Errorf("generate reply: %w", err)
	}
	reply := strings.TrimSpace(msg.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// GenerateDialogueStream streams the reply text, skipping chunks without content.
func (g *ToolBasedDialogueGenerator) GenerateDialogueStream(ctx context.Context, req *types.ToolRequest) (*schema.StreamReader[string], error) {
	input, err := g.prompt(req)
	if err != nil {
		return nil, err
	}
	stream, err := g.chatModel.Stream(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("stream reply: %w", err)
	}
	return schema.StreamReaderWithConvert(stream, func(chunk *schema.Message) (string, error) {
		if chunk == nil || chunk.Content == "" {
			return "", schema.ErrNoValue
		}
		return chunk.Content, nil
	}), nil
}

func (g *ToolBasedDialogueGenerator) prompt(req *types.ToolRequest) ([]*schema.Message, error) {
	if req == nil {
		return nil, errors.New("nil dialogue request")
	}
	body, err := types.FormatToolRequest(req)
	if err != nil {
		return nil, fmt.Errorf("format dialogue request: %w", err)
	}
	return []*schema.Message{
		schema.SystemMessage(g.systemPrompt),
		schema.UserMessage(body),
	}, nil
}
