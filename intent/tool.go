package intent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/structured"
	"github.com/tbxark/hrdesk/types"
)

const (
	classifyIntentToolName        = "classify_intent"
	classifyIntentToolDescription = "Classify the employee's latest message: small_talk, inquiry or request."
)

// DefaultIntentSystemPromptTemplate is the default system prompt template used by
// ToolBasedIntentRecognizer. The template may contain a single "%s" placeholder for the tool name.
const DefaultIntentSystemPromptTemplate = `You are the intake step of an HR support assistant.

Always identify the user's intent before anything else. Read the whole conversation, then classify the latest user message:
- small_talk: greetings, thanks, farewells or chatter that needs only a polite reply.
- inquiry: a general question about HR policy, benefits, leave balances or process that can be answered with information.
- request: the employee wants something done, such as applying for leave, reporting a salary problem or filing a complaint. These need a form to collect details.

Do not pick request for questions that only ask how something works.

Call the '%s' tool with the result.
`

type PromptBuilder func(systemPrompt string) structured.PromptBuilder[*types.ToolRequest]

type recognizerOptions struct {
	systemPromptTemplate string
	promptBuilder        PromptBuilder
}

type Option func(*recognizerOptions)

func WithIntentSystemPromptTemplate(systemPromptTemplate string) Option {
	return func(o *recognizerOptions) {
		o.systemPromptTemplate = systemPromptTemplate
	}
}

func WithIntentPromptBuilder(promptBuilder PromptBuilder) Option {
	return func(o *recognizerOptions) {
		o.promptBuilder = promptBuilder
	}
}

func defaultPromptBuilder(systemPrompt string) structured.PromptBuilder[*types.ToolRequest] {
	return func(ctx context.Context, req *types.ToolRequest) ([]*schema.Message, error) {
		message, err := types.FormatToolRequest(req)
		if err != nil {
			return nil, fmt.Errorf("convert to prompt message failed: %w", err)
		}
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(message),
		}, nil
	}
}

type classifyIntentInput struct {
	Intent Intent `json:"intent" jsonschema:"required,enum=small_talk,enum=inquiry,enum=request,description=The intent of the latest user message"`
	Topic  string `json:"topic,omitempty" jsonschema:"description=Short topic such as leave or salary"`
}

type ToolBasedIntentRecognizer struct {
	chain *structured.Chain[*types.ToolRequest, classifyIntentInput]
}

func NewToolBasedIntentRecognizer(chatModel model.ToolCallingChatModel, opts ...Option) (*ToolBasedIntentRecognizer, error) {
	options := recognizerOptions{
		systemPromptTemplate: DefaultIntentSystemPromptTemplate,
		promptBuilder:        defaultPromptBuilder,
	}
	for _, o := range opts {
		if o != nil {
			o(&options)
		}
	}
	chain, err := structured.NewChain[*types.ToolRequest, classifyIntentInput](
		chatModel,
		options.promptBuilder(fmt.Sprintf(options.systemPromptTemplate, classifyIntentToolName)),
		classifyIntentToolName,
		classifyIntentToolDescription,
	)
	if err != nil {
		return nil, err
	}
	return &ToolBasedIntentRecognizer{chain: chain}, nil
}

func (p *ToolBasedIntentRecognizer) RecognizeIntent(ctx context.Context, req *types.ToolRequest) (Intent, error) {
	result, err := p.chain.Invoke(ctx, req)
	if err != nil {
		return SmallTalk, err
	}
	if result == nil || !result.Intent.Valid() {
		return SmallTalk, fmt.Errorf("invalid intent returned by %s", classifyIntentToolName)
	}
	return result.Intent, nil
}
