package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/tbxark/hrdesk/designer"
	"github.com/tbxark/hrdesk/dialogue"
	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/intent"
	"github.com/tbxark/hrdesk/patch"
	"github.com/tbxark/hrdesk/ticket"
	"github.com/tbxark/hrdesk/types"
)

const DefaultConversationID = "conv_import_001"

var ErrEmptyInput = errors.New("empty user input")

// Components are the model-backed steps of a Flow. Prefiller is optional.
type Components struct {
	Recognizer intent.Recognizer
	Designer   designer.Designer
	Prefiller  patch.Generator
	Dialogue   dialogue.Generator
	Extractor  ticket.Extractor
}

type Flow struct {
	recognizer intent.Recognizer
	designer   designer.Designer
	prefiller  patch.Generator
	dialogue   dialogue.Generator
	extractor  ticket.Extractor

	tickets  *ticket.Service
	sessions *SessionStore
	history  *HistoryStore

	now      func() time.Time
	newID    func() string
	inflight sync.Map
}

type FlowOption func(*Flow)

// WithIDGenerator replaces the form session id generator.
func WithIDGenerator(fn func() string) FlowOption {
	return func(f *Flow) {
		if fn != nil {
			f.newID = fn
		}
	}
}

func WithClock(now func() time.Time) FlowOption {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

func NewFlow(c Components, tickets *ticket.Service, sessions *SessionStore, history *HistoryStore, opts ...FlowOption) (*Flow, error) {
	switch {
	case c.Recognizer == nil:
		return nil, errors.New("intent recognizer is required")
	case c.Designer == nil:
		return nil, errors.New("form designer is required")
	case c.Dialogue == nil:
		return nil, errors.New("dialogue generator is required")
	case c.Extractor == nil:
		return nil, errors.New("ticket extractor is required")
	case tickets == nil || sessions == nil || history == nil:
		return nil, errors.New("ticket service, session store and history store are required")
	}
	f := &Flow{
		recognizer: c.Recognizer,
		designer:   c.Designer,
		prefiller:  c.Prefiller,
		dialogue:   c.Dialogue,
		extractor:  c.Extractor,
		tickets:    tickets,
		sessions:   sessions,
		history:    history,
		now:        time.Now,
		newID:      func() string { return "call_" + strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// NewLocalFlow runs without a model: keyword intents, built-in ticket forms
// and canned replies.
func NewLocalFlow(tickets *ticket.Service, sessions *SessionStore, history *HistoryStore, opts ...FlowOption) (*Flow, error) {
	return NewFlow(Components{
		Recognizer: intent.NewLocalIntentRecognizer(),
		Designer:   designer.NewLocalDesigner(),
		Dialogue:   dialogue.NewLocalDialogueGenerator(),
		Extractor:  ticket.NewLocalExtractor(),
	}, tickets, sessions, history, opts...)
}

// NewToolBasedFlow asks chatModel first and falls back to the local
// components whenever a model step fails.
func NewToolBasedFlow(chatModel model.ToolCallingChatModel, tickets *ticket.Service, sessions *SessionStore, history *HistoryStore, opts ...FlowOption) (*Flow, error) {
	recognizer, err := intent.NewToolBasedIntentRecognizer(chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool-based intent recognizer: %w", err)
	}
	formDesigner, err := designer.NewToolBasedDesigner(chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool-based form designer: %w", err)
	}
	prefiller, err := patch.NewToolBasedPatchGenerator(chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool-based patch generator: %w", err)
	}
	extractor, err := ticket.NewToolBasedExtractor(chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool-based ticket extractor: %w", err)
	}
	return NewFlow(Components{
		Recognizer: intent.NewFailbackRecognizer(recognizer, intent.NewLocalIntentRecognizer()),
		Designer:   designer.NewFailbackDesigner(formDesigner, designer.NewLocalDesigner()),
		Prefiller:  prefiller,
		Dialogue: dialogue.NewFailbackDialogueGenerator(
			dialogue.NewToolBasedDialogueGenerator(chatModel),
			dialogue.NewLocalDialogueGenerator(),
		),
		Extractor: ticket.NewFailbackExtractor(extractor, ticket.NewLocalExtractor()),
	}, tickets, sessions, history, opts...)
}

// Invoke answers one user message. A request intent opens a form session and
// the reply carries a dynamicformfields tool call with the form spec.
func (a *Flow) Invoke(ctx context.Context, req *Request) (*Response, error) {
	if req == nil || strings.TrimSpace(req.UserInput) == "" {
		return nil, ErrEmptyInput
	}
	if req.ConversationID == "" {
		req.ConversationID = DefaultConversationID
	}
	ctx = WithConversationID(ctx, req.ConversationID)
	hist, err := a.history.Append(ctx, schema.UserMessage(req.UserInput))
	if err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	toolRequest := &types.ToolRequest{Messages: hist}

	slog.Debug("Recognizing intent", "conversation", req.ConversationID)
	in, err := a.recognizer.RecognizeIntent(ctx, toolRequest)
	if err != nil {
		return a.handleError(fmt.Errorf("failed to recognize intent: %w", err))
	}
	slog.Debug("Recognized intent", "intent", in)
	toolRequest.Intent = string(in)

	if in == intent.Request {
		return a.openForm(ctx, req, toolRequest)
	}
	return a.reply(ctx, req, toolRequest, in)
}

func (a *Flow) reply(ctx context.Context, req *Request, toolRequest *types.ToolRequest, in intent.Intent) (*Response, error) {
	if req.Stream {
		stream, err := a.dialogue.GenerateDialogueStream(ctx, toolRequest)
		if err != nil {
			return a.handleError(fmt.Errorf("failed to generate dialogue: %w", err))
		}
		return &Response{
			Intent:        in,
			Message:       &schema.Message{Role: schema.Assistant},
			MessageStream: stream,
		}, nil
	}
	text, err := a.dialogue.GenerateDialogue(ctx, toolRequest)
	if err != nil {
		return a.handleError(fmt.Errorf("failed to generate dialogue: %w", err))
	}
	msg := &schema.Message{Role: schema.Assistant, Content: text}
	a.remember(ctx, msg)
	return &Response{Intent: in, Message: msg}, nil
}

func (a *Flow) openForm(ctx context.Context, req *Request, toolRequest *types.ToolRequest) (*Response, error) {
	slog.Debug("Designing form")
	spec, err := a.designer.DesignForm(ctx, toolRequest)
	if err != nil {
		return a.handleError(fmt.Errorf("failed to design form: %w", err))
	}
	normalized, _ := form.Normalize(*spec)
	engine := form.New(normalized)
	if a.prefiller != nil {
		args, pErr := a.prefiller.GeneratePatch(ctx, &patch.Request{
			Messages: toolRequest.Messages,
			Form:     engine.Spec(),
			Values:   engine.Values(),
		})
		if pErr != nil {
			slog.Warn("prefill skipped", "error", pErr)
		} else if args != nil {
			slog.Debug("Applying prefill", "ops", args.Ops)
			if pErr = engine.ApplyPatch(args.Ops); pErr != nil {
				slog.Warn("prefill rejected", "error", pErr)
			}
		}
	}

	sess := &Session{
		ID:             a.newID(),
		ConversationID: req.ConversationID,
		Spec:           engine.Spec(),
		Values:         engine.Values(),
		Phase:          engine.Phase(),
		CreatedAt:      a.now().UTC(),
	}
	if err := a.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save form session: %w", err)
	}
	args, err := sonic.MarshalString(sess.Spec)
	if err != nil {
		return nil, fmt.Errorf("encode form spec: %w", err)
	}

	toolRequest.Intent = dialogue.SituationFormShown
	toolRequest.Form = &sess.Spec
	toolRequest.Values = sess.Values
	toolRequest.Phase = sess.Phase
	text, err := a.dialogue.GenerateDialogue(ctx, toolRequest)
	if err != nil {
		slog.Warn("form reply failed", "error", err)
		text = ""
	}
	a.remember(ctx, &schema.Message{Role: schema.Assistant, Content: fmt.Sprintf("[Showed the %s]\n%s", sess.Spec.Title, text)})

	return &Response{
		Intent: intent.Request,
		Message: &schema.Message{
			Role:    schema.Assistant,
			Content: text,
			ToolCalls: []schema.ToolCall{{
				ID:   sess.ID,
				Type: "function",
				Function: schema.FunctionCall{
					Name:      designer.ToolName,
					Arguments: args,
				},
			}},
		},
		Session: sess,
	}, nil
}

// Session returns a stored form session.
func (a *Flow) Session(ctx context.Context, id string) (*Session, error) {
	return a.sessions.Get(ctx, id)
}

// EditForm applies ops to a stored form without submitting it. Edits and
// submissions of the same form exclude each other.
func (a *Flow) EditForm(ctx context.Context, formID string, ops []patch.Operation) (*Session, error) {
	if _, busy := a.inflight.LoadOrStore(formID, struct{}{}); busy {
		return nil, form.ErrSubmitting
	}
	defer a.inflight.Delete(formID)

	sess, err := a.sessions.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	if sess.Locked() {
		return nil, form.ErrLocked
	}
	engine := sess.Form()
	if err := engine.ApplyPatch(ops); err != nil {
		return nil, err
	}
	next := *sess
	next.Values = engine.Values()
	if err := a.sessions.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("save form session: %w", err)
	}
	return &next, nil
}

// SubmitForm applies ops to a stored form and submits it. Field errors come
// back in the result with a nil error. On success the ticket is created and
// the session is saved locked with the submitted values.
func (a *Flow) SubmitForm(ctx context.Context, formID string, ops []patch.Operation) (*SubmitResult, error) {
	if _, busy := a.inflight.LoadOrStore(formID, struct{}{}); busy {
		return nil, form.ErrSubmitting
	}
	defer a.inflight.Delete(formID)

	sess, err := a.sessions.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	if sess.Locked() {
		return nil, form.ErrLocked
	}
	ctx = WithConversationID(ctx, sess.ConversationID)
	ctx = ticket.WithConversationID(ctx, sess.ConversationID)

	engine := sess.Form()
	if err := engine.ApplyPatch(ops); err != nil {
		return nil, err
	}
	hist, err := a.history.Load(ctx)
	if err != nil {
		slog.Warn("history unavailable", "error", err)
	}

	var created *ticket.Ticket
	err = engine.Submit(ctx, func(ctx context.Context, values types.Values) error {
		spec := engine.Spec()
		input, err := a.extractor.Extract(ctx, &types.ToolRequest{
			Messages: hist,
			Form:     &spec,
			Values:   values,
			Phase:    types.PhaseSubmitting,
		})
		if err != nil {
			return fmt.Errorf("extract ticket input: %w", err)
		}
		created, err = a.tickets.Create(ctx, *input)
		return err
	})

	next := *sess
	next.Values = engine.Values()
	var verr *form.ValidationError
	if errors.As(err, &verr) {
		if sErr := a.sessions.Save(ctx, &next); sErr != nil {
			return nil, fmt.Errorf("save form session: %w", sErr)
		}
		spec := next.Spec
		text, dErr := a.dialogue.GenerateDialogue(ctx, &types.ToolRequest{
			Messages:    hist,
			Intent:      dialogue.SituationFormInvalid,
			Form:        &spec,
			Values:      next.Values,
			Phase:       types.PhaseEditable,
			FieldErrors: verr.Errors,
		})
		if dErr != nil {
			slog.Warn("form error reply failed", "error", dErr)
		}
		return &SubmitResult{Session: &next, Errors: verr.Errors, Message: text}, nil
	}
	if err != nil {
		if sErr := a.sessions.Save(ctx, &next); sErr != nil {
			slog.Warn("save form session", "error", sErr)
		}
		return nil, err
	}

	submittedAt := a.now().UTC()
	output := &ticket.Result{Message: ticket.SuccessMessage, Ticket: created}
	next.Phase = types.PhaseLocked
	next.Output = output
	next.SubmittedAt = &submittedAt
	if err := a.sessions.Save(ctx, &next); err != nil {
		return nil, fmt.Errorf("save form session: %w", err)
	}

	spec := next.Spec
	text, err := a.dialogue.GenerateDialogue(ctx, &types.ToolRequest{
		Messages: hist,
		Intent:   dialogue.SituationTicketCreated,
		Form:     &spec,
		Values:   next.Values,
		Phase:    types.PhaseLocked,
		Result: map[string]any{
			"message":   output.Message,
			"ticketId":  created.ID,
			"name":      created.Name,
			"issueType": created.IssueType,
			"priority":  string(created.Priority),
			"status":    created.Status,
		},
	})
	if err != nil {
		slog.Warn("confirmation reply failed", "error", err)
		text = output.Message
	}
	a.remember(ctx,
		schema.UserMessage(fmt.Sprintf("[Submitted the %s]", next.Spec.Title)),
		&schema.Message{Role: schema.Assistant, Content: text},
	)
	return &SubmitResult{Session: &next, Ticket: created, Output: output, Message: text}, nil
}

// Remember appends messages produced outside Invoke, such as a drained reply stream.
func (a *Flow) Remember(ctx context.Context, conversationID string, msgs ...*schema.Message) error {
	if conversationID == "" {
		conversationID = DefaultConversationID
	}
	_, err := a.history.Append(WithConversationID(ctx, conversationID), msgs...)
	return err
}

// Reset forgets the conversation history. Form sessions are kept.
func (a *Flow) Reset(ctx context.Context, conversationID string) error {
	if conversationID == "" {
		conversationID = DefaultConversationID
	}
	return a.history.Clear(WithConversationID(ctx, conversationID))
}

func (a *Flow) remember(ctx context.Context, msgs ...*schema.Message) {
	if _, err := a.history.Append(ctx, msgs...); err != nil {
		slog.Warn("append history", "error", err)
	}
}

func (a *Flow) handleError(err error) (*Response, error) {
	slog.Error("flow step failed", "error", err)
	return &Response{
		Message: &schema.Message{
			Role:    schema.Assistant,
			Content: fmt.Sprintf("Sorry, something went wrong while handling your message: %s", err.Error()),
		},
		Metadata: map[string]string{
			"error": err.Error(),
		},
	}, nil
}
