package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/adk"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/hrdesk/designer"
	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/intent"
	"github.com/tbxark/hrdesk/internal/fakemodel"
	"github.com/tbxark/hrdesk/patch"
	"github.com/tbxark/hrdesk/ticket"
	"github.com/tbxark/hrdesk/types"
)

type flowFixture struct {
	flow     *Flow
	tickets  *ticket.MemoryStore
	sessions *SessionStore
	history  *HistoryStore
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("call_%d", n)
	}
}

func newLocalFixture(t *testing.T) *flowFixture {
	t.Helper()
	tickets := ticket.NewMemoryStore()
	sessions := NewMemorySessionStore()
	history := NewMemoryHistoryStore(KeepSystemLastNTrimmer{N: 50})
	flow, err := NewLocalFlow(ticket.NewService(tickets), sessions, history, WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	return &flowFixture{flow: flow, tickets: tickets, sessions: sessions, history: history}
}

func fillOps(name, email, details string) []patch.Operation {
	return []patch.Operation{
		{Op: patch.OperationReplace, Path: "/fullName", Value: name},
		{Op: patch.OperationReplace, Path: "/email", Value: email},
		{Op: patch.OperationReplace, Path: "/details", Value: details},
	}
}

func TestNewFlowRequiresComponents(t *testing.T) {
	_, err := NewFlow(Components{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestInvokeSmallTalk(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()

	resp, err := fx.flow.Invoke(ctx, &Request{ConversationID: "c1", UserInput: "hello"})
	require.NoError(t, err)
	assert.Equal(t, intent.SmallTalk, resp.Intent)
	assert.Contains(t, resp.Message.Content, "Hello")
	assert.Empty(t, resp.Message.ToolCalls)
	assert.Nil(t, resp.Session)

	hist, err := fx.history.Load(WithConversationID(ctx, "c1"))
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, schema.User, hist[0].Role)
	assert.Equal(t, schema.Assistant, hist[1].Role)
}

func TestInvokeRejectsEmptyInput(t *testing.T) {
	fx := newLocalFixture(t)
	_, err := fx.flow.Invoke(context.Background(), &Request{UserInput: "   "})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestInvokeStream(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()

	resp, err := fx.flow.Invoke(ctx, &Request{UserInput: "what can you do?", Stream: true})
	require.NoError(t, err)
	require.NotNil(t, resp.MessageStream)
	defer resp.MessageStream.Close()

	var sb strings.Builder
	for {
		chunk, err := resp.MessageStream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		sb.WriteString(chunk)
	}
	assert.Equal(t, intent.Inquiry, resp.Intent)
	assert.Contains(t, sb.String(), "leave")

	require.NoError(t, fx.flow.Remember(ctx, "", &schema.Message{Role: schema.Assistant, Content: sb.String()}))
	hist, err := fx.history.Load(WithConversationID(ctx, DefaultConversationID))
	require.NoError(t, err)
	assert.Len(t, hist, 2)
}

func TestInvokeOpensForm(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()

	resp, err := fx.flow.Invoke(ctx, &Request{UserInput: "I want to apply for leave next week"})
	require.NoError(t, err)
	assert.Equal(t, intent.Request, resp.Intent)
	require.Len(t, resp.Message.ToolCalls, 1)
	call := resp.Message.ToolCalls[0]
	assert.Equal(t, "call_1", call.ID)
	assert.Equal(t, designer.ToolName, call.Function.Name)

	var spec types.FormSpec
	require.NoError(t, sonic.UnmarshalString(call.Function.Arguments, &spec))
	assert.Equal(t, "Leave Request Form", spec.Title)
	assert.Contains(t, resp.Message.Content, "Leave Request Form")

	sess, err := fx.flow.Session(ctx, "call_1")
	require.NoError(t, err)
	assert.Equal(t, DefaultConversationID, sess.ConversationID)
	assert.Equal(t, types.PhaseEditable, sess.Phase)
	assert.Equal(t, "leave", sess.Values["issueType"])
	assert.Equal(t, "medium", sess.Values["priority"])
	assert.Equal(t, "", sess.Values["fullName"])
}

func TestSubmitFormValidationErrors(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()
	_, err := fx.flow.Invoke(ctx, &Request{UserInput: "my salary was not paid"})
	require.NoError(t, err)

	res, err := fx.flow.SubmitForm(ctx, "call_1", fillOps("Asha", "not-an-email", ""))
	require.NoError(t, err)
	assert.Equal(t, "Invalid email address.", res.Errors["email"])
	assert.Equal(t, "Detailed Description is required.", res.Errors["details"])
	assert.NotContains(t, res.Errors, "fullName")
	assert.Nil(t, res.Ticket)
	assert.Contains(t, res.Message, "Invalid email address.")

	sess, err := fx.sessions.Get(ctx, "call_1")
	require.NoError(t, err)
	assert.Equal(t, types.PhaseEditable, sess.Phase)
	assert.Equal(t, "Asha", sess.Values["fullName"])

	list, err := fx.tickets.ListTickets(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubmitFormCreatesTicketAndLocks(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()
	_, err := fx.flow.Invoke(ctx, &Request{ConversationID: "c9", UserInput: "I need to apply for sick leave"})
	require.NoError(t, err)

	res, err := fx.flow.SubmitForm(ctx, "call_1", fillOps("Asha", "asha@corp.com", "Two days off"))
	require.NoError(t, err)
	require.NotNil(t, res.Ticket)
	assert.Empty(t, res.Errors)
	assert.Regexp(t, `^TCK-\d{5}$`, res.Ticket.ID)
	assert.Equal(t, "leave", res.Ticket.IssueType)
	assert.Equal(t, ticket.PriorityMedium, res.Ticket.Priority)
	assert.Equal(t, "c9", res.Ticket.ConversationID)
	assert.Equal(t, ticket.SuccessMessage, res.Output.Message)
	assert.Contains(t, res.Message, "Ticket ID: "+res.Ticket.ID)

	sess, err := fx.sessions.Get(ctx, "call_1")
	require.NoError(t, err)
	assert.True(t, sess.Locked())
	assert.Equal(t, "Asha", sess.Values["fullName"])
	require.NotNil(t, sess.Output)
	assert.Equal(t, res.Ticket.ID, sess.Output.Ticket.ID)
	assert.NotNil(t, sess.SubmittedAt)

	engine := sess.Form()
	assert.True(t, engine.Locked())
	assert.ErrorIs(t, engine.SetField("fullName", "Other"), form.ErrLocked)

	_, err = fx.flow.SubmitForm(ctx, "call_1", nil)
	assert.ErrorIs(t, err, form.ErrLocked)

	list, err := fx.tickets.ListTickets(ctx, "c9")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSubmitFormRejectsConcurrentSubmission(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()
	_, err := fx.flow.Invoke(ctx, &Request{UserInput: "file a complaint"})
	require.NoError(t, err)

	fx.flow.inflight.Store("call_1", struct{}{})
	_, err = fx.flow.SubmitForm(ctx, "call_1", fillOps("Asha", "asha@corp.com", "x"))
	assert.ErrorIs(t, err, form.ErrSubmitting)

	fx.flow.inflight.Delete("call_1")
	res, err := fx.flow.SubmitForm(ctx, "call_1", fillOps("Asha", "asha@corp.com", "x"))
	require.NoError(t, err)
	assert.NotNil(t, res.Ticket)
}

func TestSubmitFormUnknownSessionAndBadPath(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()
	_, err := fx.flow.SubmitForm(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = fx.flow.Invoke(ctx, &Request{UserInput: "raise a ticket"})
	require.NoError(t, err)
	_, err = fx.flow.SubmitForm(ctx, "call_1", []patch.Operation{{Op: patch.OperationReplace, Path: "/salary", Value: "1"}})
	assert.Error(t, err)
}

func TestSubmitFormTicketFailureKeepsFormEditable(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()
	flow, err := NewFlow(Components{
		Recognizer: intent.NewLocalIntentRecognizer(),
		Designer:   designer.NewLocalDesigner(),
		Dialogue:   fx.flow.dialogue,
		Extractor:  failingExtractor{},
	}, ticket.NewService(fx.tickets), fx.sessions, fx.history, WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	_, err = flow.Invoke(ctx, &Request{UserInput: "leave request"})
	require.NoError(t, err)
	_, err = flow.SubmitForm(ctx, "call_1", fillOps("Asha", "asha@corp.com", "x"))
	require.Error(t, err)

	sess, err := fx.sessions.Get(ctx, "call_1")
	require.NoError(t, err)
	assert.False(t, sess.Locked())
	assert.Equal(t, "asha@corp.com", sess.Values["email"])
}

type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, req *types.ToolRequest) (*ticket.Input, error) {
	return nil, errors.New("extractor offline")
}

func TestToolBasedFlowFallsBackWhenModelFails(t *testing.T) {
	tickets := ticket.NewMemoryStore()
	sessions := NewMemorySessionStore()
	history := NewMemoryHistoryStore(KeepSystemLastNTrimmer{N: 20})
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	flow, err := NewToolBasedFlow(
		fakemodel.Failing(errors.New("offline")),
		ticket.NewService(tickets), sessions, history,
		WithIDGenerator(sequentialIDs()),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)
	ctx := context.Background()

	resp, err := flow.Invoke(ctx, &Request{UserInput: "I want to complain about my manager"})
	require.NoError(t, err)
	assert.Equal(t, intent.Request, resp.Intent)
	require.NotNil(t, resp.Session)
	assert.Equal(t, "Complaint Submission Form", resp.Session.Spec.Title)
	assert.True(t, now.Equal(resp.Session.CreatedAt))

	res, err := flow.SubmitForm(ctx, resp.Session.ID, fillOps("Asha", "asha@corp.com", "Unfair shifts"))
	require.NoError(t, err)
	require.NotNil(t, res.Ticket)
	assert.Equal(t, "complaint", res.Ticket.IssueType)
}

func TestToolBasedFlowUsesModelDesignAndPrefill(t *testing.T) {
	spec := `{"title":"Leave Request Form","fields":[` +
		`{"name":"fullName","label":"Full Name","type":"text","required":true},` +
		`{"name":"email","label":"Email","type":"email","required":true},` +
		`{"name":"details","label":"Details","type":"textarea","required":true}],` +
		`"submitButtonText":"Send"}`
	m := fakemodel.New(
		fakemodel.ToolCall("i1", "classify_intent", `{"intent":"request"}`),
		fakemodel.ToolCall("d1", designer.ToolName, spec),
		fakemodel.ToolCall("p1", "prefill_form", `{"ops":[{"op":"replace","path":"/fullName","value":"Asha"}]}`),
		fakemodel.Text("Please fill in the leave form."),
	)
	flow, err := NewToolBasedFlow(m, ticket.NewService(ticket.NewMemoryStore()), NewMemorySessionStore(),
		NewMemoryHistoryStore(nil), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)

	resp, err := flow.Invoke(context.Background(), &Request{UserInput: "Hi, I'm Asha and I need two days of leave"})
	require.NoError(t, err)
	require.NotNil(t, resp.Session)
	assert.Equal(t, "Send", resp.Session.Spec.SubmitButtonText)
	assert.Equal(t, "Asha", resp.Session.Values["fullName"])
	assert.Equal(t, "Please fill in the leave form.", resp.Message.Content)
	assert.Len(t, m.Calls(), 4)
}

func TestAgentRunsThroughRunner(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := WithConversationID(context.Background(), "c-agent")
	a := NewAgent("HRDesk", "HR assistant", fx.flow)
	runner := adk.NewRunner(ctx, adk.RunnerConfig{Agent: a})

	iter := runner.Run(ctx, []adk.Message{schema.UserMessage("I need to apply for leave")})
	var got *schema.Message
	for {
		event, ok := iter.Next()
		if !ok {
			break
		}
		require.NoError(t, event.Err)
		msg, err := event.Output.MessageOutput.GetMessage()
		require.NoError(t, err)
		got = msg
	}
	require.NotNil(t, got)
	require.Len(t, got.ToolCalls, 1)
	assert.Equal(t, designer.ToolName, got.ToolCalls[0].Function.Name)

	sess, err := fx.sessions.Get(ctx, got.ToolCalls[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "c-agent", sess.ConversationID)
}

func TestEditForm(t *testing.T) {
	fx := newLocalFixture(t)
	ctx := context.Background()
	_, err := fx.flow.Invoke(ctx, &Request{UserInput: "leave request"})
	require.NoError(t, err)

	sess, err := fx.flow.EditForm(ctx, "call_1", []patch.Operation{{Op: patch.OperationReplace, Path: "/fullName", Value: "Asha"}})
	require.NoError(t, err)
	assert.Equal(t, "Asha", sess.Values["fullName"])
	stored, err := fx.sessions.Get(ctx, "call_1")
	require.NoError(t, err)
	assert.Equal(t, "Asha", stored.Values["fullName"])

	_, err = fx.flow.EditForm(ctx, "call_1", []patch.Operation{{Op: patch.OperationReplace, Path: "/nope", Value: "x"}})
	assert.ErrorIs(t, err, patch.ErrInvalidOperation)

	_, err = fx.flow.SubmitForm(ctx, "call_1", fillOps("Asha", "asha@corp.com", "x"))
	require.NoError(t, err)
	_, err = fx.flow.EditForm(ctx, "call_1", []patch.Operation{{Op: patch.OperationReplace, Path: "/fullName", Value: "B"}})
	assert.ErrorIs(t, err, form.ErrLocked)
}

// gatedCache pauses the first Get after it is armed until release is closed.
type gatedCache struct {
	Cache[*Session]
	armed   atomic.Bool
	reached chan struct{}
	release chan struct{}
}

func (c *gatedCache) Get(ctx context.Context, key string) (*Session, bool, error) {
	if c.armed.CompareAndSwap(true, false) {
		close(c.reached)
		<-c.release
	}
	return c.Cache.Get(ctx, key)
}

func TestEditFormExcludesSubmission(t *testing.T) {
	ctx := context.Background()
	cache := &gatedCache{
		Cache:   NewMemoryCache[*Session](),
		reached: make(chan struct{}),
		release: make(chan struct{}),
	}
	tickets := ticket.NewMemoryStore()
	flow, err := NewLocalFlow(ticket.NewService(tickets), NewSessionStore(cache), NewMemoryHistoryStore(nil), WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	_, err = flow.Invoke(ctx, &Request{ConversationID: "c1", UserInput: "leave request"})
	require.NoError(t, err)

	cache.armed.Store(true)
	editDone := make(chan error, 1)
	go func() {
		_, err := flow.EditForm(ctx, "call_1", []patch.Operation{{Op: patch.OperationReplace, Path: "/details", Value: "changed"}})
		editDone <- err
	}()
	<-cache.reached

	_, err = flow.SubmitForm(ctx, "call_1", fillOps("Asha", "asha@corp.com", "x"))
	assert.ErrorIs(t, err, form.ErrSubmitting)

	close(cache.release)
	require.NoError(t, <-editDone)

	res, err := flow.SubmitForm(ctx, "call_1", fillOps("Asha", "asha@corp.com", "x"))
	require.NoError(t, err)
	require.NotNil(t, res.Ticket)

	_, err = flow.EditForm(ctx, "call_1", []patch.Operation{{Op: patch.OperationReplace, Path: "/details", Value: "late"}})
	assert.ErrorIs(t, err, form.ErrLocked)

	sess, err := flow.Session(ctx, "call_1")
	require.NoError(t, err)
	assert.True(t, sess.Locked())
	assert.Equal(t, "x", sess.Values["details"])
}
