package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/hrdesk/ticket"
)

func TestMessageUpsertIsIdempotent(t *testing.T) {
	db := OpenTest(t)
	s := NewMessageStore(db)
	ctx := context.Background()

	msg := &Message{
		ID:             "m1",
		Role:           "assistant",
		Parts:          json.RawMessage(`[{"type":"tool-dynamicformfields","toolCallId":"c1","state":"input-available"}]`),
		ConversationID: "conv_import_001",
	}
	require.NoError(t, s.Upsert(ctx, msg))
	require.NoError(t, s.Upsert(ctx, msg))

	msg.Parts = json.RawMessage(`[{"type":"tool-dynamicformfields","toolCallId":"c1","state":"output-available"}]`)
	require.NoError(t, s.Upsert(ctx, msg))

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.JSONEq(t, string(msg.Parts), string(all[0].Parts))
}

func TestMessageListOrder(t *testing.T) {
	db := OpenTest(t)
	s := NewMessageStore(db)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Upsert(ctx, &Message{ID: "b", Role: "assistant", ConversationID: "c1", CreatedAt: base.Add(time.Second)}))
	require.NoError(t, s.Upsert(ctx, &Message{ID: "a", Role: "user", ConversationID: "c1", CreatedAt: base}))
	require.NoError(t, s.Upsert(ctx, &Message{ID: "x", Role: "user", ConversationID: "c2", CreatedAt: base}))

	msgs, err := s.ListConversation(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].ID)
	assert.Equal(t, "b", msgs[1].ID)
	assert.JSONEq(t, `[]`, string(msgs[0].Parts))

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, "c2", got.ConversationID)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMessageNotFound)

	require.NoError(t, s.DeleteConversation(ctx, "c1"))
	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMessageUpsertRejectsInvalidParts(t *testing.T) {
	s := NewMessageStore(OpenTest(t))
	err := s.Upsert(context.Background(), &Message{ID: "m1", Role: "user", Parts: json.RawMessage(`{`)})
	assert.Error(t, err)
	assert.Error(t, s.Upsert(context.Background(), &Message{Role: "user"}))
}

func TestTicketStore(t *testing.T) {
	s := NewTicketStore(OpenTest(t))
	ctx := context.Background()
	tk := &ticket.Ticket{
		ID:             "TCK-12345",
		Name:           "Asha",
		Email:          "asha@corp.com",
		IssueType:      "leave",
		Details:        "Two days",
		Priority:       ticket.PriorityHigh,
		Status:         ticket.StatusOpen,
		ConversationID: "conv_import_001",
		CreatedAt:      time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.CreateTicket(ctx, tk))
	assert.ErrorIs(t, s.CreateTicket(ctx, tk), ticket.ErrDuplicateID)

	got, err := s.GetTicket(ctx, "TCK-12345")
	require.NoError(t, err)
	assert.True(t, tk.CreatedAt.Equal(got.CreatedAt))
	got.CreatedAt = tk.CreatedAt
	assert.Equal(t, tk, got)

	_, err = s.GetTicket(ctx, "TCK-00000")
	assert.ErrorIs(t, err, ticket.ErrNotFound)

	list, err := s.ListTickets(ctx, "")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	list, err = s.ListTickets(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestServiceWithSQLite(t *testing.T) {
	svc := ticket.NewService(NewTicketStore(OpenTest(t)))
	created, err := svc.Create(context.Background(), ticket.Input{
		Name: "Asha", Email: "asha@corp.com", IssueType: "salary", Details: "Missing bonus",
	})
	require.NoError(t, err)
	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.PriorityMedium, got.Priority)
}
