package dialogue

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tbxark/hrdesk/intent"
	"github.com/tbxark/hrdesk/internal/fakemodel"
	"github.com/tbxark/hrdesk/types"
)

func drain(t *testing.T, stream *schema.StreamReader[string]) string {
	t.Helper()
	defer stream.Close()
	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String()
		}
		require.NoError(t, err)
		sb.WriteString(chunk)
	}
}

func TestLocalTicketConfirmation(t *testing.T) {
	g := NewLocalDialogueGenerator()
	reply, err := g.GenerateDialogue(context.Background(), &types.ToolRequest{
		Intent: SituationTicketCreated,
		Result: map[string]any{
			"ticketId":  "TCK-12345",
			"name":      "Asha",
			"issueType": "leave",
			"priority":  "medium",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "✅ Ticket created successfully!\n\nTicket ID: TCK-12345\nName: Asha\nIssue Type: leave\nPriority: medium", reply)
}

func TestLocalReplies(t *testing.T) {
	g := NewLocalDialogueGenerator()
	ctx := context.Background()

	reply, err := g.GenerateDialogue(ctx, &types.ToolRequest{Intent: string(intent.SmallTalk)})
	require.NoError(t, err)
	assert.Equal(t, greetingReply, reply)

	reply, err = g.GenerateDialogue(ctx, &types.ToolRequest{
		Intent: SituationFormShown,
		Form:   &types.FormSpec{Title: "Leave Request Form"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Please fill in the Leave Request Form below and press Submit when you are done.", reply)

	reply, err = g.GenerateDialogue(ctx, &types.ToolRequest{
		Intent: SituationFormInvalid,
		Form: &types.FormSpec{Fields: []types.FieldSpec{
			{Name: "name", Label: "Name"}, {Name: "email", Label: "Email"},
		}},
		FieldErrors: types.FieldErrors{"email": "Invalid email address.", "name": "Name is required."},
	})
	require.NoError(t, err)
	assert.Equal(t, "Some fields need your attention:\n- Name is required.\n- Invalid email address.", reply)
}

func TestToolBasedDialogueStream(t *testing.T) {
	m := fakemodel.New(fakemodel.Text("Hello there, how can I help?"))
	g := NewToolBasedDialogueGenerator(m)
	stream, err := g.GenerateDialogueStream(context.Background(), &types.ToolRequest{
		Intent:   string(intent.SmallTalk),
		Messages: []*schema.Message{schema.UserMessage("hi")},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there, how can I help?", drain(t, stream))

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0][0].Content, "Reply in English.")
	assert.Contains(t, calls[0][1].Content, "small_talk")
}

func TestFailbackDialogueGenerator(t *testing.T) {
	g := NewFailbackDialogueGenerator(
		NewToolBasedDialogueGenerator(fakemodel.Failing(errors.New("offline"))),
		NewLocalDialogueGenerator(),
	)
	reply, err := g.GenerateDialogue(context.Background(), &types.ToolRequest{Intent: string(intent.Inquiry)})
	require.NoError(t, err)
	assert.Equal(t, inquiryReply, reply)

	stream, err := g.GenerateDialogueStream(context.Background(), &types.ToolRequest{Intent: string(intent.Inquiry)})
	require.NoError(t, err)
	assert.Equal(t, inquiryReply, drain(t, stream))
}
