package server

import (
	"encoding/json"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/tbxark/hrdesk/agent"
	"github.com/tbxark/hrdesk/designer"
	"github.com/tbxark/hrdesk/render"
	"github.com/tbxark/hrdesk/store"
	"github.com/tbxark/hrdesk/types"
)

const (
	partText     = "text"
	partFormTool = "tool-" + designer.ToolName

	stateInputAvailable  = "input-available"
	stateOutputAvailable = "output-available"
)

// part is one entry of a persisted message's parts array. Text parts carry
// Text; form tool parts carry the tool call id, its state, the form spec as
// Input and the submitted values as Output.
type part struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	State      string          `json:"state,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     any             `json:"output,omitempty"`
}

func encodeParts(parts ...part) (json.RawMessage, error) {
	data, err := sonic.Marshal(parts)
	if err != nil {
		return nil, err
	}
	return data, nil
}

func decodeParts(raw json.RawMessage) []part {
	var parts []part
	if len(raw) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(raw, &parts); err != nil {
		return nil
	}
	return parts
}

// chatMessage flattens a stored message for the transcript.
func chatMessage(msg *store.Message) render.ChatMessage {
	out := render.ChatMessage{Role: msg.Role}
	var texts []string
	for _, p := range decodeParts(msg.Parts) {
		switch p.Type {
		case partText:
			if t := strings.TrimSpace(p.Text); t != "" {
				texts = append(texts, t)
			}
		case partFormTool:
			out.FormID = p.ToolCallID
		}
	}
	out.Content = strings.Join(texts, "\n\n")
	return out
}

// answeredForm rebuilds a submitted form from the tool part of its message,
// with the spec from Input and the submitted values from Output. It reports
// false when the message holds no answered form.
func answeredForm(msg *store.Message) (*agent.Session, bool) {
	for _, p := range decodeParts(msg.Parts) {
		if p.Type != partFormTool || p.ToolCallID != msg.ID || p.State != stateOutputAvailable {
			continue
		}
		var spec types.FormSpec
		if err := sonic.Unmarshal(p.Input, &spec); err != nil {
			return nil, false
		}
		values, _ := p.Output.(map[string]any)
		return &agent.Session{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			Spec:           spec,
			Values:         types.Values(values),
			Phase:          types.PhaseLocked,
			CreatedAt:      msg.CreatedAt,
		}, true
	}
	return nil, false
}
