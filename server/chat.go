package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/eino/schema"
	"github.com/tbxark/hrdesk/agent"
	"github.com/tbxark/hrdesk/render"
	"github.com/tbxark/hrdesk/store"
)

const (
	eventTextDelta          = "text-delta"
	eventToolInputAvailable = "tool-input-available"
	eventFinish             = "finish"
	eventError              = "error"
)

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
}

// chatEvent is one line of the /api/chat stream.
type chatEvent struct {
	Type       string          `json:"type"`
	Delta      string          `json:"delta,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	MessageID  string          `json:"messageId,omitempty"`
	ErrorText  string          `json:"errorText,omitempty"`
}

type eventWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newEventWriter(w http.ResponseWriter) *eventWriter {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	return &eventWriter{w: w, flusher: flusher}
}

func (e *eventWriter) send(ev chatEvent) error {
	data, err := sonic.Marshal(ev)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if _, err := e.w.Write(data); err != nil {
		return err
	}
	if e.flusher != nil {
		e.flusher.Flush()
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	conversationID := r.URL.Query().Get("conversationId")
	if conversationID == "" {
		conversationID = s.conversationID
	}
	msgs, err := s.messages.ListConversation(r.Context(), conversationID)
	if err != nil {
		writeError(w, err)
		return
	}
	page := render.ChatPage{ConversationID: conversationID}
	for _, msg := range msgs {
		page.Messages = append(page.Messages, chatMessage(msg))
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.RenderChat(w, page); err != nil {
		slog.Error("render chat page", "error", err)
	}
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, agent.ErrEmptyInput)
		return
	}
	if req.ConversationID == "" {
		req.ConversationID = s.conversationID
	}

	userParts, err := encodeParts(part{Type: partText, Text: req.Message})
	if err != nil {
		writeError(w, err)
		return
	}
	err = s.messages.Upsert(ctx, &store.Message{
		ID:             store.NewMessageID(),
		Role:           string(schema.User),
		Parts:          userParts,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		writeError(w, fmt.Errorf("persist user message: %w", err))
		return
	}

	resp, err := s.flow.Invoke(ctx, &agent.Request{
		ConversationID: req.ConversationID,
		UserInput:      req.Message,
		Stream:         true,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.chatRequests.WithLabelValues(string(resp.Intent)).Inc()

	events := newEventWriter(w)
	if msg, failed := resp.Metadata["error"]; failed {
		slog.Warn("chat turn failed", "error", msg)
		_ = events.send(chatEvent{Type: eventError, ErrorText: resp.Message.Content})
		return
	}

	text := resp.Message.Content
	if resp.MessageStream != nil {
		text, err = s.drain(events, resp.MessageStream)
		if err != nil {
			slog.Error("stream reply", "error", err)
			_ = events.send(chatEvent{Type: eventError, ErrorText: "The assistant stopped responding. Please try again."})
			return
		}
		if err := s.flow.Remember(ctx, req.ConversationID, &schema.Message{Role: schema.Assistant, Content: text}); err != nil {
			slog.Warn("remember streamed reply", "error", err)
		}
	} else if text != "" {
		_ = events.send(chatEvent{Type: eventTextDelta, Delta: text})
	}

	messageID := store.NewMessageID()
	parts := []part{{Type: partText, Text: text}}
	for _, call := range resp.Message.ToolCalls {
		messageID = call.ID
		input := json.RawMessage(call.Function.Arguments)
		parts = append(parts, part{Type: partFormTool, ToolCallID: call.ID, State: stateInputAvailable, Input: input})
		_ = events.send(chatEvent{Type: eventToolInputAvailable, ToolCallID: call.ID, ToolName: call.Function.Name, Input: input})
	}
	if resp.Session != nil {
		s.metrics.formsCreated.Inc()
	}

	raw, err := encodeParts(parts...)
	if err == nil {
		err = s.messages.Upsert(ctx, &store.Message{
			ID:             messageID,
			Role:           string(schema.Assistant),
			Parts:          raw,
			ConversationID: req.ConversationID,
		})
	}
	if err != nil {
		slog.Error("persist assistant message", "error", err)
	}
	_ = events.send(chatEvent{Type: eventFinish, MessageID: messageID})
}

func (s *Server) drain(events *eventWriter, stream *schema.StreamReader[string]) (string, error) {
	defer stream.Close()
	var sb strings.Builder
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), err
		}
		if chunk == "" {
			continue
		}
		sb.WriteString(chunk)
		if err := events.send(chatEvent{Type: eventTextDelta, Delta: chunk}); err != nil {
			return sb.String(), err
		}
	}
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	return nil
}
