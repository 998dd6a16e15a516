package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tbxark/hrdesk/store"
)

// upsertRequest accepts both conversationId and the older conversation_id key.
type upsertRequest struct {
	ID                   string          `json:"id"`
	Role                 string          `json:"role"`
	Parts                json.RawMessage `json:"parts"`
	ConversationID       string          `json:"conversationId"`
	LegacyConversationID string          `json:"conversation_id"`
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	var (
		msgs []*store.Message
		err  error
	)
	if id := r.URL.Query().Get("conversationId"); id != "" {
		msgs, err = s.messages.ListConversation(r.Context(), id)
	} else {
		msgs, err = s.messages.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []*store.Message{}
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleUpsertMessage(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ID == "" || req.Role == "" {
		writeError(w, fmt.Errorf("%w: id and role are required", errBadRequest))
		return
	}
	if len(req.Parts) > 0 && !json.Valid(req.Parts) {
		writeError(w, fmt.Errorf("%w: parts must be a JSON array", errBadRequest))
		return
	}
	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = req.LegacyConversationID
	}
	if conversationID == "" {
		conversationID = s.conversationID
	}
	err := s.messages.Upsert(r.Context(), &store.Message{
		ID:             req.ID,
		Role:           req.Role,
		Parts:          req.Parts,
		ConversationID: conversationID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
