package agent

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/schema"
)

type Trimmer interface {
	Trim(history []*schema.Message) []*schema.Message
}

// KeepSystemLastNTrimmer keeps every system message and the last N others.
// N <= 0 keeps everything.
type KeepSystemLastNTrimmer struct {
	N int
}

func (t KeepSystemLastNTrimmer) Trim(history []*schema.Message) []*schema.Message {
	if t.N <= 0 {
		return history
	}
	out := make([]*schema.Message, 0, len(history))
	budget := t.N
	// walk backwards so the newest turns win, then restore order
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role != schema.System {
			if budget == 0 {
				continue
			}
			budget--
		}
		out = append(out, m)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// HistoryStore keeps one chat history per conversation. The flow records user
// turns, assistant replies and short markers for shown and submitted forms.
type HistoryStore struct {
	store   Store[[]*schema.Message]
	trimmer Trimmer
}

// NewHistoryStore keys histories by WithConversationID.
func NewHistoryStore(core Cache[[]*schema.Message], trimmer Trimmer) *HistoryStore {
	return &HistoryStore{
		store:   NewStore(core, "hrdesk:history", ConversationIDFromContext),
		trimmer: trimmer,
	}
}

func NewMemoryHistoryStore(trimmer Trimmer) *HistoryStore {
	return NewHistoryStore(NewMemoryCache[[]*schema.Message](), trimmer)
}

func (s *HistoryStore) Load(ctx context.Context) ([]*schema.Message, error) {
	hist, ok, err := s.store.Get(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return hist, nil
}

func (s *HistoryStore) Clear(ctx context.Context) error {
	return s.store.Del(ctx)
}

// Append records msgs and returns the stored history. Nil and blank messages
// are skipped, and so is a message repeating the previous one, which happens
// when a client retries a turn.
func (s *HistoryStore) Append(ctx context.Context, msgs ...*schema.Message) ([]*schema.Message, error) {
	hist, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, msg := range msgs {
		if msg == nil || (strings.TrimSpace(msg.Content) == "" && len(msg.ToolCalls) == 0) {
			continue
		}
		if n := len(hist); n > 0 && hist[n-1].Role == msg.Role && hist[n-1].Content == msg.Content {
			continue
		}
		hist = append(hist, msg)
	}
	if s.trimmer != nil {
		hist = s.trimmer.Trim(hist)
	}
	if err := s.store.Set(ctx, hist); err != nil {
		return nil, err
	}
	return hist, nil
}
