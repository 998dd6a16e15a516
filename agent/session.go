package agent

import (
	"context"
	"errors"
	"time"

	"github.com/tbxark/hrdesk/form"
	"github.com/tbxark/hrdesk/ticket"
	"github.com/tbxark/hrdesk/types"
)

var ErrSessionNotFound = errors.New("form session not found")

// Session is a form shown in a conversation. Its ID is the id of the
// dynamicformfields tool call that displayed it.
type Session struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Spec           types.FormSpec `json:"spec"`
	Values         types.Values   `json:"values"`
	Phase          types.Phase    `json:"phase"`
	Output         *ticket.Result `json:"output,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	SubmittedAt    *time.Time     `json:"submitted_at,omitempty"`
}

func (s *Session) Locked() bool {
	return s.Phase == types.PhaseLocked
}

// Form rebuilds the engine for the session. A locked session gives a locked form.
func (s *Session) Form(opts ...form.Option) *form.Form {
	opts = append([]form.Option{form.WithInitialValues(s.Values)}, opts...)
	if s.Locked() {
		opts = append(opts, form.WithLocked())
	}
	return form.New(s.Spec, opts...)
}

type SessionStore struct {
	store Store[*Session]
}

func NewSessionStore(core Cache[*Session]) *SessionStore {
	return &SessionStore{
		store: NewStore(core, "hrdesk:form", FormIDFromContext),
	}
}

func NewMemorySessionStore() *SessionStore {
	return NewSessionStore(NewMemoryCache[*Session]())
}

func (s *SessionStore) Get(ctx context.Context, id string) (*Session, error) {
	sess, ok, err := s.store.Get(WithFormID(ctx, id))
	if err != nil {
		return nil, err
	}
	if !ok || sess == nil {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *Session) error {
	if sess.Phase == "" {
		sess.Phase = types.PhaseEditable
	}
	return s.store.Set(WithFormID(ctx, sess.ID), sess)
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	return s.store.Del(WithFormID(ctx, id))
}
