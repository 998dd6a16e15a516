package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tbxark/hrdesk/types"
)

const maxIDAttempts = 5

type conversationKey struct{}

// WithConversationID tags tickets created with ctx with a conversation.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, conversationKey{}, id)
}

func conversationFromContext(ctx context.Context) string {
	id, _ := ctx.Value(conversationKey{}).(string)
	return id
}

type Service struct {
	store Store
	now   func() time.Time
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: RandomID,
	}
}

// RandomID returns "TCK-" followed by five digits.
func RandomID() string {
	return fmt.Sprintf("TCK-%d", 10000+rand.IntN(90000))
}

// Normalize trims the input, defaults the priority to medium and checks it.
func (in Input) Normalize() (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.IssueType = strings.TrimSpace(in.IssueType)
	in.Details = strings.TrimSpace(in.Details)
	in.Priority = Priority(strings.ToLower(strings.TrimSpace(string(in.Priority))))
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	var problems []string
	if in.Name == "" {
		problems = append(problems, "name is required")
	}
	if !types.EmailPattern.MatchString(in.Email) {
		problems = append(problems, "email is invalid")
	}
	if in.IssueType == "" {
		problems = append(problems, "issueType is required")
	}
	if in.Details == "" {
		problems = append(problems, "details is required")
	}
	if !in.Priority.Valid() {
		problems = append(problems, fmt.Sprintf("priority %q is not one of low, medium, high", in.Priority))
	}
	if len(problems) > 0 {
		return in, fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, "; "))
	}
	return in, nil
}

func (s *Service) Create(ctx context.Context, in Input) (*Ticket, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	t := &Ticket{
		Name:           in.Name,
		Email:          in.Email,
		IssueType:      in.IssueType,
		Details:        in.Details,
		Priority:       in.Priority,
		Status:         StatusOpen,
		ConversationID: conversationFromContext(ctx),
		CreatedAt:      s.now().UTC(),
	}
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		t.ID = s.newID()
		err = s.store.CreateTicket(ctx, t)
		if err == nil {
			slog.Info("ticket created", "id", t.ID, "issue_type", t.IssueType, "priority", t.Priority)
			return t, nil
		}
		if !errors.Is(err, ErrDuplicateID) {
			return nil, fmt.Errorf("store ticket: %w", err)
		}
	}
	return nil, fmt.Errorf("store ticket: %w", err)
}

func (s *Service) Get(ctx context.Context, id string) (*Ticket, error) {
	return s.store.GetTicket(ctx, id)
}

func (s *Service) List(ctx context.Context, conversationID string) ([]*Ticket, error) {
	return s.store.ListTickets(ctx, conversationID)
}

// MemoryStore keeps tickets in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	tickets map[string]*Ticket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tickets: map[string]*Ticket{}}
}

func (m *MemoryStore) CreateTicket(ctx context.Context, t *Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tickets[t.ID]; ok {
		return ErrDuplicateID
	}
	cp := *t
	m.tickets[t.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTicket(ctx context.Context, id string) (*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) ListTickets(ctx context.Context, conversationID string) ([]*Ticket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		if conversationID != "" && t.ConversationID != conversationID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
