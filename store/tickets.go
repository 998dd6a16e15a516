package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tbxark/hrdesk/ticket"
)

var _ ticket.Store = (*TicketStore)(nil)

type TicketStore struct {
	db *sql.DB
}

func NewTicketStore(db *sql.DB) *TicketStore {
	return &TicketStore{db: db}
}

func (s *TicketStore) CreateTicket(ctx context.Context, t *ticket.Ticket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (id, name, email, issue_type, details, priority, status, conversation_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.Name, t.Email, t.IssueType, t.Details, string(t.Priority), t.Status, t.ConversationID, t.CreatedAt.UnixMilli())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ticket.ErrDuplicateID
		}
		return fmt.Errorf("inserting ticket: %w", err)
	}
	return nil
}

func (s *TicketStore) GetTicket(ctx context.Context, id string) (*ticket.Ticket, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, issue_type, details, priority, status, conversation_id, created_at
		FROM tickets WHERE id = $1`, id)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ticket.ErrNotFound
	}
	return t, err
}

func (s *TicketStore) ListTickets(ctx context.Context, conversationID string) ([]*ticket.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, issue_type, details, priority, status, conversation_id, created_at
		FROM tickets WHERE $1 = '' OR conversation_id = $1
		ORDER BY created_at ASC, rowid ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing tickets: %w", err)
	}
	defer rows.Close()

	out := []*ticket.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTicket(row scanner) (*ticket.Ticket, error) {
	var (
		t         ticket.Ticket
		priority  string
		createdAt int64
	)
	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.IssueType, &t.Details, &priority, &t.Status, &t.ConversationID, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Priority = ticket.Priority(priority)
	t.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &t, nil
}
