package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrMessageNotFound = errors.New("message not found")

// Message is one chat message with its UI parts.
type Message struct {
	ID             string          `json:"id"`
	Role           string          `json:"role"`
	Parts          json.RawMessage `json:"parts"`
	ConversationID string          `json:"conversationId"`
	CreatedAt      time.Time       `json:"createdAt"`
}

func NewMessageID() string {
	return uuid.NewString()
}

type MessageStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db, now: time.Now}
}

// Upsert inserts msg or replaces role, parts and conversation of the message
// with the same id. The original creation time is kept.
func (s *MessageStore) Upsert(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		return errors.New("message id is required")
	}
	parts := msg.Parts
	if len(parts) == 0 {
		parts = json.RawMessage("[]")
	}
	if !json.Valid(parts) {
		return errors.New("message parts are not valid JSON")
	}
	now := s.now().UnixMilli()
	if !msg.CreatedAt.IsZero() {
		now = msg.CreatedAt.UnixMilli()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, role, parts, conversation_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT(id) DO UPDATE SET
			role = excluded.role,
			parts = excluded.parts,
			conversation_id = excluded.conversation_id,
			updated_at = excluded.updated_at`,
		msg.ID, msg.Role, string(parts), msg.ConversationID, now)
	if err != nil {
		return fmt.Errorf("upserting message: %w", err)
	}
	return nil
}

func (s *MessageStore) Get(ctx context.Context, id string) (*Message, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, role, parts, conversation_id, created_at FROM messages WHERE id = $1`, id)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMessageNotFound
	}
	return msg, err
}

// List returns every message, oldest first.
func (s *MessageStore) List(ctx context.Context) ([]*Message, error) {
	return s.query(ctx, `SELECT id, role, parts, conversation_id, created_at FROM messages ORDER BY created_at ASC, rowid ASC`)
}

// ListConversation returns the messages of one conversation, oldest first.
func (s *MessageStore) ListConversation(ctx context.Context, conversationID string) ([]*Message, error) {
	return s.query(ctx, `SELECT id, role, parts, conversation_id, created_at FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, rowid ASC`, conversationID)
}

func (s *MessageStore) DeleteConversation(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = $1`, conversationID)
	return err
}

func (s *MessageStore) query(ctx context.Context, q string, args ...any) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	out := []*Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*Message, error) {
	var (
		msg       Message
		parts     string
		createdAt int64
	)
	if err := row.Scan(&msg.ID, &msg.Role, &parts, &msg.ConversationID, &createdAt); err != nil {
		return nil, err
	}
	msg.Parts = json.RawMessage(parts)
	msg.CreatedAt = time.UnixMilli(createdAt).UTC()
	return &msg, nil
}
