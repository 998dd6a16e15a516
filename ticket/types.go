package ticket

import (
	"context"
	"errors"
	"time"
)

const (
	ToolName = "createTicket"

	SuccessMessage = "✅ Ticket created successfully!"
	StatusOpen     = "open"
)

var (
	ErrNotFound     = errors.New("ticket not found")
	ErrDuplicateID  = errors.New("ticket id already exists")
	ErrInvalidInput = errors.New("invalid ticket input")
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Input is what the assistant sends to open a ticket.
type Input struct {
	Name      string   `json:"name" jsonschema:"required,description=Full name of the user"`
	Email     string   `json:"email" jsonschema:"required,description=User email"`
	IssueType string   `json:"issueType" jsonschema:"required,description=Type of issue (leave or salary or complaint etc.)"`
	Details   string   `json:"details" jsonschema:"required,description=Detailed issue description"`
	Priority  Priority `json:"priority,omitempty" jsonschema:"enum=low,enum=medium,enum=high,description=Issue priority"`
}

type Ticket struct {
	ID             string    `json:"ticketId"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	IssueType      string    `json:"issueType"`
	Details        string    `json:"details"`
	Priority       Priority  `json:"priority"`
	Status         string    `json:"status"`
	ConversationID string    `json:"conversationId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Result is the createTicket tool output.
type Result struct {
	Message string  `json:"message"`
	Ticket  *Ticket `json:"ticket"`
}

type Store interface {
	CreateTicket(ctx context.Context, t *Ticket) error
	GetTicket(ctx context.Context, id string) (*Ticket, error)
	ListTickets(ctx context.Context, conversationID string) ([]*Ticket, error)
}
