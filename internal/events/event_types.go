package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket_created"
	EventTicketStatusChanged   EventType = "ticket_status_changed"
	EventTicketPriorityChanged EventType = "ticket_priority_changed"
	EventTicketAssigned        EventType = "ticket_assigned"
	EventTicketCommentAdded    EventType = "ticket_comment_added"
	EventTicketStale           EventType = "ticket_stale"
)

// Event represents a domain event emitted by the ticket lifecycle engine and
// the SLA sweep. Recipients carries the email addresses the notification
// subscriber should fan out to; an event with no recipients is dropped.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TicketID   int64     `json:"ticket_id"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	Recipients []string  `json:"recipients"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title        string                `json:"title"`
	Priority     domain.TicketPriority `json:"priority"`
	IssueType    *domain.IssueType     `json:"issue_type,omitempty"`
	Department   *string               `json:"department,omitempty"`
	CreatorName  string                `json:"creator_name"`
	CreatorEmail string                `json:"creator_email"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	Title     string              `json:"title"`
	NewStatus domain.TicketStatus `json:"new_status"`
	DueAt     *time.Time          `json:"due_at,omitempty"`
}

// TicketPriorityChangedPayload payload.
type TicketPriorityChangedPayload struct {
	Title       string                `json:"title"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	Title        string `json:"title"`
	AssigneeName string `json:"assignee_name"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	Title       string `json:"title"`
	AuthorName  string `json:"author_name"`
	BodyPreview string `json:"body_preview"`
}

// TicketStalePayload payload.
type TicketStalePayload struct {
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}
