package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Priority     domain.TicketPriority `json:"priority"`
	IssueType    *domain.IssueType     `json:"issue_type"`
	SLACategory  *string               `json:"sla_category"`
	DueAt        *time.Time            `json:"due_at"`
	Department   *string               `json:"department"`
	CostEstimate *float64              `json:"cost_estimate"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AssigneeID int64 `json:"assignee_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body string `json:"body"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID           int64                 `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Status       domain.TicketStatus   `json:"status"`
	Priority     domain.TicketPriority `json:"priority"`
	IssueType    *domain.IssueType     `json:"issue_type"`
	SLACategory  *string               `json:"sla_category"`
	DueAt        *time.Time            `json:"due_at"`
	ClosedAt     *time.Time            `json:"closed_at"`
	Department   *string               `json:"department"`
	CostEstimate *float64              `json:"cost_estimate"`
	Creator      *domain.UserRef       `json:"creator"`
	Assignee     *domain.UserRef       `json:"assignee"`
	Comments     []CommentResponse     `json:"comments,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID        int64           `json:"id"`
	TicketID  int64           `json:"ticket_id"`
	Body      string          `json:"body"`
	Author    *domain.UserRef `json:"author"`
	CreatedAt time.Time       `json:"created_at"`
}

// TicketPageResponse is a paginated listing.
type TicketPageResponse struct {
	Page       int              `json:"page"`
	TotalPages int64            `json:"total_pages"`
	Total      int64            `json:"total"`
	PageSize   int              `json:"page_size"`
	Results    []TicketResponse `json:"results"`
}

// TicketFromDomain maps a domain ticket to its response shape.
func TicketFromDomain(t *domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Status:       t.Status,
		Priority:     t.Priority,
		IssueType:    t.IssueType,
		SLACategory:  t.SLACategory,
		DueAt:        t.DueAt,
		ClosedAt:     t.ClosedAt,
		Department:   t.Department,
		CostEstimate: t.CostEstimate,
		Creator:      t.Creator,
		Assignee:     t.Assignee,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	for i := range t.Comments {
		resp.Comments = append(resp.Comments, CommentFromDomain(&t.Comments[i]))
	}
	return resp
}

// TicketsFromDomain maps a slice of tickets.
func TicketsFromDomain(tickets []domain.Ticket) []TicketResponse {
	items := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, TicketFromDomain(&tickets[i]))
	}
	return items
}

// CommentFromDomain maps a domain comment.
func CommentFromDomain(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID,
		TicketID:  c.TicketID,
		Body:      c.Body,
		Author:    c.Author,
		CreatedAt: c.CreatedAt,
	}
}

// CommentsFromDomain maps a slice of comments.
func CommentsFromDomain(comments []domain.Comment) []CommentResponse {
	items := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		items = append(items, CommentFromDomain(&comments[i]))
	}
	return items
}
