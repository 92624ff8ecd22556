package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

const maxPageSize = 100

// TicketService is the ticket lifecycle engine: it validates and applies
// status/priority/assignment transitions, derives closedAt, and decides who
// gets notified. Notification fan-out happens after the primary write and is
// never allowed to fail the operation that triggered it.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Dispatcher  events.Dispatcher
	Now         func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title        string
	Description  string
	Priority     domain.TicketPriority
	IssueType    *domain.IssueType
	SLACategory  *string
	DueAt        *time.Time
	Department   *string
	CostEstimate *float64
}

// TicketListInput describes staff listing filters. All filters AND together.
type TicketListInput struct {
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	IssueType  *domain.IssueType
	Department *string
	Search     *string
	Page       int
	Limit      int
}

// TicketPage is a paginated listing result.
type TicketPage struct {
	Page       int             `json:"page"`
	TotalPages int64           `json:"totalPages"`
	Total      int64           `json:"total"`
	PageSize   int             `json:"pageSize"`
	Results    []domain.Ticket `json:"results"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// Create opens a new ticket for the actor and notifies the creator plus all
// IT staff and managers.
func (s *TicketService) Create(ctx context.Context, actor authz.Actor, input TicketCreateInput) (*domain.Ticket, error) {
	if err := authz.CanCreateTicket(actor); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if input.Priority != "" && !input.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority value", nil)
	}
	if input.IssueType != nil && !input.IssueType.Valid() {
		return nil, apperrors.NewValidationError("invalid issue type", nil)
	}

	creatorID := actor.ID
	ticket := &domain.Ticket{
		Title:        title,
		Description:  description,
		Status:       domain.TicketStatusOpen,
		Priority:     input.Priority,
		IssueType:    input.IssueType,
		UserID:       &creatorID,
		SLACategory:  input.SLACategory,
		DueAt:        input.DueAt,
		Department:   input.Department,
		CostEstimate: input.CostEstimate,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	creator, err := s.users.GetByID(ctx, actor.ID)
	if err == nil {
		recipients := []string{creator.Email}
		if staff, err := s.users.ListEmailsByRoles(ctx, domain.RoleITStaff, domain.RoleManager); err == nil {
			recipients = append(recipients, staff...)
		}
		s.publish(ctx, events.Event{
			Type:       events.EventTicketCreated,
			TicketID:   ticket.ID,
			ActorID:    &creatorID,
			Recipients: dedupe(recipients),
			Payload: events.TicketCreatedPayload{
				Title:        ticket.Title,
				Priority:     ticket.Priority,
				IssueType:    ticket.IssueType,
				Department:   ticket.Department,
				CreatorName:  creator.Name,
				CreatorEmail: creator.Email,
			},
		})
	}
	return ticket, nil
}

// Get returns a single ticket with its comment thread, enforcing the
// visibility rule: operators see everything, employees only their own.
func (s *TicketService) Get(ctx context.Context, actor authz.Actor, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if err := authz.CanViewTicket(actor, ticket.UserID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Comments = comments
	return ticket, nil
}

// ListMine returns all tickets created by the actor, newest first.
func (s *TicketService) ListMine(ctx context.Context, actor authz.Actor) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// List returns a paginated, filtered ticket listing for operators. The page
// size is capped regardless of what was requested.
func (s *TicketService) List(ctx context.Context, actor authz.Actor, input TicketListInput) (*TicketPage, error) {
	if err := authz.CanListAllTickets(actor); err != nil {
		return nil, err
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	tickets, total, err := s.tickets.FindAndCount(ctx, repository.TicketFilter{
		Status:     input.Status,
		Priority:   input.Priority,
		IssueType:  input.IssueType,
		Department: input.Department,
		SearchTerm: input.Search,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	if totalPages == 0 {
		totalPages = 1
	}
	return &TicketPage{
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
		PageSize:   limit,
		Results:    tickets,
	}, nil
}

// UpdateStatus sets the ticket status to any of the five allowed values.
// Entering resolved or closed stamps closedAt; the stamp is never cleared,
// even when the ticket is later reopened. Creator and assignee are notified.
func (s *TicketService) UpdateStatus(ctx context.Context, actor authz.Actor, ticketID int64, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if err := authz.CanUpdateTicketStatus(actor); err != nil {
		return nil, err
	}
	if !newStatus.Valid() {
		return nil, apperrors.NewValidationError("invalid or missing status value", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	ticket.Status = newStatus
	if newStatus.Terminal() {
		now := s.now()
		ticket.ClosedAt = &now
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventTicketStatusChanged,
		TicketID:   ticket.ID,
		ActorID:    &actor.ID,
		Recipients: ticketParticipants(ticket),
		Payload: events.TicketStatusChangedPayload{
			Title:     ticket.Title,
			NewStatus: newStatus,
			DueAt:     ticket.DueAt,
		},
	})
	return ticket, nil
}

// UpdatePriority sets the ticket priority and notifies creator and assignee.
func (s *TicketService) UpdatePriority(ctx context.Context, actor authz.Actor, ticketID int64, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if err := authz.CanUpdateTicketPriority(actor); err != nil {
		return nil, err
	}
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority value", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		Type:       events.EventTicketPriorityChanged,
		TicketID:   ticket.ID,
		ActorID:    &actor.ID,
		Recipients: ticketParticipants(ticket),
		Payload: events.TicketPriorityChangedPayload{
			Title:       ticket.Title,
			NewPriority: newPriority,
		},
	})
	return ticket, nil
}

// Assign sets the assignee and forces status to assigned, deliberately even
// when the ticket had already moved past that state. The assignee must be an
// existing user.
func (s *TicketService) Assign(ctx context.Context, actor authz.Actor, ticketID, assigneeID int64) (*domain.Ticket, error) {
	if err := authz.CanAssignTicket(actor); err != nil {
		return nil, err
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}

	assignee, err := s.users.GetByID(ctx, assigneeID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("assignee", nil)
		}
		return nil, apperrors.MapError(err)
	}

	ticket.AssignedTo = &assignee.ID
	ticket.Status = domain.TicketStatusAssigned
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.Assignee = &domain.UserRef{ID: assignee.ID, Name: assignee.Name, Email: assignee.Email, Role: assignee.Role}

	s.publish(ctx, events.Event{
		Type:       events.EventTicketAssigned,
		TicketID:   ticket.ID,
		ActorID:    &actor.ID,
		Recipients: ticketParticipants(ticket),
		Payload: events.TicketAssignedPayload{
			Title:        ticket.Title,
			AssigneeName: assignee.Name,
		},
	})
	return ticket, nil
}

// AddComment appends a comment to a ticket and notifies the creator and
// assignee. Employees may only comment on tickets they created.
func (s *TicketService) AddComment(ctx context.Context, actor authz.Actor, ticketID int64, body string) (*domain.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if err := authz.CanCommentOnTicket(actor, ticket.UserID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		UserID:   actor.ID,
		Body:     body,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}

	authorName := ""
	if author, err := s.users.GetByID(ctx, actor.ID); err == nil {
		authorName = author.Name
	}
	s.publish(ctx, events.Event{
		Type:       events.EventTicketCommentAdded,
		TicketID:   ticket.ID,
		ActorID:    &actor.ID,
		Recipients: ticketParticipants(ticket),
		Payload: events.TicketCommentAddedPayload{
			Title:       ticket.Title,
			AuthorName:  authorName,
			BodyPreview: preview(body, 120),
		},
	})
	return comment, nil
}

// ListComments returns the comment thread, applying the same visibility rule
// as viewing the ticket itself.
func (s *TicketService) ListComments(ctx context.Context, actor authz.Actor, ticketID int64) ([]domain.Comment, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, apperrors.MapError(err)
	}
	if err := authz.CanViewTicket(actor, ticket.UserID); err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comments, nil
}

// Delete removes a ticket permanently. Manager only; no soft-delete.
func (s *TicketService) Delete(ctx context.Context, actor authz.Actor, ticketID int64) error {
	if err := authz.CanDeleteTicket(actor); err != nil {
		return err
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("ticket", nil)
		}
		return apperrors.MapError(err)
	}
	return nil
}

// Stats returns aggregate ticket numbers for the dashboard.
func (s *TicketService) Stats(ctx context.Context, actor authz.Actor) (*domain.TicketStats, error) {
	if err := authz.CanListAllTickets(actor); err != nil {
		return nil, err
	}
	stats, err := s.tickets.Stats(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return stats, nil
}

// SLABreaches returns all tickets past their due date that are still
// unresolved, evaluated fresh against the current time.
func (s *TicketService) SLABreaches(ctx context.Context, actor authz.Actor) ([]domain.Ticket, error) {
	if err := authz.CanListAllTickets(actor); err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListSLABreaches(ctx, s.now())
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if len(event.Recipients) == 0 {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	s.dispatcher.Publish(ctx, event)
}

// ticketParticipants collects creator and assignee emails from the joined
// projections. Deleted accounts simply drop out of the list.
func ticketParticipants(ticket *domain.Ticket) []string {
	var recipients []string
	if ticket.Creator != nil {
		recipients = append(recipients, ticket.Creator.Email)
	}
	if ticket.Assignee != nil {
		recipients = append(recipients, ticket.Assignee.Email)
	}
	return dedupe(recipients)
}

func dedupe(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	result := make([]string, 0, len(emails))
	for _, email := range emails {
		if email == "" {
			continue
		}
		if _, ok := seen[email]; ok {
			continue
		}
		seen[email] = struct{}{}
		result = append(result, email)
	}
	return result
}

func preview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
