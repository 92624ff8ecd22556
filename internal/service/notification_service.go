package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationService turns domain events into outbound email. It sits
// behind the dispatcher, so any failure here is logged by the dispatcher and
// never reaches the operation that published the event.
type NotificationService struct {
	mailer Mailer
	logger *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(mailer Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{mailer: mailer, logger: logger}
}

// RegisterHandlers subscribes to all ticket events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	dispatcher.Subscribe(events.EventTicketPriorityChanged, n.handleTicketPriorityChanged)
	dispatcher.Subscribe(events.EventTicketAssigned, n.handleTicketAssigned)
	dispatcher.Subscribe(events.EventTicketCommentAdded, n.handleTicketCommentAdded)
	dispatcher.Subscribe(events.EventTicketStale, n.handleTicketStale)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCreatedPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("New Ticket #%d: %s", event.TicketID, payload.Title)
	lines := []string{
		fmt.Sprintf("A new ticket has been raised by %s (%s).", payload.CreatorName, payload.CreatorEmail),
		"Title: " + payload.Title,
		"Priority: " + string(payload.Priority),
	}
	if payload.IssueType != nil {
		lines = append(lines, "Issue Type: "+string(*payload.IssueType))
	}
	if payload.Department != nil {
		lines = append(lines, "Department: "+*payload.Department)
	}
	return n.send(ctx, event, subject, strings.Join(lines, "\n"))
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStatusChangedPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("Ticket #%d status changed to %s", event.TicketID, payload.NewStatus)
	lines := []string{
		"Ticket: " + payload.Title,
		"New Status: " + string(payload.NewStatus),
	}
	if payload.DueAt != nil {
		lines = append(lines, "Due: "+payload.DueAt.Format("2006-01-02 15:04"))
	}
	return n.send(ctx, event, subject, strings.Join(lines, "\n"))
}

func (n *NotificationService) handleTicketPriorityChanged(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketPriorityChangedPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("Ticket #%d priority updated to %s", event.TicketID, payload.NewPriority)
	body := "Ticket: " + payload.Title + "\nNew Priority: " + string(payload.NewPriority)
	return n.send(ctx, event, subject, body)
}

func (n *NotificationService) handleTicketAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketAssignedPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("Ticket #%d assigned to %s", event.TicketID, payload.AssigneeName)
	body := "Ticket: " + payload.Title + "\nAssigned To: " + payload.AssigneeName
	return n.send(ctx, event, subject, body)
}

func (n *NotificationService) handleTicketCommentAdded(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketCommentAddedPayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("New comment on ticket #%d", event.TicketID)
	body := "Ticket: " + payload.Title + "\n" + payload.AuthorName + " wrote:\n" + payload.BodyPreview
	return n.send(ctx, event, subject, body)
}

func (n *NotificationService) handleTicketStale(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketStalePayload)
	if !ok {
		return nil
	}
	subject := fmt.Sprintf("Reminder: ticket #%d awaiting first response", event.TicketID)
	body := "Ticket: " + payload.Title +
		"\nCreated: " + payload.CreatedAt.Format("2006-01-02 15:04") +
		"\nNo comments have been added yet. Please take appropriate action."
	return n.send(ctx, event, subject, body)
}

func (n *NotificationService) send(ctx context.Context, event events.Event, subject, body string) error {
	if len(event.Recipients) == 0 {
		return nil
	}
	if err := n.mailer.Send(ctx, event.Recipients, subject, body); err != nil {
		n.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.Error(err),
		)
	}
	return nil
}
