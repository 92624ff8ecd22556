package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/authz"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTicketFixture(ticketRepo *stubTicketRepo, userRepo *stubUserRepo) (*TicketService, *stubDispatcher) {
	dispatcher := &stubDispatcher{}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: newStubCommentRepo(),
		UserRepo:    userRepo,
		Dispatcher:  dispatcher,
		Now:         func() time.Time { return fixedNow },
	})
	return svc, dispatcher
}

func employeeActor(id int64) authz.Actor { return authz.Actor{ID: id, Role: domain.RoleEmployee} }
func staffActor(id int64) authz.Actor    { return authz.Actor{ID: id, Role: domain.RoleITStaff} }
func managerActor(id int64) authz.Actor  { return authz.Actor{ID: id, Role: domain.RoleManager} }

func errCode(t *testing.T, err error) string {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	return apperrors.ToDomainError(err).Code
}

func TestCreateTicketDefaults(t *testing.T) {
	t.Parallel()

	creator := &domain.User{ID: 1, Name: "Ann", Email: "ann@example.com", Role: domain.RoleEmployee}
	userRepo := newStubUserRepo(creator)
	userRepo.emails = []string{"staff@example.com", "boss@example.com"}
	svc, dispatcher := newTicketFixture(newStubTicketRepo(), userRepo)

	ticket, err := svc.Create(context.Background(), employeeActor(1), TicketCreateInput{
		Title:       "Laptop will not boot",
		Description: "Black screen since this morning",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want open", ticket.Status)
	}
	if ticket.Priority != domain.TicketPriorityMedium {
		t.Errorf("priority = %s, want medium", ticket.Priority)
	}
	if ticket.UserID == nil || *ticket.UserID != 1 {
		t.Errorf("creator id not recorded: %v", ticket.UserID)
	}

	published := dispatcher.published()
	if len(published) != 1 {
		t.Fatalf("published %d events, want 1", len(published))
	}
	event := published[0]
	if event.Type != events.EventTicketCreated {
		t.Errorf("event type = %s", event.Type)
	}
	want := map[string]bool{"ann@example.com": true, "staff@example.com": true, "boss@example.com": true}
	if len(event.Recipients) != len(want) {
		t.Fatalf("recipients = %v", event.Recipients)
	}
	for _, email := range event.Recipients {
		if !want[email] {
			t.Errorf("unexpected recipient %s", email)
		}
	}
}

func TestCreateTicketValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTicketFixture(newStubTicketRepo(), newStubUserRepo())

	if code := errCode(t, mustErr(svc.Create(context.Background(), employeeActor(1), TicketCreateInput{Title: " ", Description: "x"}))); code != "VALIDATION_FAILED" {
		t.Errorf("blank title: code = %s", code)
	}
	if code := errCode(t, mustErr(svc.Create(context.Background(), employeeActor(1), TicketCreateInput{
		Title: "t", Description: "d", Priority: "urgent",
	}))); code != "VALIDATION_FAILED" {
		t.Errorf("bad priority: code = %s", code)
	}
}

func TestUpdateStatusStampsClosedAtAndKeepsIt(t *testing.T) {
	t.Parallel()

	creatorID := int64(1)
	ticketRepo := newStubTicketRepo(&domain.Ticket{
		Title: "Printer jam", Status: domain.TicketStatusInProgress,
		Priority: domain.TicketPriorityLow, UserID: &creatorID,
		Creator: &domain.UserRef{ID: 1, Email: "ann@example.com"},
	})
	svc, dispatcher := newTicketFixture(ticketRepo, newStubUserRepo())

	ticket, err := svc.UpdateStatus(context.Background(), staffActor(2), 1, domain.TicketStatusResolved)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if ticket.ClosedAt == nil || !ticket.ClosedAt.Equal(fixedNow) {
		t.Fatalf("closedAt = %v, want %v", ticket.ClosedAt, fixedNow)
	}

	// Reopening must not clear the stamp.
	ticket, err = svc.UpdateStatus(context.Background(), staffActor(2), 1, domain.TicketStatusOpen)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Errorf("status = %s, want open", ticket.Status)
	}
	if ticket.ClosedAt == nil || !ticket.ClosedAt.Equal(fixedNow) {
		t.Errorf("closedAt cleared on reopen: %v", ticket.ClosedAt)
	}

	if got := len(dispatcher.published()); got != 2 {
		t.Errorf("published %d events, want 2", got)
	}
}

func TestUpdateStatusErrors(t *testing.T) {
	t.Parallel()

	svc, _ := newTicketFixture(newStubTicketRepo(), newStubUserRepo())

	if code := errCode(t, mustErr(svc.UpdateStatus(context.Background(), staffActor(2), 1, "cancelled"))); code != "VALIDATION_FAILED" {
		t.Errorf("invalid status: code = %s", code)
	}
	if code := errCode(t, mustErr(svc.UpdateStatus(context.Background(), staffActor(2), 99, domain.TicketStatusOpen))); code != "NOT_FOUND" {
		t.Errorf("missing ticket: code = %s", code)
	}
	if code := errCode(t, mustErr(svc.UpdateStatus(context.Background(), employeeActor(1), 1, domain.TicketStatusOpen))); code != "FORBIDDEN" {
		t.Errorf("employee: code = %s", code)
	}
}

func TestStatusChangeWithNoRecipientsSkipsEvent(t *testing.T) {
	t.Parallel()

	// Orphaned and unassigned: nobody to notify.
	ticketRepo := newStubTicketRepo(&domain.Ticket{
		Title: "Orphan", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium,
	})
	svc, dispatcher := newTicketFixture(ticketRepo, newStubUserRepo())

	if _, err := svc.UpdateStatus(context.Background(), staffActor(2), 1, domain.TicketStatusClosed); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := len(dispatcher.published()); got != 0 {
		t.Errorf("published %d events, want 0", got)
	}
}

func TestAssignForcesStatus(t *testing.T) {
	t.Parallel()

	creatorID := int64(1)
	ticketRepo := newStubTicketRepo(&domain.Ticket{
		Title: "VPN down", Status: domain.TicketStatusInProgress,
		Priority: domain.TicketPriorityHigh, UserID: &creatorID,
		Creator: &domain.UserRef{ID: 1, Email: "ann@example.com"},
	})
	assignee := &domain.User{ID: 5, Name: "Bo", Email: "bo@example.com", Role: domain.RoleITStaff}
	svc, dispatcher := newTicketFixture(ticketRepo, newStubUserRepo(assignee))

	ticket, err := svc.Assign(context.Background(), managerActor(3), 1, 5)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if ticket.Status != domain.TicketStatusAssigned {
		t.Errorf("status = %s, want assigned even from in_progress", ticket.Status)
	}
	if ticket.AssignedTo == nil || *ticket.AssignedTo != 5 {
		t.Errorf("assignedTo = %v", ticket.AssignedTo)
	}

	published := dispatcher.published()
	if len(published) != 1 || published[0].Type != events.EventTicketAssigned {
		t.Fatalf("events = %+v", published)
	}
}

func TestAssignUnknownAssignee(t *testing.T) {
	t.Parallel()

	ticketRepo := newStubTicketRepo(&domain.Ticket{Title: "x", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium})
	svc, _ := newTicketFixture(ticketRepo, newStubUserRepo())

	if code := errCode(t, mustErr(svc.Assign(context.Background(), staffActor(2), 1, 42))); code != "NOT_FOUND" {
		t.Errorf("code = %s, want NOT_FOUND", code)
	}
}

func TestListCapsPageSize(t *testing.T) {
	t.Parallel()

	ticketRepo := newStubTicketRepo()
	ticketRepo.findTotal = 450
	svc, _ := newTicketFixture(ticketRepo, newStubUserRepo())

	page, err := svc.List(context.Background(), staffActor(2), TicketListInput{Page: 2, Limit: 500})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ticketRepo.lastFilter.Limit != 100 {
		t.Errorf("limit = %d, want cap of 100", ticketRepo.lastFilter.Limit)
	}
	if ticketRepo.lastFilter.Offset != 100 {
		t.Errorf("offset = %d, want 100", ticketRepo.lastFilter.Offset)
	}
	if page.TotalPages != 5 {
		t.Errorf("totalPages = %d, want 5", page.TotalPages)
	}

	if _, err := svc.List(context.Background(), staffActor(2), TicketListInput{}); err != nil {
		t.Fatalf("list defaults: %v", err)
	}
	if ticketRepo.lastFilter.Limit != 20 || ticketRepo.lastFilter.Offset != 0 {
		t.Errorf("defaults: limit=%d offset=%d, want 20/0", ticketRepo.lastFilter.Limit, ticketRepo.lastFilter.Offset)
	}

	if code := errCode(t, mustErr(svc.List(context.Background(), employeeActor(1), TicketListInput{}))); code != "FORBIDDEN" {
		t.Errorf("employee listing: code = %s", code)
	}
}

func TestGetVisibility(t *testing.T) {
	t.Parallel()

	ownerID := int64(1)
	ticketRepo := newStubTicketRepo(&domain.Ticket{
		Title: "Private", Status: domain.TicketStatusOpen,
		Priority: domain.TicketPriorityMedium, UserID: &ownerID,
	})
	svc, _ := newTicketFixture(ticketRepo, newStubUserRepo())

	if _, err := svc.Get(context.Background(), employeeActor(1), 1); err != nil {
		t.Fatalf("owner view: %v", err)
	}
	if code := errCode(t, mustErr(svc.Get(context.Background(), employeeActor(9), 1))); code != "FORBIDDEN" {
		t.Errorf("other employee: code = %s", code)
	}
	if _, err := svc.Get(context.Background(), staffActor(2), 1); err != nil {
		t.Fatalf("staff view: %v", err)
	}
	// Missing ticket is 404, not a denial.
	if code := errCode(t, mustErr(svc.Get(context.Background(), employeeActor(9), 77))); code != "NOT_FOUND" {
		t.Errorf("missing ticket: code = %s", code)
	}
}

func TestAddCommentRules(t *testing.T) {
	t.Parallel()

	ownerID := int64(1)
	ticketRepo := newStubTicketRepo(&domain.Ticket{
		Title: "Keyboard", Status: domain.TicketStatusOpen,
		Priority: domain.TicketPriorityMedium, UserID: &ownerID,
		Creator: &domain.UserRef{ID: 1, Email: "ann@example.com"},
	})
	author := &domain.User{ID: 1, Name: "Ann", Email: "ann@example.com", Role: domain.RoleEmployee}
	svc, dispatcher := newTicketFixture(ticketRepo, newStubUserRepo(author))

	comment, err := svc.AddComment(context.Background(), employeeActor(1), 1, "any update?")
	if err != nil {
		t.Fatalf("owner comment: %v", err)
	}
	if comment.UserID != 1 || comment.TicketID != 1 {
		t.Errorf("comment = %+v", comment)
	}
	if got := len(dispatcher.published()); got != 1 {
		t.Errorf("published %d events, want 1", got)
	}

	if code := errCode(t, mustErr(svc.AddComment(context.Background(), employeeActor(9), 1, "hi"))); code != "FORBIDDEN" {
		t.Errorf("other employee: code = %s", code)
	}
	if code := errCode(t, mustErr(svc.AddComment(context.Background(), employeeActor(1), 1, "  "))); code != "VALIDATION_FAILED" {
		t.Errorf("blank body: code = %s", code)
	}
}

func TestDeleteTicketRequiresManager(t *testing.T) {
	t.Parallel()

	ticketRepo := newStubTicketRepo(&domain.Ticket{Title: "x", Status: domain.TicketStatusOpen, Priority: domain.TicketPriorityMedium})
	svc, _ := newTicketFixture(ticketRepo, newStubUserRepo())

	if err := svc.Delete(context.Background(), staffActor(2), 1); err == nil {
		t.Fatal("it_staff should not delete tickets")
	}
	if err := svc.Delete(context.Background(), managerActor(3), 1); err != nil {
		t.Fatalf("manager delete: %v", err)
	}
	if len(ticketRepo.deleted) != 1 || ticketRepo.deleted[0] != 1 {
		t.Errorf("deleted = %v", ticketRepo.deleted)
	}
}

func TestNotificationFailureDoesNotFailMutation(t *testing.T) {
	t.Parallel()

	creator := &domain.User{ID: 1, Name: "Ann", Email: "ann@example.com", Role: domain.RoleEmployee}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		return errors.New("smtp unreachable")
	})
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  newStubTicketRepo(),
		CommentRepo: newStubCommentRepo(),
		UserRepo:    newStubUserRepo(creator),
		Dispatcher:  dispatcher,
		Now:         func() time.Time { return fixedNow },
	})

	if _, err := svc.Create(context.Background(), employeeActor(1), TicketCreateInput{
		Title: "t", Description: "d",
	}); err != nil {
		t.Fatalf("create should succeed despite handler failure: %v", err)
	}
}

func TestTicketStatsPassthrough(t *testing.T) {
	t.Parallel()

	ticketRepo := newStubTicketRepo()
	ticketRepo.stats = &domain.TicketStats{Total: 7, Open: 3, AvgResolutionHours: 12}
	svc, _ := newTicketFixture(ticketRepo, newStubUserRepo())

	stats, err := svc.Stats(context.Background(), managerActor(3))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 7 || stats.AvgResolutionHours != 12 {
		t.Errorf("stats = %+v", stats)
	}
	if code := errCode(t, mustErr(svc.Stats(context.Background(), employeeActor(1)))); code != "FORBIDDEN" {
		t.Errorf("employee stats: code = %s", code)
	}
}

// mustErr discards the value of a (value, error) return for error-path asserts.
func mustErr[T any](_ T, err error) error { return err }
