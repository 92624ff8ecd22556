package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// stubUserRepo is an in-memory UserRepository.
type stubUserRepo struct {
	mu         sync.Mutex
	users      map[int64]*domain.User
	nextID     int64
	emails     []string
	lastFilter repository.UserFilter
	findUsers  []domain.User
	findTotal  int64
	stats      *domain.UserStats
	createErr  error
	updateErr  error
	deleted    []int64
}

func newStubUserRepo(seed ...*domain.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[int64]*domain.User), nextID: 1}
	for _, u := range seed {
		if u.ID == 0 {
			u.ID = repo.nextID
		}
		if u.ID >= repo.nextID {
			repo.nextID = u.ID + 1
		}
		repo.users[u.ID] = u
	}
	return repo
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) Update(_ context.Context, user *domain.User) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *stubUserRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.users, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *stubUserRepo) FindAndCount(_ context.Context, filter repository.UserFilter) ([]domain.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter
	return r.findUsers, r.findTotal, nil
}

func (r *stubUserRepo) ListEmailsByRoles(_ context.Context, _ ...domain.Role) ([]string, error) {
	return r.emails, nil
}

func (r *stubUserRepo) Stats(_ context.Context) (*domain.UserStats, error) {
	return r.stats, nil
}

// stubTicketRepo is an in-memory TicketRepository.
type stubTicketRepo struct {
	mu          sync.Mutex
	tickets     map[int64]*domain.Ticket
	nextID      int64
	lastFilter  repository.TicketFilter
	findTickets []domain.Ticket
	findTotal   int64
	byUser      []domain.Ticket
	breaches    []domain.Ticket
	stale       []domain.Ticket
	stats       *domain.TicketStats
	updateErr   error
	deleted     []int64
}

func newStubTicketRepo(seed ...*domain.Ticket) *stubTicketRepo {
	repo := &stubTicketRepo{tickets: make(map[int64]*domain.Ticket), nextID: 1}
	for _, t := range seed {
		if t.ID == 0 {
			t.ID = repo.nextID
		}
		if t.ID >= repo.nextID {
			repo.nextID = t.ID + 1
		}
		repo.tickets[t.ID] = t
	}
	return repo
}

func (r *stubTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket.ID = r.nextID
	r.nextID++
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *stubTicketRepo) Update(_ context.Context, ticket *domain.Ticket) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *ticket
	r.tickets[ticket.ID] = &clone
	return nil
}

func (r *stubTicketRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *stubTicketRepo) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (r *stubTicketRepo) FindAndCount(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = filter
	return r.findTickets, r.findTotal, nil
}

func (r *stubTicketRepo) ListByUser(_ context.Context, _ int64) ([]domain.Ticket, error) {
	return r.byUser, nil
}

func (r *stubTicketRepo) Stats(_ context.Context) (*domain.TicketStats, error) {
	return r.stats, nil
}

func (r *stubTicketRepo) ListSLABreaches(_ context.Context, _ time.Time) ([]domain.Ticket, error) {
	return r.breaches, nil
}

func (r *stubTicketRepo) ListStaleCandidates(_ context.Context, _ time.Time, _ int) ([]domain.Ticket, error) {
	return r.stale, nil
}

// stubCommentRepo records created comments.
type stubCommentRepo struct {
	mu       sync.Mutex
	comments []domain.Comment
	nextID   int64
}

func newStubCommentRepo() *stubCommentRepo {
	return &stubCommentRepo{nextID: 1}
}

func (r *stubCommentRepo) Create(_ context.Context, comment *domain.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = r.nextID
	r.nextID++
	comment.CreatedAt = time.Now()
	r.comments = append(r.comments, *comment)
	return nil
}

func (r *stubCommentRepo) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Comment
	for _, c := range r.comments {
		if c.TicketID == ticketID {
			out = append(out, c)
		}
	}
	return out, nil
}

// stubDispatcher records published events synchronously.
type stubDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *stubDispatcher) Publish(_ context.Context, event events.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
}

func (d *stubDispatcher) Subscribe(_ events.EventType, _ events.EventHandler) {}

func (d *stubDispatcher) published() []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]events.Event{}, d.events...)
}

// stubMailer records outbound mail and can be made to fail.
type stubMailer struct {
	mu   sync.Mutex
	sent []stubMail
	err  error
}

type stubMail struct {
	To      []string
	Subject string
	Body    string
}

func (m *stubMailer) Send(_ context.Context, to []string, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, stubMail{To: to, Subject: subject, Body: body})
	return nil
}

// stubLimiter returns a fixed wait.
type stubLimiter struct {
	wait time.Duration
	err  error
	keys []string
}

func (l *stubLimiter) Reserve(_ context.Context, key string) (time.Duration, error) {
	l.keys = append(l.keys, key)
	return l.wait, l.err
}
