package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters. All keys combine with AND; the
// search term alone matches title OR description, case-insensitively.
type TicketFilter struct {
	UserID     *int64
	Status     *domain.TicketStatus
	Priority   *domain.TicketPriority
	IssueType  *domain.IssueType
	Department *string
	SearchTerm *string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	FindAndCount(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Ticket, error)
	Stats(ctx context.Context) (*domain.TicketStats, error)
	ListSLABreaches(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	ListStaleCandidates(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketSelect = `
        SELECT t.id, t.title, t.description, t.status, t.priority, t.issue_type,
               t.user_id, t.assigned_to, t.sla_category, t.due_at, t.closed_at,
               t.department, t.cost_estimate, t.created_at, t.updated_at,
               c.id, c.name, c.email, c.role,
               a.id, a.name, a.email, a.role
        FROM tickets t
        LEFT JOIN users c ON c.id = t.user_id
        LEFT JOIN users a ON a.id = t.assigned_to`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, status, priority, issue_type, user_id,
            assigned_to, sla_category, due_at, department, cost_estimate)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.IssueType,
		ticket.UserID,
		ticket.AssignedTo,
		ticket.SLACategory,
		ticket.DueAt,
		ticket.Department,
		ticket.CostEstimate,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, issue_type=$5,
            assigned_to=$6, sla_category=$7, due_at=$8, closed_at=$9, department=$10,
            cost_estimate=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.IssueType,
		ticket.AssignedTo,
		ticket.SLACategory,
		ticket.DueAt,
		ticket.ClosedAt,
		ticket.Department,
		ticket.CostEstimate,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := ticketSelect + ` WHERE t.id=$1`
	row := r.pool.QueryRow(ctx, query, id)
	ticket, err := scanTicketRow(row)
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) FindAndCount(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("t.user_id=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if filter.IssueType != nil {
		args = append(args, *filter.IssueType)
		clauses = append(clauses, fmt.Sprintf("t.issue_type=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("t.department=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.title) LIKE %s OR LOWER(t.description) LIKE %s)", placeholder, placeholder))
	}

	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tickets t WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY t.created_at DESC LIMIT %d OFFSET %d`,
		ticketSelect, where, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *ticketRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Ticket, error) {
	query := ticketSelect + ` WHERE t.user_id=$1 ORDER BY t.created_at DESC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Stats(ctx context.Context) (*domain.TicketStats, error) {
	stats := &domain.TicketStats{}

	const counts = `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'open'),
               COUNT(*) FILTER (WHERE status = 'assigned'),
               COUNT(*) FILTER (WHERE status = 'in_progress'),
               COUNT(*) FILTER (WHERE status = 'resolved'),
               COUNT(*) FILTER (WHERE status = 'closed')
        FROM tickets`
	if err := r.pool.QueryRow(ctx, counts).Scan(
		&stats.Total,
		&stats.Open,
		&stats.Assigned,
		&stats.InProgress,
		&stats.Resolved,
		&stats.Closed,
	); err != nil {
		return nil, err
	}

	// Mean resolution time over resolved tickets that carry a close stamp,
	// rounded to whole hours. Zero when no ticket qualifies.
	const avg = `
        SELECT COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM (closed_at - created_at)) / 3600)), 0)
        FROM tickets
        WHERE status = 'resolved' AND closed_at IS NOT NULL`
	if err := r.pool.QueryRow(ctx, avg).Scan(&stats.AvgResolutionHours); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT COALESCE(department, 'Unknown'), COUNT(*) FROM tickets GROUP BY department`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var dc domain.DepartmentCount
		if err := rows.Scan(&dc.Department, &dc.Count); err != nil {
			return nil, err
		}
		stats.TicketsByDepartment = append(stats.TicketsByDepartment, dc)
	}
	return stats, rows.Err()
}

// ListSLABreaches returns tickets past their due date that are still
// unresolved. Pure read, re-evaluated on every call.
func (r *ticketRepository) ListSLABreaches(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	query := ticketSelect + `
        WHERE t.due_at < $1 AND t.status NOT IN ('resolved', 'closed')
        ORDER BY t.due_at ASC`
	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListStaleCandidates returns active tickets created before the cutoff that
// have no comments yet, bounded to a batch to keep sweeps cheap.
func (r *ticketRepository) ListStaleCandidates(ctx context.Context, cutoff time.Time, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	query := ticketSelect + fmt.Sprintf(`
        WHERE t.created_at <= $1
          AND t.status IN ('open', 'assigned', 'in_progress')
          AND NOT EXISTS (SELECT 1 FROM ticket_comments tc WHERE tc.ticket_id = t.id)
        ORDER BY t.created_at ASC
        LIMIT %d`, limit)
	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicketRow(row rowScanner) (*domain.Ticket, error) {
	var ticket domain.Ticket
	var creatorID, assigneeID *int64
	var creatorName, creatorEmail, assigneeName, assigneeEmail *string
	var creatorRole, assigneeRole *domain.Role

	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.IssueType,
		&ticket.UserID,
		&ticket.AssignedTo,
		&ticket.SLACategory,
		&ticket.DueAt,
		&ticket.ClosedAt,
		&ticket.Department,
		&ticket.CostEstimate,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&creatorID,
		&creatorName,
		&creatorEmail,
		&creatorRole,
		&assigneeID,
		&assigneeName,
		&assigneeEmail,
		&assigneeRole,
	); err != nil {
		return nil, err
	}

	if creatorID != nil {
		ticket.Creator = &domain.UserRef{ID: *creatorID, Name: *creatorName, Email: *creatorEmail, Role: *creatorRole}
	}
	if assigneeID != nil {
		ticket.Assignee = &domain.UserRef{ID: *assigneeID, Name: *assigneeName, Email: *assigneeEmail, Role: *assigneeRole}
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicketRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
