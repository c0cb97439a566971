package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ticketops/helpdesk/internal/domain"
)

// TicketFilter captures ticket search parameters.
type TicketFilter struct {
	CreatedBy        *string
	AssignedTo       *string
	Unassigned       bool
	Statuses         []domain.TicketStatus
	Priorities       []domain.TicketPriority
	CreatedFrom      *time.Time
	CreatedTo        *time.Time
	OrderOldestFirst bool
	Limit            int
	Offset           int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	// UpdateWithComment applies a ticket mutation and its audit comment as a
	// single transaction so a reader never observes one without the other.
	UpdateWithComment(ctx context.Context, ticket *domain.Ticket, comment *domain.Comment) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	Delete(ctx context.Context, id int64) error
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error)
	// ActiveLoadByAssignee computes every agent's weighted load in one
	// aggregate, fresh from the current ticket table.
	ActiveLoadByAssignee(ctx context.Context, weights domain.PriorityWeights) (map[string]int, error)
	ActiveLoadForAgent(ctx context.Context, agentID string, weights domain.PriorityWeights) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, priority, status, created_by, assigned_to,
               created_at, updated_at, response_due_at, resolution_due_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, priority, status, created_by, assigned_to, response_due_at, resolution_due_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.CreatedBy,
		ticket.AssignedTo,
		ticket.ResponseDueAt,
		ticket.ResolutionDueAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

const ticketUpdateQuery = `
        UPDATE tickets SET title=$1, description=$2, priority=$3, status=$4, assigned_to=$5,
            response_due_at=$6, resolution_due_at=$7, updated_at=NOW()
        WHERE id=$8`

func ticketUpdateArgs(ticket *domain.Ticket) []any {
	return []any{
		ticket.Title,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTo,
		ticket.ResponseDueAt,
		ticket.ResolutionDueAt,
		ticket.ID,
	}
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	cmd, err := r.pool.Exec(ctx, ticketUpdateQuery, ticketUpdateArgs(ticket)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) UpdateWithComment(ctx context.Context, ticket *domain.Ticket, comment *domain.Comment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	cmd, err := tx.Exec(ctx, ticketUpdateQuery, ticketUpdateArgs(ticket)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	const commentQuery = `
        INSERT INTO comments (ticket_id, author_id, text)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, commentQuery,
		comment.TicketID,
		comment.AuthorID,
		comment.Text,
	).Scan(&comment.ID, &comment.CreatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := fmt.Sprintf("SELECT %s FROM tickets WHERE id=$1", ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Priority,
		&ticket.Status,
		&ticket.CreatedBy,
		&ticket.AssignedTo,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResponseDueAt,
		&ticket.ResolutionDueAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tickets WHERE id=$1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := fmt.Sprintf("SELECT %s FROM tickets", ticketColumns)
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("created_by=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_to IS NULL")
	}
	if len(filter.Statuses) > 0 {
		args = append(args, statusStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		args = append(args, priorityStrings(filter.Priorities))
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	order := "created_at DESC"
	if filter.OrderOldestFirst {
		order = "created_at ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf("%s WHERE %s ORDER BY %s LIMIT %d OFFSET %d",
		base, strings.Join(clauses, " AND "), order, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

// ListOverdue returns escalation candidates: active tickets past their
// resolution deadline, excluding those already at high priority.
func (r *ticketRepository) ListOverdue(ctx context.Context, now time.Time) ([]domain.Ticket, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM tickets
        WHERE status = ANY($1)
          AND resolution_due_at IS NOT NULL
          AND resolution_due_at < $2
          AND NOT (priority = $3)
        ORDER BY resolution_due_at ASC`, ticketColumns)
	rows, err := r.pool.Query(ctx, query, statusStrings(domain.ActiveStatuses), now, domain.TicketPriorityHigh)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ActiveLoadByAssignee(ctx context.Context, weights domain.PriorityWeights) (map[string]int, error) {
	const query = `
        SELECT assigned_to,
               COALESCE(SUM(CASE priority
                   WHEN 'high' THEN $1::int
                   WHEN 'medium' THEN $2::int
                   WHEN 'low' THEN $3::int
                   ELSE $3::int END), 0)
        FROM tickets
        WHERE assigned_to IS NOT NULL AND status = ANY($4)
        GROUP BY assigned_to`
	rows, err := r.pool.Query(ctx, query,
		weights.High, weights.Medium, weights.Low, statusStrings(domain.ActiveStatuses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loads := make(map[string]int)
	for rows.Next() {
		var agentID string
		var load int
		if err := rows.Scan(&agentID, &load); err != nil {
			return nil, err
		}
		loads[agentID] = load
	}
	return loads, rows.Err()
}

func (r *ticketRepository) ActiveLoadForAgent(ctx context.Context, agentID string, weights domain.PriorityWeights) (int, error) {
	const query = `
        SELECT COALESCE(SUM(CASE priority
                   WHEN 'high' THEN $1::int
                   WHEN 'medium' THEN $2::int
                   WHEN 'low' THEN $3::int
                   ELSE $3::int END), 0)
        FROM tickets
        WHERE assigned_to = $4 AND status = ANY($5)`
	var load int
	if err := r.pool.QueryRow(ctx, query,
		weights.High, weights.Medium, weights.Low, agentID, statusStrings(domain.ActiveStatuses),
	).Scan(&load); err != nil {
		return 0, err
	}
	return load, nil
}

func statusStrings(statuses []domain.TicketStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func priorityStrings(priorities []domain.TicketPriority) []string {
	out := make([]string, len(priorities))
	for i, p := range priorities {
		out[i] = string(p)
	}
	return out
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Priority,
			&ticket.Status,
			&ticket.CreatedBy,
			&ticket.AssignedTo,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResponseDueAt,
			&ticket.ResolutionDueAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
