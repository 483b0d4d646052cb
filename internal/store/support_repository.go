/**
 * @description
 * This file implements the support ticket portion of the Repository interface:
 * ticket creation and lookup, the customer/agent listing queries, status
 * transitions and the note thread.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver.
 * - internal/domain: Domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/meridianbank/backoffice-service/internal/domain"
)

const ticketColumns = `id, ticket_id, customer_id, assigned_agent_id, subject, description,
	status, priority, created_at, updated_at, resolved_at`

func scanTicket(row pgx.Row) (*domain.SupportTicket, error) {
	var t domain.SupportTicket
	err := row.Scan(
		&t.ID, &t.TicketID, &t.CustomerID, &t.AssignedAgentID, &t.Subject, &t.Description,
		&t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CreateTicket inserts a new support ticket and fills in its server-assigned
// fields.
func (r *PostgresRepository) CreateTicket(ctx context.Context, ticket *domain.SupportTicket) error {
	query := `
		INSERT INTO support_tickets (ticket_id, customer_id, subject, description, status, priority)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		ticket.TicketID, ticket.CustomerID, ticket.Subject, ticket.Description,
		ticket.Status, ticket.Priority,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// GetTicketByID retrieves a ticket by its externally visible UUID.
func (r *PostgresRepository) GetTicketByID(ctx context.Context, ticketID string) (*domain.SupportTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM support_tickets WHERE ticket_id = $1`
	return scanTicket(r.db.QueryRow(ctx, query, ticketID))
}

// ListCustomerTickets returns a customer's tickets, newest first, with the
// total count before pagination.
func (r *PostgresRepository) ListCustomerTickets(ctx context.Context, customerID int64, limit, offset int) ([]domain.SupportTicket, int64, error) {
	return r.listTickets(ctx,
		`WHERE customer_id = $1`, []any{customerID}, limit, offset)
}

// ListOpenTickets returns the agent work queue: every ticket not yet resolved,
// oldest first so the longest-waiting customer surfaces on page one.
func (r *PostgresRepository) ListOpenTickets(ctx context.Context, limit, offset int) ([]domain.SupportTicket, int64, error) {
	limit, offset = clampPage(limit, offset, 50)

	var total int64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM support_tickets WHERE status <> $1`,
		domain.TicketStatusResolved).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + ticketColumns + ` FROM support_tickets
		WHERE status <> $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, domain.TicketStatusResolved, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets, err := collectTicketRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func (r *PostgresRepository) listTickets(ctx context.Context, where string, args []any, limit, offset int) ([]domain.SupportTicket, int64, error) {
	limit, offset = clampPage(limit, offset, 50)

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM support_tickets `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + ticketColumns + ` FROM support_tickets ` + where + `
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tickets, err := collectTicketRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return tickets, total, nil
}

func collectTicketRows(rows pgx.Rows) ([]domain.SupportTicket, error) {
	var tickets []domain.SupportTicket
	for rows.Next() {
		var t domain.SupportTicket
		if err := rows.Scan(
			&t.ID, &t.TicketID, &t.CustomerID, &t.AssignedAgentID, &t.Subject, &t.Description,
			&t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt,
		); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

// UpdateTicketStatus transitions a ticket's status, optionally assigning the
// acting agent and stamping the resolution time.
func (r *PostgresRepository) UpdateTicketStatus(ctx context.Context, ticketRowID int64, status domain.TicketStatus, agentID *int64, resolvedAt *time.Time) error {
	query := `
		UPDATE support_tickets
		SET status = $1,
		    assigned_agent_id = COALESCE($2, assigned_agent_id),
		    resolved_at = $3,
		    updated_at = NOW()
		WHERE id = $4
	`
	result, err := r.db.Exec(ctx, query, status, agentID, resolvedAt, ticketRowID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTicketNotFound
	}
	return nil
}

// AddTicketNote appends one note to a ticket's thread and bumps the ticket's
// updated_at.
func (r *PostgresRepository) AddTicketNote(ctx context.Context, note *domain.TicketNote) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO ticket_notes (ticket_id, author_id, content, is_internal)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err = tx.QueryRow(ctx, query,
		note.TicketRowID, note.AuthorID, note.Content, note.IsInternal,
	).Scan(&note.ID, &note.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx,
		`UPDATE support_tickets SET updated_at = NOW() WHERE id = $1`, note.TicketRowID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListTicketNotes returns a ticket's note thread, oldest first. Internal notes
// are filtered out unless the caller may see them.
func (r *PostgresRepository) ListTicketNotes(ctx context.Context, ticketRowID int64, includeInternal bool) ([]domain.TicketNote, error) {
	query := `
		SELECT id, ticket_id, author_id, content, is_internal, created_at
		FROM ticket_notes
		WHERE ticket_id = $1 AND ($2 OR is_internal = FALSE)
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, ticketRowID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []domain.TicketNote
	for rows.Next() {
		var n domain.TicketNote
		if err := rows.Scan(&n.ID, &n.TicketRowID, &n.AuthorID, &n.Content, &n.IsInternal, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
