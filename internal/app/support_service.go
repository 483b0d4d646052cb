/**
 * @description
 * This file contains the support ticket service: customers open tickets
 * against their own profile, agents work an oldest-first queue, and both sides
 * exchange notes on a ticket thread. Internal notes stay invisible to the
 * customer. Resolved tickets are read-only.
 *
 * @dependencies
 * - github.com/google/uuid: External ticket ids.
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
)

var ticketPriorities = map[string]bool{"low": true, "medium": true, "high": true}

// SupportService manages support tickets and their note threads.
type SupportService struct {
	repo  store.Repository
	audit *AuditRecorder
}

// NewSupportService creates a new support service instance.
func NewSupportService(repo store.Repository, audit *AuditRecorder) *SupportService {
	return &SupportService{repo: repo, audit: audit}
}

// OpenTicket creates a new ticket owned by the acting user.
func (s *SupportService) OpenTicket(ctx context.Context, actor *domain.User, subject, description, priority string) (*domain.SupportTicket, error) {
	if !domain.HasPermission(actor.Role, domain.PermManageSupportTickets) {
		return nil, ErrPermissionDenied
	}
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is required", ErrValidation)
	}
	priority = strings.ToLower(strings.TrimSpace(priority))
	if priority == "" {
		priority = "medium"
	}
	if !ticketPriorities[priority] {
		return nil, fmt.Errorf("%w: priority must be low, medium or high", ErrValidation)
	}

	ticket := &domain.SupportTicket{
		TicketID:    uuid.NewString(),
		CustomerID:  actor.ID,
		Subject:     subject,
		Description: strings.TrimSpace(description),
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
	}
	if err := s.repo.CreateTicket(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// GetTicket returns one ticket. Customers see their own tickets; agents and
// admins see any.
func (s *SupportService) GetTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.SupportTicket, error) {
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTicketAccess(actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListOwnTickets returns the acting user's tickets.
func (s *SupportService) ListOwnTickets(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.SupportTicket, int64, error) {
	if !domain.HasPermission(actor.Role, domain.PermManageSupportTickets) {
		return nil, 0, ErrPermissionDenied
	}
	return s.repo.ListCustomerTickets(ctx, actor.ID, limit, offset)
}

// ListOpenTickets returns the agent work queue.
func (s *SupportService) ListOpenTickets(ctx context.Context, actor *domain.User, limit, offset int) ([]domain.SupportTicket, int64, error) {
	if !domain.HasPermission(actor.Role, domain.PermViewOpenTickets) {
		return nil, 0, ErrPermissionDenied
	}
	return s.repo.ListOpenTickets(ctx, limit, offset)
}

// UpdateTicketStatus moves a ticket through open -> in_progress -> resolved.
// The acting agent is assigned on first touch; resolution stamps resolved_at.
func (s *SupportService) UpdateTicketStatus(ctx context.Context, actor *domain.User, ticketID string, status domain.TicketStatus) (*domain.SupportTicket, error) {
	if !domain.HasPermission(actor.Role, domain.PermUpdateTicketStatus) {
		return nil, ErrPermissionDenied
	}
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusResolved {
		return nil, ErrTicketNotEditable
	}

	var resolvedAt *time.Time
	if status == domain.TicketStatusResolved {
		now := time.Now().UTC()
		resolvedAt = &now
	}
	if err := s.repo.UpdateTicketStatus(ctx, ticket.ID, status, &actor.ID, resolvedAt); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &actor.ID, domain.AuditActionAdminAction,
		"ticket", ticket.TicketID,
		fmt.Sprintf("ticket status %s -> %s", ticket.Status, status))

	ticket.Status = status
	ticket.AssignedAgentID = &actor.ID
	ticket.ResolvedAt = resolvedAt
	return ticket, nil
}

// AddNote appends a note to a ticket. Only agents and admins may mark a note
// internal; customers can only write on their own tickets.
func (s *SupportService) AddNote(ctx context.Context, actor *domain.User, ticketID, content string, internal bool) (*domain.TicketNote, error) {
	if !domain.HasPermission(actor.Role, domain.PermAddTicketNotes) {
		return nil, ErrPermissionDenied
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: note content is required", ErrValidation)
	}

	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTicketAccess(actor, ticket); err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusResolved {
		return nil, ErrTicketNotEditable
	}
	if internal && !s.privileged(actor) {
		return nil, ErrPermissionDenied
	}

	note := &domain.TicketNote{
		TicketRowID: ticket.ID,
		AuthorID:    actor.ID,
		Content:     content,
		IsInternal:  internal,
	}
	if err := s.repo.AddTicketNote(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// ListNotes returns a ticket's note thread, hiding internal notes from the
// customer.
func (s *SupportService) ListNotes(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketNote, error) {
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTicketAccess(actor, ticket); err != nil {
		return nil, err
	}
	return s.repo.ListTicketNotes(ctx, ticket.ID, s.privileged(actor))
}

func (s *SupportService) authorizeTicketAccess(actor *domain.User, ticket *domain.SupportTicket) error {
	if ticket.CustomerID == actor.ID && domain.HasPermission(actor.Role, domain.PermManageSupportTickets) {
		return nil
	}
	if s.privileged(actor) {
		return nil
	}
	return ErrPermissionDenied
}

// privileged reports whether the actor works tickets rather than owning them.
func (s *SupportService) privileged(actor *domain.User) bool {
	return domain.HasPermission(actor.Role, domain.PermViewOpenTickets) || actor.Role == domain.RoleAdmin
}
