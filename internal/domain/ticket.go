/**
 * @description
 * This file defines the support ticket models. Tickets carry a server-generated
 * UUID ticket id alongside the row id, a priority label and a small status
 * state machine (open -> in_progress -> resolved).
 */

package domain

import (
	"errors"
	"strings"
	"time"
)

// TicketStatus is a closed enum of support ticket states.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
)

// ErrInvalidTicketStatus is returned for unrecognized ticket status strings.
var ErrInvalidTicketStatus = errors.New("invalid ticket status")

// ParseTicketStatus validates a caller-supplied status string.
func ParseTicketStatus(s string) (TicketStatus, error) {
	switch TicketStatus(strings.ToLower(strings.TrimSpace(s))) {
	case TicketStatusOpen:
		return TicketStatusOpen, nil
	case TicketStatusInProgress:
		return TicketStatusInProgress, nil
	case TicketStatusResolved:
		return TicketStatusResolved, nil
	default:
		return "", ErrInvalidTicketStatus
	}
}

// SupportTicket is a customer support request.
type SupportTicket struct {
	ID              int64        `json:"id"`
	TicketID        string       `json:"ticket_id"`
	CustomerID      int64        `json:"customer_id"`
	AssignedAgentID *int64       `json:"assigned_agent_id,omitempty"`
	Subject         string       `json:"subject"`
	Description     string       `json:"description"`
	Status          TicketStatus `json:"status"`
	Priority        string       `json:"priority"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
	ResolvedAt      *time.Time   `json:"resolved_at,omitempty"`
}

// TicketNote is one message on a ticket thread. Internal notes are only
// visible to support agents and admins.
type TicketNote struct {
	ID          int64     `json:"id"`
	TicketRowID int64     `json:"-"`
	AuthorID    int64     `json:"author_id"`
	Content     string    `json:"content"`
	IsInternal  bool      `json:"is_internal"`
	CreatedAt   time.Time `json:"created_at"`
}
