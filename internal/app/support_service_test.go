package app

import (
	"context"
	"errors"
	"testing"

	"github.com/meridianbank/backoffice-service/internal/domain"
)

func newSupportFixture() (*fakeRepo, *SupportService) {
	repo := newFakeRepo()
	audit := NewAuditRecorder(repo, &stubPublisher{})
	return repo, NewSupportService(repo, audit)
}

func TestOpenTicketDefaultsAndValidation(t *testing.T) {
	repo, svc := newSupportFixture()
	customer := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})

	if _, err := svc.OpenTicket(context.Background(), customer, "  ", "body", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("empty subject got %v, want ErrValidation", err)
	}
	if _, err := svc.OpenTicket(context.Background(), customer, "Card lost", "body", "urgent"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad priority got %v, want ErrValidation", err)
	}

	ticket, err := svc.OpenTicket(context.Background(), customer, "Card lost", "body", "")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if ticket.Status != domain.TicketStatusOpen || ticket.Priority != "medium" {
		t.Fatalf("ticket = %s/%s, want open/medium", ticket.Status, ticket.Priority)
	}
	if ticket.TicketID == "" {
		t.Fatal("expected a ticket id")
	}
}

func TestTicketAccessControl(t *testing.T) {
	repo, svc := newSupportFixture()
	customer := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})
	stranger := repo.addUser(domain.User{Username: "bob", Role: domain.RoleCustomer, IsActive: true})
	agent := repo.addUser(domain.User{Username: "sue", Role: domain.RoleSupportAgent, IsActive: true})

	ticket, err := svc.OpenTicket(context.Background(), customer, "Card lost", "body", "high")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if _, err := svc.GetTicket(context.Background(), customer, ticket.TicketID); err != nil {
		t.Fatalf("owner view failed: %v", err)
	}
	if _, err := svc.GetTicket(context.Background(), stranger, ticket.TicketID); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("stranger view got %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.GetTicket(context.Background(), agent, ticket.TicketID); err != nil {
		t.Fatalf("agent view failed: %v", err)
	}

	if _, _, err := svc.ListOpenTickets(context.Background(), agent, 10, 0); err != nil {
		t.Fatalf("agent queue failed: %v", err)
	}
	if _, _, err := svc.ListOpenTickets(context.Background(), customer, 10, 0); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("customer queue got %v, want ErrPermissionDenied", err)
	}
}

func TestTicketStatusTransitions(t *testing.T) {
	repo, svc := newSupportFixture()
	customer := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})
	agent := repo.addUser(domain.User{Username: "sue", Role: domain.RoleSupportAgent, IsActive: true})

	ticket, err := svc.OpenTicket(context.Background(), customer, "Card lost", "body", "high")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if _, err := svc.UpdateTicketStatus(context.Background(), customer, ticket.TicketID, domain.TicketStatusResolved); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("customer transition got %v, want ErrPermissionDenied", err)
	}

	inProgress, err := svc.UpdateTicketStatus(context.Background(), agent, ticket.TicketID, domain.TicketStatusInProgress)
	if err != nil {
		t.Fatalf("transition failed: %v", err)
	}
	if inProgress.AssignedAgentID == nil || *inProgress.AssignedAgentID != agent.ID {
		t.Fatal("first touch should assign the acting agent")
	}

	resolved, err := svc.UpdateTicketStatus(context.Background(), agent, ticket.TicketID, domain.TicketStatusResolved)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if resolved.ResolvedAt == nil {
		t.Fatal("resolution should stamp resolved_at")
	}

	if _, err := svc.UpdateTicketStatus(context.Background(), agent, ticket.TicketID, domain.TicketStatusOpen); !errors.Is(err, ErrTicketNotEditable) {
		t.Fatalf("reopen got %v, want ErrTicketNotEditable", err)
	}
	if _, err := svc.AddNote(context.Background(), agent, ticket.TicketID, "too late", false); !errors.Is(err, ErrTicketNotEditable) {
		t.Fatalf("note on resolved got %v, want ErrTicketNotEditable", err)
	}
}

func TestInternalNotesHiddenFromCustomer(t *testing.T) {
	repo, svc := newSupportFixture()
	customer := repo.addUser(domain.User{Username: "alice", Role: domain.RoleCustomer, IsActive: true})
	agent := repo.addUser(domain.User{Username: "sue", Role: domain.RoleSupportAgent, IsActive: true})

	ticket, err := svc.OpenTicket(context.Background(), customer, "Card lost", "body", "low")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}

	if _, err := svc.AddNote(context.Background(), customer, ticket.TicketID, "any update?", false); err != nil {
		t.Fatalf("customer note failed: %v", err)
	}
	if _, err := svc.AddNote(context.Background(), customer, ticket.TicketID, "sneaky", true); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("customer internal note got %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.AddNote(context.Background(), agent, ticket.TicketID, "checking with fraud team", true); err != nil {
		t.Fatalf("agent internal note failed: %v", err)
	}

	customerNotes, err := svc.ListNotes(context.Background(), customer, ticket.TicketID)
	if err != nil {
		t.Fatalf("customer list failed: %v", err)
	}
	if len(customerNotes) != 1 {
		t.Fatalf("customer sees %d notes, want 1", len(customerNotes))
	}

	agentNotes, err := svc.ListNotes(context.Background(), agent, ticket.TicketID)
	if err != nil {
		t.Fatalf("agent list failed: %v", err)
	}
	if len(agentNotes) != 2 {
		t.Fatalf("agent sees %d notes, want 2", len(agentNotes))
	}
}
