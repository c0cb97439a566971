package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ticketops/helpdesk/internal/domain"
	apperrors "github.com/ticketops/helpdesk/pkg/util"
)

func TestCreateTicketAssignsAndStampsSLA(t *testing.T) {
	env := newTestEnv()
	env.store.addAgentWithID("agent-a", "alice")
	customer := env.store.addUser("carol", domain.UserRoleCustomer, true)

	ticket, err := env.tickets.CreateTicket(context.Background(), customer, TicketCreateInput{
		Title:    "cannot log in",
		Priority: domain.TicketPriorityHigh,
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.AssignedTo == nil || *ticket.AssignedTo != "agent-a" {
		t.Errorf("assigned_to = %v, want agent-a", ticket.AssignedTo)
	}
	if ticket.Status != domain.TicketStatusAssigned {
		t.Errorf("status = %s, want assigned", ticket.Status)
	}
	if ticket.ResponseDueAt == nil || ticket.ResolutionDueAt == nil {
		t.Error("SLA deadlines missing after creation")
	}
}

func TestCreateTicketUnknownPriorityFallsBackToLow(t *testing.T) {
	env := newTestEnv()
	customer := env.store.addUser("carol", domain.UserRoleCustomer, true)

	ticket, err := env.tickets.CreateTicket(context.Background(), customer, TicketCreateInput{
		Title:    "weird priority",
		Priority: domain.TicketPriority("urgent"),
	})
	if err != nil {
		t.Fatalf("CreateTicket: %v", err)
	}
	if ticket.Priority != domain.TicketPriorityLow {
		t.Errorf("priority = %s, want low fallback", ticket.Priority)
	}
}

func TestCreateTicketRequiresTitle(t *testing.T) {
	env := newTestEnv()
	customer := env.store.addUser("carol", domain.UserRoleCustomer, true)

	_, err := env.tickets.CreateTicket(context.Background(), customer, TicketCreateInput{
		Title:    "   ",
		Priority: domain.TicketPriorityLow,
	})
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodeValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestUpdateStatusEnforcesTransitions(t *testing.T) {
	env := newTestEnv()
	admin := env.store.addUser("root", domain.UserRoleAdmin, true)
	ticket := env.store.addTicket(domain.Ticket{
		Title: "flow", Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusOpen, CreatedBy: "c1",
	})

	if _, err := env.tickets.UpdateStatus(context.Background(), admin, ticket.ID, domain.TicketStatusResolved); err == nil {
		t.Fatal("open -> resolved must be rejected")
	}
	updated, err := env.tickets.UpdateStatus(context.Background(), admin, ticket.ID, domain.TicketStatusInProgress)
	if err != nil {
		t.Fatalf("open -> in_progress: %v", err)
	}
	if updated.Status != domain.TicketStatusInProgress {
		t.Errorf("status = %s, want in_progress", updated.Status)
	}
	if _, err := env.tickets.UpdateStatus(context.Background(), admin, ticket.ID, domain.TicketStatusResolved); err != nil {
		t.Fatalf("in_progress -> resolved: %v", err)
	}
	if _, err := env.tickets.UpdateStatus(context.Background(), admin, ticket.ID, domain.TicketStatusReopened); err != nil {
		t.Fatalf("resolved -> reopened: %v", err)
	}
	if _, err := env.tickets.UpdateStatus(context.Background(), admin, ticket.ID, domain.TicketStatusClosed); err != nil {
		t.Fatalf("reopened -> closed: %v", err)
	}
	if _, err := env.tickets.UpdateStatus(context.Background(), admin, ticket.ID, domain.TicketStatusReopened); err == nil {
		t.Fatal("closed is terminal; reopening must be rejected")
	}
}

func TestUpdateStatusRejectsCustomers(t *testing.T) {
	env := newTestEnv()
	customer := env.store.addUser("carol", domain.UserRoleCustomer, true)
	ticket := env.store.addTicket(domain.Ticket{
		Title: "mine", Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusOpen, CreatedBy: customer.ID,
	})

	_, err := env.tickets.UpdateStatus(context.Background(), customer, ticket.ID, domain.TicketStatusClosed)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodeForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestListTicketsScopedByRole(t *testing.T) {
	env := newTestEnv()
	admin := env.store.addUser("root", domain.UserRoleAdmin, true)
	agent := env.store.addAgentWithID("agent-a", "alice")
	customer := env.store.addUser("carol", domain.UserRoleCustomer, true)

	env.store.addTicket(domain.Ticket{
		Title: "carol's", Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusOpen, CreatedBy: customer.ID,
	})
	env.store.addTicket(domain.Ticket{
		Title: "alice's queue", Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusAssigned, CreatedBy: "other", AssignedTo: &agent.ID,
	})
	env.store.addTicket(domain.Ticket{
		Title: "someone else's", Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusOpen, CreatedBy: "other",
	})

	adminView, err := env.tickets.ListTickets(context.Background(), admin, TicketListFilter{})
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(adminView) != 3 {
		t.Errorf("admin sees %d tickets, want 3", len(adminView))
	}

	agentView, err := env.tickets.ListTickets(context.Background(), agent, TicketListFilter{})
	if err != nil {
		t.Fatalf("agent list: %v", err)
	}
	if len(agentView) != 1 || agentView[0].Title != "alice's queue" {
		t.Errorf("agent view = %+v, want only the assigned ticket", agentView)
	}

	customerView, err := env.tickets.ListTickets(context.Background(), customer, TicketListFilter{})
	if err != nil {
		t.Fatalf("customer list: %v", err)
	}
	if len(customerView) != 1 || customerView[0].Title != "carol's" {
		t.Errorf("customer view = %+v, want only their own ticket", customerView)
	}
}

func TestGetTicketDeniesUnrelatedCustomer(t *testing.T) {
	env := newTestEnv()
	stranger := env.store.addUser("mallory", domain.UserRoleCustomer, true)
	ticket := env.store.addTicket(domain.Ticket{
		Title: "private", Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusOpen, CreatedBy: "someone-else",
	})

	_, _, err := env.tickets.GetTicket(context.Background(), stranger, ticket.ID)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodeForbidden {
		t.Fatalf("err = %v, want forbidden", err)
	}
}

func TestReassignTicketRequiresActiveAgent(t *testing.T) {
	env := newTestEnv()
	admin := env.store.addUser("root", domain.UserRoleAdmin, true)
	inactive := env.store.addUser("gone", domain.UserRoleAgent, false)
	agent := env.store.addAgentWithID("agent-a", "alice")
	ticket := env.store.addTicket(domain.Ticket{
		Title: "route me", Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusOpen, CreatedBy: "c1",
	})

	if _, err := env.tickets.ReassignTicket(context.Background(), admin, ticket.ID, inactive); err == nil {
		t.Fatal("reassigning to an inactive agent must fail")
	}
	updated, err := env.tickets.ReassignTicket(context.Background(), admin, ticket.ID, agent)
	if err != nil {
		t.Fatalf("ReassignTicket: %v", err)
	}
	if updated.AssignedTo == nil || *updated.AssignedTo != agent.ID {
		t.Errorf("assigned_to = %v, want %s", updated.AssignedTo, agent.ID)
	}
	if updated.Status != domain.TicketStatusAssigned {
		t.Errorf("status = %s, want assigned after manual routing", updated.Status)
	}
}

func TestDeleteTicketAdminOnly(t *testing.T) {
	env := newTestEnv()
	agent := env.store.addAgentWithID("agent-a", "alice")
	admin := env.store.addUser("root", domain.UserRoleAdmin, true)
	ticket := env.store.addTicket(domain.Ticket{
		Title: "doomed", Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusOpen, CreatedBy: "c1",
	})

	if err := env.tickets.DeleteTicket(context.Background(), agent, ticket.ID); err == nil {
		t.Fatal("agents must not delete tickets")
	}
	if err := env.tickets.DeleteTicket(context.Background(), admin, ticket.ID); err != nil {
		t.Fatalf("DeleteTicket: %v", err)
	}
	if env.store.ticket(ticket.ID) != nil {
		t.Error("ticket still present after delete")
	}
}

func TestAddCommentOnOwnTicket(t *testing.T) {
	env := newTestEnv()
	customer := env.store.addUser("carol", domain.UserRoleCustomer, true)
	ticket := env.store.addTicket(domain.Ticket{
		Title: "mine", Priority: domain.TicketPriorityLow,
		Status: domain.TicketStatusOpen, CreatedBy: customer.ID,
	})

	comment, err := env.tickets.AddComment(context.Background(), customer, ticket.ID, "any update?")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if comment.AuthorID != customer.ID {
		t.Errorf("author = %s, want %s", comment.AuthorID, customer.ID)
	}
	if got := env.store.commentsFor(ticket.ID); len(got) != 1 {
		t.Errorf("stored comments = %d, want 1", len(got))
	}
}

func TestGetTicketNotFound(t *testing.T) {
	env := newTestEnv()
	admin := env.store.addUser("root", domain.UserRoleAdmin, true)

	_, _, err := env.tickets.GetTicket(context.Background(), admin, 9999)
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != apperrors.CodeNotFound {
		t.Fatalf("err = %v, want not found", err)
	}
}
