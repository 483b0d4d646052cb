/**
 * @description
 * This file contains the HTTP handlers for the support ticket endpoints:
 * opening tickets, the agent queue, status transitions and note threads.
 *
 * @dependencies
 * - net/http: Standard Go library.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 */

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridianbank/backoffice-service/internal/domain"
)

type openTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// OpenTicketHandler creates a new support ticket for the caller.
func (h *Handlers) OpenTicketHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req openTicketRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ticket, err := h.support.OpenTicket(r.Context(), user, req.Subject, req.Description, req.Priority)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// ListOwnTicketsHandler returns the caller's tickets.
func (h *Handlers) ListOwnTicketsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	tickets, total, err := h.support.ListOwnTickets(r.Context(), user, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: tickets, Total: total})
}

// ListOpenTicketsHandler returns the agent work queue.
func (h *Handlers) ListOpenTicketsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	tickets, total, err := h.support.ListOpenTickets(r.Context(), user, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: tickets, Total: total})
}

// GetTicketHandler returns one ticket by its id.
func (h *Handlers) GetTicketHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	ticket, err := h.support.GetTicket(r.Context(), user, chi.URLParam(r, "ticketID"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type ticketStatusRequest struct {
	Status string `json:"status"`
}

// UpdateTicketStatusHandler transitions a ticket's status (agents and admins).
func (h *Handlers) UpdateTicketStatusHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req ticketStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, err := domain.ParseTicketStatus(req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	ticket, err := h.support.UpdateTicketStatus(r.Context(), user, chi.URLParam(r, "ticketID"), status)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

type addNoteRequest struct {
	Content  string `json:"content"`
	Internal bool   `json:"internal"`
}

// AddTicketNoteHandler appends a note to a ticket thread.
func (h *Handlers) AddTicketNoteHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req addNoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	note, err := h.support.AddNote(r.Context(), user, chi.URLParam(r, "ticketID"), req.Content, req.Internal)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// ListTicketNotesHandler returns a ticket's note thread.
func (h *Handlers) ListTicketNotesHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	notes, err := h.support.ListNotes(r.Context(), user, chi.URLParam(r, "ticketID"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}
