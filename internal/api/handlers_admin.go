/**
 * @description
 * This file contains the HTTP handlers for the admin endpoints: role
 * assignment, user activation and the privileged user queries.
 *
 * @dependencies
 * - net/http, strconv: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 */

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridianbank/backoffice-service/internal/domain"
)

func pathUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return 0, false
	}
	return userID, true
}

type assignRoleRequest struct {
	Role string `json:"role"`
}

// AssignRoleHandler changes a user's role (admin only).
func (h *Handlers) AssignRoleHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req assignRoleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		respondError(w, err)
		return
	}

	updated, err := h.admin.AssignRole(r.Context(), user, userID, role)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

// SetUserActiveHandler activates or deactivates a user (admin only).
func (h *Handlers) SetUserActiveHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	var req setActiveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.admin.SetUserActive(r.Context(), user, userID, req.Active); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// GetUserHandler returns one user (privileged).
func (h *Handlers) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	target, err := h.admin.GetUser(r.Context(), user, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

// ListUsersByRoleHandler returns users holding the role in the `role` query
// parameter (privileged).
func (h *Handlers) ListUsersByRoleHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	role, err := domain.ParseRole(r.URL.Query().Get("role"))
	if err != nil {
		respondError(w, err)
		return
	}
	limit, offset := pageParams(r)
	users, total, err := h.admin.ListUsersByRole(r.Context(), user, role, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: users, Total: total})
}
