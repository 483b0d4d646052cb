/**
 * @description
 * This file contains the HTTP handlers for the audit log read surface,
 * available to auditors and admins. Filters arrive as query parameters:
 * action, user_id, start, end (RFC 3339).
 *
 * @dependencies
 * - net/http, strconv, time: Standard Go libraries.
 * - internal/domain: Filter model and enum parsing.
 */

package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/meridianbank/backoffice-service/internal/domain"
)

// ListAuditLogsHandler returns audit rows matching the query filters.
func (h *Handlers) ListAuditLogsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}

	filter := domain.AuditFilter{}
	filter.Limit, filter.Offset = pageParams(r)
	q := r.URL.Query()

	if raw := q.Get("action"); raw != "" {
		action, err := domain.ParseAuditAction(raw)
		if err != nil {
			respondError(w, err)
			return
		}
		filter.Action = &action
	}
	if raw := q.Get("user_id"); raw != "" {
		userID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
			return
		}
		filter.UserID = &userID
	}
	if raw := q.Get("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid start date"})
			return
		}
		filter.StartDate = &t
	}
	if raw := q.Get("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid end date"})
			return
		}
		filter.EndDate = &t
	}

	logs, total, err := h.audits.ListAuditLogs(r.Context(), user, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: logs, Total: total})
}

// ListUserAuditLogsHandler returns one user's audit trail.
func (h *Handlers) ListUserAuditLogsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	userID, ok := pathUserID(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	logs, total, err := h.audits.ListUserAuditLogs(r.Context(), user, userID, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: logs, Total: total})
}
