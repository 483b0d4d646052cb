/**
 * @description
 * This file holds the JSON response helpers and the single mapping from
 * service/store errors onto HTTP status codes. Handlers never invent status
 * codes inline; everything funnels through respondError so the same failure
 * always looks the same on the wire.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/meridianbank/backoffice-service/internal/app"
	"github.com/meridianbank/backoffice-service/internal/domain"
	"github.com/meridianbank/backoffice-service/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

// listResponse wraps paginated collections with their pre-pagination total.
type listResponse struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("level=error component=api msg=\"response encode failed\" err=%v", err)
	}
}

func respondError(w http.ResponseWriter, err error) {
	var rateErr *app.RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		seconds := int(rateErr.RetryAfter / time.Second)
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}
	writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrValidation),
		errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrSameAccount),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidAccountType),
		errors.Is(err, domain.ErrInvalidAccountStatus),
		errors.Is(err, domain.ErrInvalidTransactionType),
		errors.Is(err, domain.ErrInvalidAuditAction),
		errors.Is(err, domain.ErrInvalidTicketStatus):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrInsufficientFunds):
		return http.StatusPaymentRequired
	case errors.Is(err, app.ErrPermissionDenied),
		errors.Is(err, app.ErrNotAccountOwner):
		return http.StatusForbidden
	case errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrAccountNotFound),
		errors.Is(err, store.ErrTransactionNotFound),
		errors.Is(err, store.ErrTicketNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrUserExists),
		errors.Is(err, store.ErrAccountAlreadyFrozen),
		errors.Is(err, store.ErrAccountNotFrozen),
		errors.Is(err, store.ErrAccountClosed),
		errors.Is(err, store.ErrBalanceNotZero),
		errors.Is(err, store.ErrSenderAccountInactive),
		errors.Is(err, store.ErrReceiverAccountInactive),
		errors.Is(err, app.ErrAccountLimit),
		errors.Is(err, app.ErrUserInactive),
		errors.Is(err, app.ErrTicketNotEditable):
		return http.StatusConflict
	case errors.Is(err, app.ErrAccountLocked):
		return http.StatusLocked
	case errors.Is(err, app.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, store.ErrTransferContention),
		errors.Is(err, app.ErrNumberExhausted):
		return http.StatusServiceUnavailable
	default:
		log.Printf("level=error component=api msg=\"unhandled error\" err=%v", err)
		return http.StatusInternalServerError
	}
}

// pageParams reads limit/offset query parameters with safe defaults.
func pageParams(r *http.Request) (limit, offset int) {
	limit = intQuery(r, "limit", 50)
	offset = intQuery(r, "offset", 0)
	return limit, offset
}

func intQuery(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
