/**
 * @description
 * This file defines the sentinel errors returned by the service layer for
 * request-level failures: bad input, authorization failures, business-rule
 * violations. Storage-level failures (not found, insufficient funds, state
 * conflicts) come from the store package; handlers map both families onto
 * HTTP statuses with errors.Is.
 */

package app

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotAccountOwner  = errors.New("account does not belong to user")

	ErrInvalidAmount     = errors.New("amount must be a positive value with at most two decimal places")
	ErrSameAccount       = errors.New("sender and receiver accounts must differ")
	ErrValidation        = errors.New("validation failed")
	ErrAccountLimit      = errors.New("maximum number of accounts reached")
	ErrNumberExhausted   = errors.New("could not allocate a unique account number")
	ErrTicketNotEditable = errors.New("resolved tickets cannot be modified")

	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrUserInactive       = errors.New("user account is deactivated")
	ErrRateLimited        = errors.New("too many requests")
)

// RateLimitError carries the window-reset hint alongside ErrRateLimited so
// the HTTP layer can answer with a Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many requests, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }
