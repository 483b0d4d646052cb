/**
 * @description
 * This file contains the HTTP handlers for the account lifecycle endpoints:
 * opening, viewing, listing, closing, and the admin freeze/unfreeze surface.
 *
 * @dependencies
 * - net/http: Standard Go library.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - github.com/shopspring/decimal: Monetary amounts.
 */

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/backoffice-service/internal/app"
	"github.com/meridianbank/backoffice-service/internal/domain"
)

type openAccountRequest struct {
	UserID         int64  `json:"user_id"`
	AccountType    string `json:"account_type"`
	OpeningBalance string `json:"opening_balance"`
}

// OpenAccountHandler creates a new account. Without a user_id the account is
// the caller's own; privileged roles may name another user.
func (h *Handlers) OpenAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req openAccountRequest
	if !decodeBody(w, r, &req) {
		return
	}

	accountType, err := domain.ParseAccountType(req.AccountType)
	if err != nil {
		respondError(w, err)
		return
	}
	opening := decimal.Zero
	if req.OpeningBalance != "" {
		opening, err = decimal.NewFromString(req.OpeningBalance)
		if err != nil {
			respondError(w, app.ErrInvalidAmount)
			return
		}
	}

	account, err := h.accounts.OpenAccount(r.Context(), user, req.UserID, accountType, opening)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, account)
}

// ListOwnAccountsHandler returns all of the caller's accounts.
func (h *Handlers) ListOwnAccountsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	accounts, err := h.accounts.ListOwnAccounts(r.Context(), user)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}

// GetAccountHandler returns one account by number.
func (h *Handlers) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.GetAccount(r.Context(), user, chi.URLParam(r, "accountNumber"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// CloseAccountHandler closes an account with a zero balance.
func (h *Handlers) CloseAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	account, err := h.accounts.CloseAccount(r.Context(), user, chi.URLParam(r, "accountNumber"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

type freezeRequest struct {
	Reason string `json:"reason"`
}

// FreezeAccountHandler freezes an account (admin only).
func (h *Handlers) FreezeAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req freezeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := h.accounts.FreezeAccount(r.Context(), user, chi.URLParam(r, "accountNumber"), req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// UnfreezeAccountHandler unfreezes a frozen account (admin only).
func (h *Handlers) UnfreezeAccountHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req freezeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	account, err := h.accounts.UnfreezeAccount(r.Context(), user, chi.URLParam(r, "accountNumber"), req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// ListUserAccountsHandler returns another user's accounts (privileged).
func (h *Handlers) ListUserAccountsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	accounts, err := h.accounts.ListUserAccounts(r.Context(), user, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, accounts)
}
