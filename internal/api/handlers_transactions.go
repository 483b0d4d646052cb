/**
 * @description
 * This file contains the HTTP handlers for the transfer and transaction
 * history endpoints. Amounts arrive as JSON strings and are parsed into
 * decimals at the boundary; nothing downstream ever sees a float.
 *
 * @dependencies
 * - net/http, time: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - github.com/shopspring/decimal: Monetary amounts.
 */

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/meridianbank/backoffice-service/internal/app"
	"github.com/meridianbank/backoffice-service/internal/domain"
)

type transferRequest struct {
	SenderAccount   string `json:"sender_account"`
	ReceiverAccount string `json:"receiver_account"`
	Amount          string `json:"amount"`
	Description     string `json:"description"`
}

// InternalTransferHandler executes a transfer between two accounts of the
// caller.
func (h *Handlers) InternalTransferHandler(w http.ResponseWriter, r *http.Request) {
	h.handleTransfer(w, r, h.transfers.InternalTransfer)
}

// ExternalTransferHandler executes a transfer to another user's account.
func (h *Handlers) ExternalTransferHandler(w http.ResponseWriter, r *http.Request) {
	h.handleTransfer(w, r, h.transfers.ExternalTransfer)
}

func (h *Handlers) handleTransfer(
	w http.ResponseWriter,
	r *http.Request,
	transfer func(context.Context, *domain.User, app.TransferRequest) (*domain.TransferResult, error),
) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if !decodeBody(w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		respondError(w, app.ErrInvalidAmount)
		return
	}

	result, err := transfer(r.Context(), user, app.TransferRequest{
		SenderAccountNumber:   req.SenderAccount,
		ReceiverAccountNumber: req.ReceiverAccount,
		Amount:                amount,
		Description:           req.Description,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// GetTransactionHandler returns one transfer by its transaction id.
func (h *Handlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	view, err := h.transfers.GetTransaction(r.Context(), user, chi.URLParam(r, "transactionID"))
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListAccountTransactionsHandler returns one account's history.
func (h *Handlers) ListAccountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	views, total, err := h.transfers.ListAccountTransactions(r.Context(), user, chi.URLParam(r, "accountNumber"), limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: views, Total: total})
}

// FilterAccountTransactionsHandler is the privileged filtered-history query.
// Filters arrive as query parameters: start, end (RFC 3339), type, min, max.
func (h *Handlers) FilterAccountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}

	filter := domain.TransactionFilter{}
	filter.Limit, filter.Offset = pageParams(r)
	q := r.URL.Query()

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
	if raw := q.Get("type"); raw != "" {
		txType, err := domain.ParseTransactionType(raw)
		if err != nil {
			respondError(w, err)
			return
		}
		filter.TransactionType = &txType
	}
	if raw := q.Get("min"); raw != "" {
		min, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(w, app.ErrInvalidAmount)
			return
		}
		filter.MinAmount = &min
	}
	if raw := q.Get("max"); raw != "" {
		max, err := decimal.NewFromString(raw)
		if err != nil {
			respondError(w, app.ErrInvalidAmount)
			return
		}
		filter.MaxAmount = &max
	}

	views, total, err := h.transfers.FilterAccountTransactions(r.Context(), user, chi.URLParam(r, "accountNumber"), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: views, Total: total})
}

// ListAllTransactionsHandler returns the system-wide ledger (privileged).
func (h *Handlers) ListAllTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	user, ok := mustUser(w, r)
	if !ok {
		return
	}
	limit, offset := pageParams(r)
	views, total, err := h.transfers.ListAllTransactions(r.Context(), user, limit, offset)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: views, Total: total})
}
