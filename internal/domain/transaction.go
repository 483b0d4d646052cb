/**
 * @description
 * This file defines the Transaction ledger model and the request/result value
 * types used by the transfer engine. Every successful transfer is recorded as a
 * DEBIT/CREDIT row pair sharing one transaction id, one amount and one
 * timestamp; rows are immutable once written.
 *
 * @notes
 * - The pair model makes "history for account X" a single filtered query
 *   (X as sender with DEBIT, or X as receiver with CREDIT) with no sign
 *   convention or join.
 * - SenderID always records the acting user who initiated the transfer, even
 *   for cross-owner transfers.
 */

package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes the two perspectives of a transfer pair.
type TransactionType string

const (
	TransactionTypeDebit  TransactionType = "debit"
	TransactionTypeCredit TransactionType = "credit"
)

// ErrInvalidTransactionType is returned for unrecognized transaction type strings.
var ErrInvalidTransactionType = errors.New("invalid transaction type")

// ParseTransactionType validates a caller-supplied type string.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(strings.ToLower(strings.TrimSpace(s))) {
	case TransactionTypeDebit:
		return TransactionTypeDebit, nil
	case TransactionTypeCredit:
		return TransactionTypeCredit, nil
	default:
		return "", ErrInvalidTransactionType
	}
}

// Transaction is one immutable row of the ledger. TransactionID (a UUID string)
// is shared by the DEBIT and CREDIT rows of the same transfer and is distinct
// from the row id.
type Transaction struct {
	ID                int64           `json:"-"`
	TransactionID     string          `json:"transaction_id"`
	SenderID          int64           `json:"sender_id"`
	SenderAccountID   int64           `json:"sender_account_id"`
	ReceiverAccountID int64           `json:"receiver_account_id"`
	Amount            decimal.Decimal `json:"amount"`
	TransactionType   TransactionType `json:"transaction_type"`
	Description       string          `json:"description"`
	CreatedAt         time.Time       `json:"created_at"`
}

// TransferResult is the plain data record returned to callers after a
// successful transfer.
type TransferResult struct {
	TransactionID   string          `json:"transaction_id"`
	SenderAccount   string          `json:"sender_account"`
	ReceiverAccount string          `json:"receiver_account"`
	Amount          decimal.Decimal `json:"amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TransactionView is a transaction row joined with the externally visible
// account numbers of both sides, as returned by history queries.
type TransactionView struct {
	TransactionID   string          `json:"transaction_id"`
	SenderAccount   string          `json:"sender_account"`
	ReceiverAccount string          `json:"receiver_account"`
	Amount          decimal.Decimal `json:"amount"`
	TransactionType TransactionType `json:"transaction_type"`
	Description     string          `json:"description"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TransactionFilter controls the privileged filtered-history query.
type TransactionFilter struct {
	StartDate       *time.Time
	EndDate         *time.Time
	TransactionType *TransactionType
	MinAmount       *decimal.Decimal
	MaxAmount       *decimal.Decimal
	Limit           int
	Offset          int
}
