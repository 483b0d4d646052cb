/**
 * @description
 * This file defines the Account model and its two closed enums: AccountType and
 * AccountStatus. An account's balance is a decimal value and is never mutated
 * outside the transfer path or the close-with-zero-balance check.
 *
 * @notes
 * - Balances use github.com/shopspring/decimal backed by NUMERIC(18,2) columns;
 *   the float representation of the legacy system is deliberately gone.
 * - Account numbers are externally visible identifiers in the form
 *   "ACC-" + 10 decimal digits, unique across the ledger.
 */

package domain

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is a closed enum of supported account products.
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
)

// AccountStatus is a closed enum of account lifecycle states.
type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	AccountStatusFrozen AccountStatus = "frozen"
	AccountStatusClosed AccountStatus = "closed"
)

var (
	// ErrInvalidAccountType is returned for unrecognized account type strings.
	ErrInvalidAccountType = errors.New("invalid account type")

	// ErrInvalidAccountStatus is returned for unrecognized account status strings.
	ErrInvalidAccountStatus = errors.New("invalid account status")
)

// accountNumberPattern matches the external account number format.
var accountNumberPattern = regexp.MustCompile(`^ACC-\d{10}$`)

// ParseAccountType validates a caller-supplied type string into an AccountType.
func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(strings.ToLower(strings.TrimSpace(s))) {
	case AccountTypeChecking:
		return AccountTypeChecking, nil
	case AccountTypeSavings:
		return AccountTypeSavings, nil
	default:
		return "", ErrInvalidAccountType
	}
}

// ParseAccountStatus validates a caller-supplied status string into an AccountStatus.
func ParseAccountStatus(s string) (AccountStatus, error) {
	switch AccountStatus(strings.ToLower(strings.TrimSpace(s))) {
	case AccountStatusActive:
		return AccountStatusActive, nil
	case AccountStatusFrozen:
		return AccountStatusFrozen, nil
	case AccountStatusClosed:
		return AccountStatusClosed, nil
	default:
		return "", ErrInvalidAccountStatus
	}
}

// ValidAccountNumber reports whether s matches the ACC-XXXXXXXXXX format.
func ValidAccountNumber(s string) bool {
	return accountNumberPattern.MatchString(s)
}

// Account represents a single bank account owned by exactly one user.
type Account struct {
	ID             int64           `json:"id"`
	AccountNumber  string          `json:"account_number"`
	UserID         int64           `json:"user_id"`
	AccountType    AccountType     `json:"account_type"`
	Balance        decimal.Decimal `json:"balance"`
	Status         AccountStatus   `json:"status"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
